package iface

import (
	"net"
	"testing"
)

func TestResolve_NoFilterExcludesLoopback(t *testing.T) {
	ifaces, err := Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 {
			t.Errorf("loopback interface %q leaked through an empty filter", ifc.Name)
		}
	}
}

func TestResolve_FilterByName(t *testing.T) {
	all, err := net.Interfaces()
	if err != nil {
		t.Fatalf("net.Interfaces: %v", err)
	}
	if len(all) == 0 {
		t.Skip("no interfaces on this host")
	}

	got, err := Resolve([]string{"a-name-no-interface-will-ever-have"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Resolve with a non-matching filter returned %d interfaces, want 0", len(got))
	}
}

func TestAddresses_SkipsLinkLocal(t *testing.T) {
	v4, v6, err := Addresses(nil)
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	for _, ip := range append(append([]net.IP{}, v4...), v6...) {
		if ip.IsLinkLocalUnicast() {
			t.Errorf("link-local address %s leaked through", ip)
		}
	}
}

func TestAddresses_ClassifiesByFamily(t *testing.T) {
	ifaces, err := net.Interfaces()
	if err != nil {
		t.Fatalf("net.Interfaces: %v", err)
	}

	v4, v6, err := Addresses(ifaces)
	if err != nil {
		t.Fatalf("Addresses: %v", err)
	}
	for _, ip := range v4 {
		if ip.To4() == nil {
			t.Errorf("address %s returned in the v4 slice is not a v4 address", ip)
		}
	}
	for _, ip := range v6 {
		if ip.To4() != nil {
			t.Errorf("address %s returned in the v6 slice is a v4 address", ip)
		}
	}
}
