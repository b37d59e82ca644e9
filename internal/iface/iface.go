// Package iface gathers local network interfaces and addresses for mDNS
// announcement, grounded on the original rtpmidi_announce_addrs() and the
// interface-filtering shape of a typical mDNS responder's interface
// enumeration — simplified to just Up+Multicast+non-loopback, since this
// backend's spec has no notion of VPN/Docker interface exclusion.
package iface

import "net"

// Resolve returns the interfaces to use for multicast joins and address
// gathering. If filter is non-empty, only interfaces whose name appears in
// filter are considered (the mdns_interface configuration option);
// otherwise every up, multicast-capable, non-loopback interface is used.
func Resolve(filter []string) ([]net.Interface, error) {
	all, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]bool, len(filter))
	for _, f := range filter {
		filterSet[f] = true
	}

	out := make([]net.Interface, 0, len(all))
	for _, ifc := range all {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagMulticast == 0 {
			continue
		}
		if ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(filterSet) > 0 && !filterSet[ifc.Name] {
			continue
		}
		out = append(out, ifc)
	}
	return out, nil
}

// Addresses gathers the IPv4 and IPv6 unicast addresses of ifaces, for use
// as mDNS A/AAAA additional records per spec.md §3 ("addresses[]").
func Addresses(ifaces []net.Interface) (v4 []net.IP, v6 []net.IP, err error) {
	for _, ifc := range ifaces {
		addrs, aerr := ifc.Addrs()
		if aerr != nil {
			err = aerr
			continue
		}
		for _, a := range addrs {
			ipNet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP
			if ip.IsLinkLocalUnicast() {
				continue
			}
			if v4addr := ip.To4(); v4addr != nil {
				v4 = append(v4, v4addr)
			} else if v6addr := ip.To16(); v6addr != nil {
				v6 = append(v6, v6addr)
			}
		}
	}
	return v4, v6, err
}
