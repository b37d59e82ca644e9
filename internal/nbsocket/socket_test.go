package nbsocket

import (
	"net"
	"testing"
	"time"
)

func TestOpen_EphemeralPortIsReported(t *testing.T) {
	sock, err := Open(FamilyV4, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sock.Close()

	if sock.Port() == 0 {
		t.Error("Port() returned 0 after binding to an ephemeral port")
	}
	if sock.Family() != FamilyV4 {
		t.Errorf("Family() = %v, want FamilyV4", sock.Family())
	}
}

func TestRecvFrom_WouldBlockWhenIdle(t *testing.T) {
	sock, err := Open(FamilyV4, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sock.Close()

	buf := make([]byte, 1500)
	_, _, err = sock.RecvFrom(buf)
	if err != ErrWouldBlock {
		t.Errorf("RecvFrom on an idle socket = %v, want ErrWouldBlock", err)
	}
}

func TestSendTo_RoundTripsOverLoopback(t *testing.T) {
	a, err := Open(FamilyV4, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	defer a.Close()

	b, err := Open(FamilyV4, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}
	defer b.Close()

	dest := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: b.Port()}
	payload := []byte("hello, rtp-midi")
	if err := a.SendTo(payload, dest); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	buf := make([]byte, 1500)
	var n int
	var recvErr error
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, _, recvErr = b.RecvFrom(buf)
		if recvErr != ErrWouldBlock {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if recvErr != nil {
		t.Fatalf("RecvFrom: %v", recvErr)
	}
	if string(buf[:n]) != string(payload) {
		t.Errorf("received %q, want %q", buf[:n], payload)
	}
}

func TestClose_Succeeds(t *testing.T) {
	sock, err := Open(FamilyV4, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := sock.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
