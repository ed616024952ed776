package relay

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/paulGUZU/vsak/internal/tunnel"
	"github.com/paulGUZU/vsak/pkg/slot"
)

// Test_PeerHalfClose_DoesNotEchoSecondZeroLengthFrame exercises the path the
// maintainer flagged: a zero-length frame arriving for an Open slot closes
// the socket locally, which in turn makes the paired PumpSocketToTransport
// observe a closed socket and call SendClose. That second call must not put
// a second zero-length frame on the wire.
func Test_PeerHalfClose_DoesNotEchoSecondZeroLengthFrame(t *testing.T) {
	localA, localB := net.Pipe()
	defer localA.Close()
	defer localB.Close()

	transportA, transportB := net.Pipe()
	defer transportA.Close()
	defer transportB.Close()

	tun := tunnel.New(transportA, 64)
	defer tun.Close()
	peer := tunnel.New(transportB, 64)
	defer peer.Close()

	table := slot.NewTable(64)
	sl, _ := table.Lookup(3)
	sl.SetState(slot.Open)
	sl.Bind(localA)

	go PumpTransportToSocket(tun, table, sl)
	go PumpSocketToTransport(tun, table, sl, 4096, func(error) {})

	// Simulate the peer's half-close: queue a zero-length payload as the
	// dispatch loop would on receiving one. This drives
	// PumpTransportToSocket's len(payload)==0 branch, which closes localA
	// and the table slot; closing localA makes the paired
	// PumpSocketToTransport's conn.Read on localA fail, driving it into
	// SendClose. That SendClose must not write a spurious second
	// zero-length frame onto the transport.
	Deliver(sl, nil)

	readErr := make(chan error, 1)
	go func() {
		_, _, err := peer.ReadFrame()
		readErr <- err
	}()

	select {
	case err := <-readErr:
		t.Fatalf("a second zero-length frame was echoed back for the same half-close (err=%v)", err)
	case <-time.After(300 * time.Millisecond):
	}

	require.Equal(t, slot.Free, sl.State())
}
