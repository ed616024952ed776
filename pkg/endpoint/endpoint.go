// Package endpoint opens the opaque bidirectional transport handle that
// carries the multiplexed wire protocol. Device discovery and
// platform-specific virtio-serial enumeration are out of scope for this
// module (see spec §1); this package only knows how to turn a configured
// path into an io.ReadWriteCloser, trying the two shapes that path is
// realistically given as: a character device (the virtio-serial port
// itself) or a Unix domain socket (a local stand-in used in development,
// since a real virtio-serial device is not present off a hypervisor).
package endpoint

import (
	"fmt"
	"io"
	"net"
	"os"
)

// Open returns a bidirectional handle bound to path. It first tries to
// dial path as a Unix domain socket; if that dial fails for any reason, it
// falls back to opening it as a device file.
func Open(path string) (io.ReadWriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("endpoint: empty path")
	}

	if conn, err := net.Dial("unix", path); err == nil {
		return conn, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("endpoint: open %s: %w", path, err)
	}
	return f, nil
}
