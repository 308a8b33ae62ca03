// Package transport provides the lowest layer of the cktap driver stack:
// a byte-oriented, single-user, timeout-bounded write/read pair over
// either a direct USB bulk CCID interface or a Unix-domain socket to the
// Coinkite card emulator.
package transport

import (
	"time"

	"cktap/ckerr"
)

// DefaultTimeout is used when a caller does not override it.
const DefaultTimeout = 5 * time.Second

// MaxPacket is large enough for any cktap message.
const MaxPacket = 1024

// Transport is the single-user byte pipe every higher layer is built on.
// Implementations must make Close safe to call multiple times and must
// release any exclusively-held resource on every exit path.
type Transport interface {
	// Write sends one packet, blocking up to the transport's timeout.
	Write(p []byte) error
	// Read returns one packet, blocking up to the transport's timeout.
	Read() ([]byte, error)
	// Close releases the underlying device or socket.
	Close() error
}

// timeoutError is returned by implementations when an operation does not
// complete within its deadline.
func timeoutError(op string) error {
	return ckerr.New(ckerr.Timeout, "%s did not complete within timeout", op)
}
