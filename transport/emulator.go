package transport

import (
	"net"
	"time"

	"cktap/ckerr"
)

// EmulatorEnvVar is the environment variable consumed by callers to select
// emulator mode; the core itself never reads the environment,
// it only exposes the constant and a dialer that takes a path.
const EmulatorEnvVar = "CKTAP_SIM"

// EmulatorTransport replaces the CCID layer entirely: the Coinkite
// emulator speaks raw APDU bytes directly over a Unix-domain stream
// socket, one APDU request per write and one response per read
//. The APDU and cktap layers above are unaware of the
// substitution.
type EmulatorTransport struct {
	conn    net.Conn
	timeout time.Duration
}

// DialEmulator connects to the emulator's Unix-domain socket at path.
func DialEmulator(path string, timeout time.Duration) (*EmulatorTransport, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := net.DialTimeout("unix", path, timeout)
	if err != nil {
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "dial emulator socket %s", path)
	}
	return &EmulatorTransport{conn: conn, timeout: timeout}, nil
}

func (t *EmulatorTransport) Write(p []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return ckerr.Wrap(ckerr.TransportIo, err, "set emulator write deadline")
	}
	if _, err := t.conn.Write(p); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return timeoutError("emulator write")
		}
		return ckerr.Wrap(ckerr.TransportIo, err, "emulator write")
	}
	return nil
}

func (t *EmulatorTransport) Read() ([]byte, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "set emulator read deadline")
	}
	buf := make([]byte, MaxPacket)
	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, timeoutError("emulator read")
		}
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "emulator read")
	}
	return buf[:n], nil
}

func (t *EmulatorTransport) Close() error {
	return t.conn.Close()
}

var _ Transport = (*EmulatorTransport)(nil)
