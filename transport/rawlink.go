package transport

// RawLink adapts a Transport directly into an apdu.Link, bypassing CCID
// framing entirely. This is how the emulator socket is wired in: the
// emulator speaks raw APDU bytes, one request per write and one
// response per read.
type RawLink struct {
	T Transport
}

// Transact writes the APDU and reads back exactly one response packet.
func (r RawLink) Transact(apdu []byte) ([]byte, error) {
	if err := r.T.Write(apdu); err != nil {
		return nil, err
	}
	return r.T.Read()
}

// Close releases the underlying transport.
func (r RawLink) Close() error {
	return r.T.Close()
}
