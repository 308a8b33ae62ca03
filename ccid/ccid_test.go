package ccid

import (
	"encoding/binary"
	"testing"

	"cktap/ckerr"
)

// fakeTransport is a transport.Transport that hands back one canned CCID
// response per Write, recording the frame it was given.
type fakeTransport struct {
	lastWrite []byte
	nextResp  []byte
	nextErr   error
}

func (f *fakeTransport) Write(p []byte) error {
	f.lastWrite = append([]byte{}, p...)
	return nil
}

func (f *fakeTransport) Read() ([]byte, error) {
	return f.nextResp, f.nextErr
}

func (f *fakeTransport) Close() error { return nil }

func dataBlock(payload []byte) []byte {
	resp := make([]byte, headerLen+len(payload))
	resp[0] = msgDataBlock
	binary.LittleEndian.PutUint32(resp[1:5], uint32(len(payload)))
	resp[7] = 0 // iccStatus=0 (active), cmdStatus=0 (success)
	copy(resp[headerLen:], payload)
	return resp
}

func TestTransactFramesAndUnwrapsPayload(t *testing.T) {
	ft := &fakeTransport{nextResp: dataBlock([]byte{0x90, 0x00})}
	c := New(ft)

	payload := []byte{0xCB, 0x00, 0x00, 0x05, 0x01, 0x02, 0x03, 0x04, 0x05}
	out, err := c.Transact(payload)
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if len(out) != 2 || out[0] != 0x90 || out[1] != 0x00 {
		t.Fatalf("unwrapped payload = %x, want [90 00]", out)
	}

	if ft.lastWrite[0] != msgXfrBlock {
		t.Fatalf("frame msgType = 0x%02X, want XfrBlock", ft.lastWrite[0])
	}
	if binary.LittleEndian.Uint32(ft.lastWrite[1:5]) != uint32(len(payload)) {
		t.Fatalf("frame length field wrong")
	}
}

func TestTransactIncrementsSequence(t *testing.T) {
	ft := &fakeTransport{nextResp: dataBlock(nil)}
	c := New(ft)

	if _, err := c.Transact(nil); err != nil {
		t.Fatalf("Transact: %v", err)
	}
	firstSeq := ft.lastWrite[6]
	if _, err := c.Transact(nil); err != nil {
		t.Fatalf("Transact: %v", err)
	}
	secondSeq := ft.lastWrite[6]
	if secondSeq != firstSeq+1 {
		t.Fatalf("sequence = %d, want %d", secondSeq, firstSeq+1)
	}
}

func TestTransactRejectsICCError(t *testing.T) {
	resp := dataBlock(nil)
	resp[7] = 1 << 6 // cmdStatus=1 (failed)
	ft := &fakeTransport{nextResp: resp}
	c := New(ft)

	if _, err := c.Transact(nil); !ckerr.Is(err, ckerr.Ccid) {
		t.Fatalf("expected ckerr.Ccid, got: %v", err)
	}
}

func TestTransactRejectsNonZeroChainParameter(t *testing.T) {
	resp := dataBlock(nil)
	resp[9] = 1
	ft := &fakeTransport{nextResp: resp}
	c := New(ft)

	if _, err := c.Transact(nil); !ckerr.Is(err, ckerr.Ccid) {
		t.Fatalf("expected ckerr.Ccid for non-zero chain parameter, got: %v", err)
	}
}

func TestTransactRejectsShortResponse(t *testing.T) {
	ft := &fakeTransport{nextResp: []byte{0x80, 0x00}}
	c := New(ft)

	if _, err := c.Transact(nil); !ckerr.Is(err, ckerr.Ccid) {
		t.Fatalf("expected ckerr.Ccid for short response, got: %v", err)
	}
}
