package apdu

import (
	"bytes"
	"testing"

	"cktap/ckerr"
)

func TestResponseIsOK(t *testing.T) {
	tests := []struct {
		name string
		sw1  byte
		sw2  byte
		want bool
	}{
		{"9000 OK", 0x90, 0x00, true},
		{"61XX more data", 0x61, 0x10, false},
		{"6982 security status not satisfied", 0x69, 0x82, false},
		{"6A82 file not found", 0x6A, 0x82, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := &Response{SW1: tc.sw1, SW2: tc.sw2}
			if got := resp.IsOK(); got != tc.want {
				t.Errorf("Response.IsOK() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResponseHasMoreData(t *testing.T) {
	tests := []struct {
		name string
		sw1  byte
		sw2  byte
		want bool
	}{
		{"6110 has 16 more", 0x61, 0x10, true},
		{"61FF has 255 more", 0x61, 0xFF, true},
		{"9000 no more", 0x90, 0x00, false},
		{"6A82 no more", 0x6A, 0x82, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := &Response{SW1: tc.sw1, SW2: tc.sw2}
			if got := resp.HasMoreData(); got != tc.want {
				t.Errorf("Response.HasMoreData() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResponseSW(t *testing.T) {
	tests := []struct {
		name string
		sw1  byte
		sw2  byte
		want uint16
	}{
		{"9000", 0x90, 0x00, 0x9000},
		{"6A82", 0x6A, 0x82, 0x6A82},
		{"6100", 0x61, 0x00, 0x6100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := &Response{SW1: tc.sw1, SW2: tc.sw2}
			if got := resp.SW(); got != tc.want {
				t.Errorf("Response.SW() = %04X, want %04X", got, tc.want)
			}
		})
	}
}

// scriptedLink replays one response per Transact call, in order, and
// records every request it was sent.
type scriptedLink struct {
	responses [][]byte
	requests  [][]byte
	closed    bool
}

func (s *scriptedLink) Transact(req []byte) ([]byte, error) {
	s.requests = append(s.requests, append([]byte{}, req...))
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func (s *scriptedLink) Close() error {
	s.closed = true
	return nil
}

func TestSendCBORReturnsPayloadOnOK(t *testing.T) {
	link := &scriptedLink{responses: [][]byte{{0x01, 0x02, 0x03, 0x90, 0x00}}}
	c := New(link)

	out, err := c.SendCBOR([]byte{0xAA})
	if err != nil {
		t.Fatalf("SendCBOR: %v", err)
	}
	if !bytes.Equal(out, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("payload = %x, want 010203", out)
	}

	req := link.requests[0]
	if req[0] != 0x00 || req[1] != insCktap {
		t.Fatalf("command APDU header = %x, want CLA=00 INS=%02X", req[:2], insCktap)
	}
}

func TestSendCBORChainsGetResponse(t *testing.T) {
	link := &scriptedLink{responses: [][]byte{
		{0x01, 0x02, 0x61, 0x03}, // SW=61 03: 3 more bytes available
		{0x03, 0x04, 0x05, 0x90, 0x00},
	}}
	c := New(link)

	out, err := c.SendCBOR([]byte{0xAA})
	if err != nil {
		t.Fatalf("SendCBOR: %v", err)
	}
	if !bytes.Equal(out, []byte{0x01, 0x02, 0x03, 0x04, 0x05}) {
		t.Fatalf("chained payload = %x, want 0102030405", out)
	}
	if len(link.requests) != 2 {
		t.Fatalf("expected 2 requests (command + GET RESPONSE), got %d", len(link.requests))
	}
	getResp := link.requests[1]
	if getResp[1] != insGetResponse || getResp[4] != 0x03 {
		t.Fatalf("GET RESPONSE APDU = %x, want INS=%02X Le=03", getResp, insGetResponse)
	}
}

func TestSendCBORRejectsErrorStatusWord(t *testing.T) {
	link := &scriptedLink{responses: [][]byte{{0x6A, 0x82}}} // file not found
	c := New(link)

	if _, err := c.SendCBOR([]byte{0xAA}); !ckerr.Is(err, ckerr.ApduStatus) {
		t.Fatalf("expected ckerr.ApduStatus, got: %v", err)
	}
}

func TestSelectSendsAID(t *testing.T) {
	link := &scriptedLink{responses: [][]byte{{0x90, 0x00}}}
	c := New(link)

	if _, err := c.Select(); err != nil {
		t.Fatalf("Select: %v", err)
	}
	req := link.requests[0]
	if req[1] != insSelect {
		t.Fatalf("INS = 0x%02X, want SELECT (0x%02X)", req[1], insSelect)
	}
	if !bytes.Equal(req[5:5+len(AID)], AID) {
		t.Fatalf("SELECT data = %x, want AID %x", req[5:5+len(AID)], AID)
	}
}

func TestCloseForwardsToClosableLink(t *testing.T) {
	link := &scriptedLink{}
	c := New(link)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !link.closed {
		t.Fatal("expected Close to propagate to the underlying link")
	}
}
