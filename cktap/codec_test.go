package cktap

import (
	"testing"

	"github.com/fxamacker/cbor/v2"

	"cktap/apdu"
	"cktap/ckerr"
)

// stubLink is an apdu.Link that replays a canned raw APDU response for
// whatever command is transacted, used to exercise the codec without a
// real transport underneath.
type stubLink struct {
	resp []byte
}

func (s *stubLink) Transact(req []byte) ([]byte, error) {
	return append(append([]byte{}, s.resp...), 0x90, 0x00), nil
}

func newStubClient(t *testing.T, payload any) *Client {
	t.Helper()
	raw, err := cbor.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal stub payload: %v", err)
	}
	codec, err := NewCodec()
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return NewClient(codec, apdu.New(&stubLink{resp: raw}))
}

func TestCallDecodesSuccessResponse(t *testing.T) {
	client := newStubClient(t, WaitResponse{Success: true, AuthDelay: 3})

	var resp WaitResponse
	if err := client.Call(NewWaitRequest(), &resp); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !resp.Success || resp.AuthDelay != 3 {
		t.Fatalf("decoded response = %+v, want Success=true AuthDelay=3", resp)
	}
}

func TestCallTranslatesErrorReply(t *testing.T) {
	client := newStubClient(t, errorReply{Error: "bad cvc", Code: ckerr.CodeBadCvc})

	var resp WaitResponse
	err := client.Call(NewWaitRequest(), &resp)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !ckerr.Is(err, ckerr.CkTapError) {
		t.Fatalf("expected CkTapError, got: %v", err)
	}
}

func TestSelectDecodesStatusResponse(t *testing.T) {
	client := newStubClient(t, StatusResponse{Proto: 1, Ver: "1.0.3", Tapsigner: true})

	status, err := client.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !status.Tapsigner || status.Ver != "1.0.3" {
		t.Fatalf("decoded status = %+v", status)
	}
}
