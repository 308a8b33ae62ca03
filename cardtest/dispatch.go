package cardtest

import (
	"github.com/fxamacker/cbor/v2"

	"cktap/cktap"
)

type cmdEnvelope struct {
	Cmd string `cbor:"cmd"`
}

func (f *FakeCard) statusCBOR() []byte {
	resp := cktap.StatusResponse{
		Proto:     1,
		Ver:       "1.0.0-fake",
		Birth:     0,
		Pubkey:    f.priv.PubKey().SerializeCompressed(),
		CardNonce: f.cardNonce,
		AuthDelay: f.authDelay,
		NFC:       true,
		Tapsigner: f.Tapsigner,
	}
	if f.Tapsigner {
		resp.Path = f.path
	} else {
		resp.Slots = []int{f.currentSlot, len(f.slots)}
	}
	return mustMarshal(resp)
}

// dispatch decodes a cktap command and encodes its response, or a
// cktap {error, code} reply on failure.
func (f *FakeCard) dispatch(body []byte) []byte {
	var env cmdEnvelope
	if err := cbor.Unmarshal(body, &env); err != nil {
		return f.errorReply("bad command envelope", 415)
	}

	switch env.Cmd {
	case cktap.CmdStatus:
		return f.statusCBOR()
	case cktap.CmdRead:
		return f.handleRead(body)
	case cktap.CmdCheck:
		return f.handleCheck(body)
	case cktap.CmdCerts:
		return f.handleCerts()
	case cktap.CmdWait:
		return f.handleWait()
	case cktap.CmdNFC:
		return mustMarshal(cktap.NFCResponse{URL: "https://getsatscard.com/start"})
	case cktap.CmdDerive:
		return f.handleDerive(body)
	case cktap.CmdNew:
		return f.handleNew(body)
	case cktap.CmdUnseal:
		return f.handleUnseal(body)
	case cktap.CmdDump:
		return f.handleDump(body)
	case cktap.CmdSign:
		return f.handleSign(body)
	case cktap.CmdChange:
		return f.handleChange(body)
	case cktap.CmdXpub:
		return f.handleXpub(body)
	case cktap.CmdBackup:
		return f.handleBackup(body)
	default:
		return f.errorReply("unknown command", 404)
	}
}

func (f *FakeCard) errorReply(msg string, code int) []byte {
	return mustMarshal(struct {
		Error string `cbor:"error"`
		Code  int    `cbor:"code"`
	}{Error: msg, Code: code})
}

// bumpNonce rotates CardNonce after any command that touches it,
// simulating the real card's per-command nonce discipline.
func (f *FakeCard) bumpNonce() []byte {
	f.cardNonce = randomBytes(16)
	return f.cardNonce
}
