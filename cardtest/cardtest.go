// Package cardtest provides an in-process fake tap card: a
// transport.Transport that plays the CCID/APDU/cktap card role in
// memory, so the rest of the driver can be exercised without real
// hardware or the emulator socket.
package cardtest

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/fxamacker/cbor/v2"

	"cktap/ckerr"
)

// CCID/APDU protocol bytes, duplicated from ccid and apdu rather than
// imported, the same way the teacher's own testing/tests_apdu.go built
// raw APDU byte slices independently of card/apdu.go's production
// helpers.
const (
	msgPowerOn       byte = 0x62
	msgGetSlotStatus byte = 0x65
	msgXfrBlock      byte = 0x6F
	msgDataBlock     byte = 0x80
	msgSlotStatus    byte = 0x81

	ccidHeaderLen = 10

	insSelect      byte = 0xA4
	insCktap       byte = 0xCB
	insGetResponse byte = 0xC0
)

// Slot is one SATSCARD/SATSCHIP slot's simulated state.
type Slot struct {
	Sealed    bool
	Used      bool
	priv      *btcec.PrivateKey
	masterPub []byte
	chainCode []byte
}

// FakeCard simulates one tap card's CCID/APDU/cktap stack entirely in
// memory, signing real responses with generated secp256k1 keys so the
// production session/certchain verification logic runs unmodified
// against it.
type FakeCard struct {
	mu sync.Mutex

	Tapsigner bool

	priv      *btcec.PrivateKey
	cardNonce []byte
	authDelay int
	cvc       []byte

	slots       []*Slot
	currentSlot int

	path      []uint32
	derivePub []byte

	certSigners []*btcec.PrivateKey // chain[0] certifies the identity key, chain[last] is the trust root

	seq      byte
	response []byte
}

// NewSatsCard builds a fake SATSCARD with one sealed slot and a
// two-link certificate chain.
func NewSatsCard() *FakeCard {
	return newFakeCard(false)
}

// NewTapSigner builds a fake TAPSIGNER.
func NewTapSigner() *FakeCard {
	return newFakeCard(true)
}

func newFakeCard(tapsigner bool) *FakeCard {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}
	intermediate, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}
	root, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}

	fc := &FakeCard{
		Tapsigner:   tapsigner,
		priv:        priv,
		cardNonce:   randomBytes(16),
		cvc:         []byte("123456"),
		certSigners: []*btcec.PrivateKey{intermediate, root},
	}
	if !tapsigner {
		slotPriv, err := btcec.NewPrivateKey()
		if err != nil {
			panic(err)
		}
		fc.slots = []*Slot{{Sealed: true, priv: slotPriv}}
	}
	return fc
}

// TrustRoot returns the compressed public key this fake card's
// certificate chain terminates at, for tests to assign to
// card.TrustRoot.
func (f *FakeCard) TrustRoot() []byte {
	return f.certSigners[len(f.certSigners)-1].PubKey().SerializeCompressed()
}

// Pubkey returns the public key a read currently reports: the current
// slot's key on SATSCARD, the derived key on TAPSIGNER after a derive,
// and the identity key otherwise.
func (f *FakeCard) Pubkey() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activePubkey()
}

func (f *FakeCard) activePubkey() []byte {
	if f.Tapsigner && f.derivePub != nil {
		return f.derivePub
	}
	if !f.Tapsigner && len(f.slots) > 0 {
		return f.slots[f.currentSlot].priv.PubKey().SerializeCompressed()
	}
	return f.priv.PubKey().SerializeCompressed()
}

// Write implements transport.Transport: it is the host->card direction,
// a framed CCID request.
func (f *FakeCard) Write(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(frame) < ccidHeaderLen {
		return ckerr.New(ckerr.Ccid, "short CCID request: %d bytes", len(frame))
	}
	msgType := frame[0]
	length := binary.LittleEndian.Uint32(frame[1:5])
	slot := frame[5]
	seq := frame[6]
	payload := frame[ccidHeaderLen : ccidHeaderLen+int(length)]

	switch msgType {
	case msgPowerOn:
		f.response = ccidFrame(msgDataBlock, slot, seq, []byte{0x3B, 0x00}) // minimal dummy ATR
	case msgGetSlotStatus:
		f.response = ccidFrame(msgSlotStatus, slot, seq, nil)
	case msgXfrBlock:
		apduResp := f.handleAPDU(payload)
		f.response = ccidFrame(msgDataBlock, slot, seq, apduResp)
	default:
		return ckerr.New(ckerr.Ccid, "fake card: unhandled CCID message type 0x%02X", msgType)
	}
	return nil
}

// Read implements transport.Transport.
func (f *FakeCard) Read() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.response == nil {
		return nil, ckerr.New(ckerr.TransportIo, "fake card: read with no pending response")
	}
	resp := f.response
	f.response = nil
	return resp, nil
}

// Close implements transport.Transport.
func (f *FakeCard) Close() error { return nil }

func ccidFrame(msgType, slot, seq byte, payload []byte) []byte {
	buf := make([]byte, ccidHeaderLen+len(payload))
	buf[0] = msgType
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(payload)))
	buf[5] = slot
	buf[6] = seq
	copy(buf[ccidHeaderLen:], payload)
	return buf
}

// handleAPDU parses one ISO-7816 command APDU and returns data||SW1||SW2.
func (f *FakeCard) handleAPDU(apdu []byte) []byte {
	if len(apdu) < 5 {
		return []byte{0x67, 0x00} // wrong length
	}
	ins := apdu[1]
	lc := int(apdu[4])
	data := apdu[5 : 5+lc]

	switch ins {
	case insSelect:
		return f.respondOK(f.statusCBOR())
	case insCktap:
		return f.respondOK(f.dispatch(data))
	case insGetResponse:
		// This fake card never returns SW1=0x61, so it never needs to
		// serve a GET RESPONSE chain; the conformance tests for
		// multi-chunk chaining exercise apdu.Client directly instead.
		return []byte{0x6D, 0x00} // INS not supported
	default:
		return []byte{0x6D, 0x00}
	}
}

func (f *FakeCard) respondOK(body []byte) []byte {
	return append(append([]byte{}, body...), 0x90, 0x00)
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

func mustMarshal(v any) []byte {
	b, err := cbor.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var opendimePrefix = []byte("OPENDIME")

func sha256Sum(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	sum := h.Sum(nil)
	return sum
}
