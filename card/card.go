// Package card drives one tap card end to end: SELECT, read STATUS,
// open per-command sessions, and expose the product-specific operation
// set (SATSCARD, TAPSIGNER, SATSCHIP).
package card

import (
	"cktap/apdu"
	"cktap/ccid"
	"cktap/ckerr"
	"cktap/cktap"
	"cktap/session"
	"cktap/transport"
)

// Kind tags which of the three products a Card is.
type Kind int

const (
	KindSatsCard Kind = iota
	KindSatsChip
	KindTapSigner
)

func (k Kind) String() string {
	switch k {
	case KindSatsCard:
		return "SATSCARD"
	case KindSatsChip:
		return "SATSCHIP"
	case KindTapSigner:
		return "TAPSIGNER"
	default:
		return "UNKNOWN"
	}
}

// Card is a tagged variant over the three products: one shared
// identity plus the Kind-specific fields needed to drive its state
// machine.
type Card struct {
	Kind Kind

	Proto      int
	Ver        string
	Birth      int
	Pubkey     []byte
	CardNonce  []byte
	AuthDelay  int
	NFCEnabled bool
	NumBackups int

	// SATSCARD / SATSCHIP only.
	CurrentSlot int
	TotalSlots  int
	Addr        string

	// TAPSIGNER only.
	Path []uint32

	client *cktap.Client
}

// classify derives a Kind from a StatusResponse's capability flags:
// SATSCHIP and TAPSIGNER share a wire shape, and the Satschip/
// Tapsigner flags disambiguate them.
func classify(status *cktap.StatusResponse) Kind {
	switch {
	case status.Tapsigner:
		return KindTapSigner
	case status.Satschip:
		return KindSatsChip
	default:
		return KindSatsCard
	}
}

func newCard(client *cktap.Client, status *cktap.StatusResponse) *Card {
	c := &Card{
		Kind:       classify(status),
		Proto:      status.Proto,
		Ver:        status.Ver,
		Birth:      status.Birth,
		Pubkey:     status.Pubkey,
		CardNonce:  status.CardNonce,
		AuthDelay:  status.AuthDelay,
		NFCEnabled: status.NFC,
		NumBackups: status.NumBackups,
		Addr:       status.Addr,
		Path:       status.Path,
		client:     client,
	}
	if len(status.Slots) == 2 {
		c.CurrentSlot, c.TotalSlots = status.Slots[0], status.Slots[1]
	}
	return c
}

// Open performs SELECT and STATUS against link and returns the
// classified Card ready for further commands. link is a *ccid.Client for the real USB
// path or a transport.RawLink for the emulator; both implement
// apdu.Link.
func Open(link apdu.Link) (*Card, error) {
	codec, err := cktap.NewCodec()
	if err != nil {
		return nil, err
	}
	client := cktap.NewClient(codec, apdu.New(link))

	if _, err := client.Select(); err != nil {
		return nil, err
	}
	return Refresh(client)
}

// Refresh re-issues STATUS and rebuilds the Card, used after any
// command that advances CardNonce or other status fields.
func Refresh(client *cktap.Client) (*Card, error) {
	var resp cktap.StatusResponse
	if err := client.Call(cktap.NewStatusRequest(), &resp); err != nil {
		return nil, err
	}
	return newCard(client, &resp), nil
}

// Refresh re-reads STATUS on an existing Card in place, replacing every
// field (Pubkey and Kind included, alongside CardNonce, CurrentSlot and
// AuthDelay) with the card's fresh report.
func (c *Card) Refresh() error {
	fresh, err := Refresh(c.client)
	if err != nil {
		return err
	}
	*c = *fresh
	return nil
}

// OpenWithTransport wires a raw transport.Transport through CCID
// framing (the real USB path) and opens the card.
func OpenWithTransport(t transport.Transport) (*Card, error) {
	return Open(ccid.New(t))
}

// OpenEmulated wires a raw transport.Transport directly as an apdu.Link,
// bypassing CCID entirely.
func OpenEmulated(t transport.Transport) (*Card, error) {
	return Open(transport.RawLink{T: t})
}

// Close releases the underlying transport.
func (c *Card) Close() error {
	return c.client.Close()
}

// Reset resyncs the link after a transport or CCID error, re-selects
// the applet, and refreshes CardNonce and the rest of the Card's
// mutable fields. Callers should retry the failed command once Reset
// succeeds.
func (c *Card) Reset() error {
	if err := c.client.Resync(); err != nil {
		return err
	}
	return c.Refresh()
}

// authSession opens a fresh ECDH session against the card's current
// public key and a fresh HostNonce, returning both plus the encrypted
// CVC ready to place on the wire. Callers must defer sess.Zero().
func (c *Card) authSession(cvc []byte) (sess *session.Session, hostNonce, xcvc []byte, err error) {
	if err := session.ValidateCVC(cvc); err != nil {
		return nil, nil, nil, err
	}
	sess, err = session.Open(c.Pubkey)
	if err != nil {
		return nil, nil, nil, err
	}
	hostNonce, err = session.NewHostNonce()
	if err != nil {
		sess.Zero()
		return nil, nil, nil, err
	}
	xcvc = sess.EncryptCVC(cvc)
	return sess, hostNonce, xcvc, nil
}

// requireAuthDelay refuses to start an authenticated command while the
// card is still serving out a wrong-CVC backoff.
func (c *Card) requireAuthDelay() error {
	if c.AuthDelay > 0 {
		return ckerr.New(ckerr.CkTapError, "card requires %d more WAIT commands before accepting a CVC", c.AuthDelay)
	}
	return nil
}
