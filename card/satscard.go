package card

import (
	"cktap/ckerr"
	"cktap/cktap"
	"cktap/session"
)

// SlotState is a SATSCARD/SATSCHIP slot's position in its UNUSED ->
// SEALED -> UNSEALED lifecycle.
type SlotState int

const (
	SlotUnused SlotState = iota
	SlotSealed
	SlotUnsealed
)

func (s SlotState) String() string {
	switch s {
	case SlotUnused:
		return "UNUSED"
	case SlotSealed:
		return "SEALED"
	case SlotUnsealed:
		return "UNSEALED"
	default:
		return "UNKNOWN"
	}
}

// SlotInfo is one slot's public and (if unsealed and authenticated)
// private state, as reported by DUMP.
type SlotInfo struct {
	Slot         int
	State        SlotState
	Addr         string
	Pubkey       []byte
	Privkey      []byte // only set when Unsealed and the caller authenticated as owner
	MasterPubkey []byte
	ChainCode    []byte
}

// NewSlot seals the next SATSCARD slot, advancing CurrentSlot by
// exactly one. chainCode may be nil to
// let the card pick its own entropy, or supplied by the host to mix in
// additional randomness.
func (c *Card) NewSlot(cvc string, chainCode []byte) (slot int, err error) {
	if c.Kind == KindTapSigner {
		return 0, ckerr.New(ckerr.CkTapError, "new is not valid on TAPSIGNER; use derive")
	}
	if err := c.requireAuthDelay(); err != nil {
		return 0, err
	}

	sess, _, xcvc, err := c.authSession([]byte(cvc))
	if err != nil {
		return 0, err
	}
	defer sess.Zero()

	req := cktap.NewNewSlotRequest(sess.Epubkey, xcvc, c.CurrentSlot, chainCode)
	var resp cktap.NewSlotResponse
	if err := c.client.Call(req, &resp); err != nil {
		return 0, err
	}
	if resp.Slot != c.CurrentSlot+1 {
		return 0, ckerr.New(ckerr.CkTapError, "card advanced slot to %d, expected %d", resp.Slot, c.CurrentSlot+1)
	}
	c.CurrentSlot = resp.Slot
	c.CardNonce = resp.CardNonce
	return resp.Slot, nil
}

// Unseal reveals slot's master private key, transitioning it from
// SEALED to UNSEALED. The returned
// privkey and chainCode have already been decrypted under the session
// key.
func (c *Card) Unseal(cvc string, slot int) (info *SlotInfo, err error) {
	if c.Kind == KindTapSigner {
		return nil, ckerr.New(ckerr.CkTapError, "unseal is not valid on TAPSIGNER")
	}
	if err := c.requireAuthDelay(); err != nil {
		return nil, err
	}

	sess, _, xcvc, err := c.authSession([]byte(cvc))
	if err != nil {
		return nil, err
	}
	defer sess.Zero()

	req := cktap.NewUnsealRequest(sess.Epubkey, xcvc, slot)
	var resp cktap.UnsealResponse
	if err := c.client.Call(req, &resp); err != nil {
		return nil, err
	}
	c.CardNonce = resp.CardNonce

	return &SlotInfo{
		Slot:         resp.Slot,
		State:        SlotUnsealed,
		Pubkey:       resp.Pubkey,
		Privkey:      sess.DecryptPayload(resp.Privkey),
		MasterPubkey: resp.MasterPubkey,
		ChainCode:    sess.DecryptPayload(resp.ChainCode),
	}, nil
}

// Dump reads any slot's public data, including private fields when the
// slot is unsealed and cvc authenticates its owner. cvc may be empty for a public-only read.
func (c *Card) Dump(cvc string, slot int) (*SlotInfo, error) {
	var sess *session.Session
	var epubkey, xcvc []byte
	if cvc != "" {
		opened, _, encCvc, err := c.authSession([]byte(cvc))
		if err != nil {
			return nil, err
		}
		defer opened.Zero()
		sess, epubkey, xcvc = opened, opened.Epubkey, encCvc
	}

	req := cktap.NewDumpRequest(epubkey, xcvc, slot)
	var resp cktap.DumpResponse
	if err := c.client.Call(req, &resp); err != nil {
		return nil, err
	}
	c.CardNonce = resp.CardNonce

	state := SlotUnused
	switch {
	case resp.Sealed:
		state = SlotSealed
	case resp.Used:
		state = SlotUnsealed
	}

	info := &SlotInfo{
		Slot:         resp.Slot,
		State:        state,
		Addr:         resp.Addr,
		Pubkey:       resp.Pubkey,
		MasterPubkey: resp.MasterPubkey,
	}
	if sess != nil && len(resp.Privkey) > 0 {
		info.Privkey = sess.DecryptPayload(resp.Privkey)
		info.ChainCode = sess.DecryptPayload(resp.ChainCode)
	}
	return info, nil
}
