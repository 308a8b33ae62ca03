package card

import (
	"crypto/sha256"

	"cktap/ckerr"
	"cktap/cktap"
	"cktap/session"
)

var opendimePrefix = []byte("OPENDIME")

// readDigest is the message a read (or check) response signs: a fixed
// "OPENDIME" literal, the CardNonce/HostNonce pair binding the
// signature to this exchange, the slot index, and the returned pubkey.
func readDigest(cardNonce, hostNonce []byte, slot int, pubkey []byte) []byte {
	msg := append(append([]byte{}, opendimePrefix...), cardNonce...)
	msg = append(msg, hostNonce...)
	msg = append(msg, byte(slot))
	msg = append(msg, pubkey...)
	sum := sha256.Sum256(msg)
	return sum[:]
}

// deriveDigest is the message a derive response signs: the same
// "OPENDIME"-prefixed nonce pair as readDigest, but bound to the
// returned chain code instead of a slot index.
func deriveDigest(cardNonce, hostNonce, chainCode, pubkey []byte) []byte {
	msg := append(append([]byte{}, opendimePrefix...), cardNonce...)
	msg = append(msg, hostNonce...)
	msg = append(msg, chainCode...)
	msg = append(msg, pubkey...)
	sum := sha256.Sum256(msg)
	return sum[:]
}

// Read fetches the current slot's (SATSCARD/SATSCHIP) or derived
// (TAPSIGNER) public key and verifies the card's signature over it.
// SATSCARD/SATSCHIP accept a nil cvc for an unauthenticated read of the
// public slot key when unsealed addresses are exposed; TAPSIGNER
// always requires one.
func (c *Card) Read(cvc []byte) ([]byte, error) {
	sess, hostNonce, xcvc, err := c.openOptionalSession(cvc)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		defer sess.Zero()
	}

	req := cktap.NewReadRequest(hostNonce, epubkeyOf(sess), xcvc)
	var resp cktap.ReadResponse
	if err := c.client.Call(req, &resp); err != nil {
		return nil, err
	}

	if err := session.VerifyResponse(resp.Sig, readDigest(c.CardNonce, hostNonce, c.CurrentSlot, resp.Pubkey), c.Pubkey); err != nil {
		return nil, err
	}
	c.CardNonce = resp.CardNonce
	return resp.Pubkey, nil
}

// Derive asks a TAPSIGNER to derive along path and verifies the
// resulting signature and chain code.
func (c *Card) Derive(cvc []byte, path []uint32) (pubkey, chainCode []byte, err error) {
	if c.Kind != KindTapSigner {
		return nil, nil, ckerr.New(ckerr.CkTapError, "derive is only valid on TAPSIGNER, card is %s", c.Kind)
	}
	if err := c.requireAuthDelay(); err != nil {
		return nil, nil, err
	}

	sess, hostNonce, xcvc, err := c.authSession(cvc)
	if err != nil {
		return nil, nil, err
	}
	defer sess.Zero()

	req := cktap.NewDeriveRequest(hostNonce, sess.Epubkey, xcvc, path)
	var resp cktap.DeriveResponse
	if err := c.client.Call(req, &resp); err != nil {
		return nil, nil, err
	}

	if err := session.VerifyResponse(resp.Sig, deriveDigest(c.CardNonce, hostNonce, resp.ChainCode, resp.Pubkey), resp.Pubkey); err != nil {
		return nil, nil, err
	}
	c.CardNonce = resp.CardNonce
	c.Path = path
	return resp.Pubkey, sess.DecryptPayload(resp.ChainCode), nil
}

// openOptionalSession opens an authenticated session when cvc is
// non-empty, or returns a nil session for an unauthenticated read
// (SATSCARD/SATSCHIP only accept this).
func (c *Card) openOptionalSession(cvc []byte) (sess *session.Session, hostNonce, xcvc []byte, err error) {
	if len(cvc) == 0 {
		if c.Kind == KindTapSigner {
			return nil, nil, nil, ckerr.New(ckerr.CkTapError, "TAPSIGNER read requires a CVC")
		}
		hostNonce, err = session.NewHostNonce()
		if err != nil {
			return nil, nil, nil, err
		}
		return nil, hostNonce, nil, nil
	}
	return c.authSession(cvc)
}

func epubkeyOf(sess *session.Session) []byte {
	if sess == nil {
		return nil
	}
	return sess.Epubkey
}
