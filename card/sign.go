package card

import (
	"cktap/ckerr"
	"cktap/cktap"
)

// DigestSize is the fixed hash length SIGN accepts.
const DigestSize = 32

// Sign asks the card to produce a raw signature over digest, optionally
// along a derivation sub-path for TAPSIGNER. The core intentionally
// does not verify the returned signature: callers that need that
// guarantee must do it themselves, since Sign is the one command whose
// response verification is deliberately left to the caller.
func (c *Card) Sign(cvc, digest []byte, path []uint32) (sig, pubkey []byte, err error) {
	if len(digest) != DigestSize {
		return nil, nil, ckerr.New(ckerr.CkTapError, "digest must be %d bytes, got %d", DigestSize, len(digest))
	}
	if err := c.requireAuthDelay(); err != nil {
		return nil, nil, err
	}

	sess, _, xcvc, err := c.authSession(cvc)
	if err != nil {
		return nil, nil, err
	}
	defer sess.Zero()

	req := cktap.NewSignRequest(sess.Epubkey, xcvc, digest, path)
	var resp cktap.SignResponse
	if err := c.client.Call(req, &resp); err != nil {
		return nil, nil, err
	}
	c.CardNonce = resp.CardNonce
	return resp.Sig, resp.Pubkey, nil
}
