package card

import (
	"cktap/certchain"
	"cktap/cktap"
	"cktap/session"
)

// TrustRoot is the public key every certificate chain must recover to.
// Defaults to certchain.FactoryRoot; cardtest substitutes a throwaway
// root matching its fake card's signing keys, the same Reader-variable
// indirection crypto/rand uses for its DefaultRoot-equivalent.
var TrustRoot = certchain.FactoryRoot

// VerifyAuthenticity fetches the certificate chain and the CHECK
// challenge response, then verifies the chain recovers to TrustRoot,
// confirming the card is genuine Coinkite hardware rather than a clone.
func (c *Card) VerifyAuthenticity() error {
	var certsResp cktap.CertsResponse
	if err := c.client.Call(cktap.NewCertsRequest(), &certsResp); err != nil {
		return err
	}

	sess, err := session.Open(c.Pubkey)
	if err != nil {
		return err
	}
	defer sess.Zero()

	hostNonce, err := session.NewHostNonce()
	if err != nil {
		return err
	}
	var checkResp cktap.CheckResponse
	if err := c.client.Call(cktap.NewCheckRequest(hostNonce, sess.Epubkey), &checkResp); err != nil {
		return err
	}

	if err := session.VerifyResponse(checkResp.Sig, readDigest(c.CardNonce, hostNonce, c.CurrentSlot, checkResp.Pubkey), checkResp.Pubkey); err != nil {
		return err
	}
	c.CardNonce = checkResp.CardNonce

	return certchain.Verify(checkResp.Pubkey, certsResp.CertChain, TrustRoot)
}
