package card

import (
	"github.com/btcsuite/btcutil/hdkeychain"

	"cktap/ckerr"
	"cktap/cktap"
	"cktap/session"
)

// ChangeCVC rotates a TAPSIGNER's CVC to newCVC, encrypting both the
// old and new values under the same session key.
func (c *Card) ChangeCVC(cvc, newCVC []byte) error {
	if c.Kind != KindTapSigner {
		return ckerr.New(ckerr.CkTapError, "change is only valid on TAPSIGNER")
	}
	if err := session.ValidateCVC(newCVC); err != nil {
		return err
	}
	if err := c.requireAuthDelay(); err != nil {
		return err
	}

	sess, _, xcvc, err := c.authSession(cvc)
	if err != nil {
		return err
	}
	defer sess.Zero()

	req := cktap.NewChangeRequest(sess.Epubkey, xcvc, sess.EncryptCVC(newCVC))
	var resp cktap.ChangeResponse
	if err := c.client.Call(req, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return ckerr.New(ckerr.CkTapError, "card reported change failure without an error reply")
	}
	return nil
}

// Xpub fetches the extended public key at the card's current derivation
// (or the master key, if master is true), parsing it with hdkeychain to
// confirm it's well-formed BIP32 before handing it back.
func (c *Card) Xpub(cvc []byte, master bool) (*hdkeychain.ExtendedKey, error) {
	if err := c.requireAuthDelay(); err != nil {
		return nil, err
	}

	sess, _, xcvc, err := c.authSession(cvc)
	if err != nil {
		return nil, err
	}
	defer sess.Zero()

	req := cktap.NewXpubRequest(sess.Epubkey, xcvc, master)
	var resp cktap.XpubResponse
	if err := c.client.Call(req, &resp); err != nil {
		return nil, err
	}

	xpub, err := hdkeychain.NewKeyFromString(string(resp.Xpub))
	if err != nil {
		return nil, ckerr.Wrap(ckerr.CkTapError, err, "parse returned xpub")
	}
	return xpub, nil
}

// Backup fetches the card's encrypted offline-recovery payload and
// decrypts it under the session key.
func (c *Card) Backup(cvc []byte) ([]byte, error) {
	if err := c.requireAuthDelay(); err != nil {
		return nil, err
	}

	sess, _, xcvc, err := c.authSession(cvc)
	if err != nil {
		return nil, err
	}
	defer sess.Zero()

	req := cktap.NewBackupRequest(sess.Epubkey, xcvc)
	var resp cktap.BackupResponse
	if err := c.client.Call(req, &resp); err != nil {
		return nil, err
	}
	return sess.DecryptPayload(resp.Data), nil
}
