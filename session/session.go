// Package session implements the per-command cryptographic handshake:
// ephemeral ECDH with the card, XOR-stream encryption of the CVC and
// private payloads, and the signature verification that binds a card
// response to the exact request.
package session

import (
	"crypto/rand"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"cktap/ckerr"
)

// NonceSize is the length of both CardNonce and HostNonce.
const NonceSize = 16

// MinCVCLen/MaxCVCLen bound the CvcBytes digit count across both
// products.
const (
	MinCVCLen = 6
	MaxCVCLen = 32
)

// ValidateCVC checks a caller-supplied CVC's length.
func ValidateCVC(cvc []byte) error {
	if len(cvc) < MinCVCLen || len(cvc) > MaxCVCLen {
		return ckerr.New(ckerr.CkTapError, "CVC must be %d-%d characters, got %d", MinCVCLen, MaxCVCLen, len(cvc))
	}
	return nil
}

// NewHostNonce generates a fresh 16-byte HostNonce.
func NewHostNonce() ([]byte, error) {
	n := make([]byte, NonceSize)
	if _, err := rand.Read(n); err != nil {
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "generate host nonce")
	}
	return n, nil
}

// Session is one ephemeral ECDH handshake, good for exactly one
// authenticated command.
type Session struct {
	priv       *btcec.PrivateKey
	Epubkey    []byte   // compressed, sent to the card as `epubkey`
	SessionKey [32]byte // SHA-256 of the ECDH shared x-coordinate
}

// Open performs the ECDH handshake against the card's current public
// key: generate an ephemeral keypair, compute
// the shared secret, and derive the one-time session key.
func Open(cardPubkey []byte) (*Session, error) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, ckerr.Wrap(ckerr.TransportIo, err, "generate ephemeral keypair")
	}

	cardPub, err := btcec.ParsePubKey(cardPubkey)
	if err != nil {
		priv.Zero()
		return nil, ckerr.Wrap(ckerr.BadSignature, err, "parse card public key")
	}

	curve := btcec.S256()
	x, _ := curve.ScalarMult(cardPub.X(), cardPub.Y(), priv.Serialize())

	sessionKey := sha256.Sum256(x.Bytes())

	return &Session{
		priv:       priv,
		Epubkey:    priv.PubKey().SerializeCompressed(),
		SessionKey: sessionKey,
	}, nil
}

// EncryptCVC computes xcvc = cvc XOR session_key[:len(cvc)].
func (s *Session) EncryptCVC(cvc []byte) []byte {
	return xorStream(cvc, s.SessionKey[:])
}

// DecryptPayload recovers a private response field (privkey, chain_code,
// backup data) XORed under the session key's keystream. Fields longer than 32 bytes consume additional keystream
// material derived by repeated SHA-256 chaining, since the session key
// alone is only 32 bytes.
func (s *Session) DecryptPayload(ciphertext []byte) []byte {
	return xorStream(ciphertext, s.keystream(len(ciphertext)))
}

func (s *Session) keystream(n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	block := s.SessionKey
	for len(out) < n {
		out = append(out, block[:]...)
		block = sha256.Sum256(block[:])
	}
	return out[:n]
}

func xorStream(data, keystream []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ keystream[i%len(keystream)]
	}
	return out
}

// Zero destroys the ephemeral private key and session key material.
// Callers must defer Zero() immediately after Open succeeds.
func (s *Session) Zero() {
	if s.priv != nil {
		s.priv.Zero()
	}
	for i := range s.SessionKey {
		s.SessionKey[i] = 0
	}
}

// RecoverCompactPubkey recovers the public key that produced a 65-byte
// compact signature over digest. Shared by VerifyResponse and by
// certchain, which walks a chain of these recoveries up to the factory
// root.
func RecoverCompactPubkey(sig, digest []byte) (*btcec.PublicKey, bool, error) {
	pub, wasCompressed, err := ecdsa.RecoverCompact(sig, digest)
	if err != nil {
		return nil, false, ckerr.Wrap(ckerr.BadSignature, err, "recover public key from signature")
	}
	return pub, wasCompressed, nil
}

// VerifyResponse checks a card response's 65-byte compact recoverable
// signature over digest, and confirms it recovers to expectedPubkey.
func VerifyResponse(sig, digest, expectedPubkey []byte) error {
	if len(sig) != 65 {
		return ckerr.New(ckerr.BadSignature, "signature must be 65 bytes, got %d", len(sig))
	}
	recovered, _, err := RecoverCompactPubkey(sig, digest)
	if err != nil {
		return err
	}
	want, err := btcec.ParsePubKey(expectedPubkey)
	if err != nil {
		return ckerr.Wrap(ckerr.BadSignature, err, "parse expected public key")
	}
	if !recovered.IsEqual(want) {
		return ckerr.New(ckerr.BadSignature, "response signature does not bind to card's current public key")
	}
	return nil
}

// Sign produces a 65-byte compact recoverable signature; the driver
// itself never signs, and this package's tests use it to play the card
// role.
func Sign(priv *btcec.PrivateKey, digest []byte) ([]byte, error) {
	sig, err := ecdsa.SignCompact(priv, digest, true)
	if err != nil {
		return nil, ckerr.Wrap(ckerr.BadSignature, err, "sign digest")
	}
	return sig, nil
}
