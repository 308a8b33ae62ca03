package cardtest

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// sessionKeyFor computes the card side of the ECDH handshake against a
// host's ephemeral public key, mirroring session.Open's math from the
// other end of the same curve point.
func (f *FakeCard) sessionKeyFor(hostEpubkey []byte) ([32]byte, error) {
	hostPub, err := btcec.ParsePubKey(hostEpubkey)
	if err != nil {
		return [32]byte{}, err
	}
	curve := btcec.S256()
	x, _ := curve.ScalarMult(hostPub.X(), hostPub.Y(), f.priv.Serialize())
	return sha256.Sum256(x.Bytes()), nil
}

func xorStream(data, keystream []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ keystream[i%len(keystream)]
	}
	return out
}

func keystream(sessionKey [32]byte, n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	block := sessionKey
	for len(out) < n {
		out = append(out, block[:]...)
		block = sha256.Sum256(block[:])
	}
	return out[:n]
}

// checkCVC decrypts xcvc under sessionKey and reports whether it
// matches the card's stored CVC.
func (f *FakeCard) checkCVC(sessionKey [32]byte, xcvc []byte) bool {
	got := xorStream(xcvc, sessionKey[:])
	if len(got) != len(f.cvc) {
		return false
	}
	for i := range got {
		if got[i] != f.cvc[i] {
			return false
		}
	}
	return true
}

func sign(priv *btcec.PrivateKey, digest []byte) []byte {
	sig, err := ecdsa.SignCompact(priv, digest, true)
	if err != nil {
		panic(err)
	}
	return sig
}
