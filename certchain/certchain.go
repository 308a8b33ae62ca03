// Package certchain verifies a card's certificate chain back to the
// compiled-in Coinkite factory root, the same iterative
// recover-then-compare technique Ethereum's accounts package uses to
// turn a signature into an address.
package certchain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"cktap/ckerr"
	"cktap/session"
)

// FactoryRoot is Coinkite's compiled-in root public key, the anchor
// every card's certificate chain must recover to. This is the
// well-known constant published by Coinkite; it is not a secret.
var FactoryRoot = mustParseHex(
	"03028a0e89e70d0ec0d932053a89ab1da7d9182bdc6d23b0c8c13c5c11b7d1f71",
)

// Verify walks cert_chain from the card's identity key up to root.
// Only signatures travel on the wire: each signature recovers the next
// key up the chain, which is in turn the key whose own signature
// produced the previous link, so no intermediate public key ever needs
// to be transmitted or independently supplied. Verification is a pure
// function of the card's pubkey history: any broken link or a final
// recovered key other than root is CertChainInvalid. Production
// callers pass FactoryRoot; cardtest's fake card signs its own test
// chain against a throwaway root it generates itself.
func Verify(cardPubkey []byte, certChain [][]byte, root []byte) error {
	if len(certChain) == 0 {
		return ckerr.New(ckerr.CertChainInvalid, "certificate chain is empty")
	}

	digest := certDigest(cardPubkey)
	var recovered []byte

	for i, sig := range certChain {
		next, err := recoverSigner(sig, digest)
		if err != nil {
			return ckerr.Wrap(ckerr.CertChainInvalid, err, "recover signer at chain link %d", i)
		}
		recovered = next
		digest = sha256Sum(recovered)
	}

	if !bytes.Equal(recovered, root) {
		return ckerr.New(ckerr.CertChainInvalid, "chain does not terminate at the expected root")
	}
	return nil
}

// certDigest is the message the first link signs: SHA-256 over the
// card's current public key alone. No nonce enters the chain
// signatures; nonce binding for this exchange is the job of the check
// response verified separately before Verify is ever called.
func certDigest(cardPubkey []byte) []byte {
	return sha256Sum(cardPubkey)
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// recoverSigner recovers the signer's compressed public key from a
// 65-byte compact signature, reusing session's recovery implementation
// so certchain and response verification share one code path.
func recoverSigner(sig, digest []byte) ([]byte, error) {
	if len(sig) != 65 {
		return nil, ckerr.New(ckerr.CertChainInvalid, "certificate signature must be 65 bytes, got %d", len(sig))
	}
	pub, _, err := session.RecoverCompactPubkey(sig, digest)
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

func mustParseHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
