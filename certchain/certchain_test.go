package certchain

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

func signCompact(t *testing.T, priv *btcec.PrivateKey, digest []byte) []byte {
	t.Helper()
	sig, err := ecdsa.SignCompact(priv, digest, true)
	if err != nil {
		t.Fatalf("SignCompact: %v", err)
	}
	return sig
}

func buildChain(t *testing.T, cardPriv *btcec.PrivateKey, signers []*btcec.PrivateKey) [][]byte {
	t.Helper()
	chain := make([][]byte, len(signers))
	digest := certDigest(cardPriv.PubKey().SerializeCompressed())
	for i, signer := range signers {
		chain[i] = signCompact(t, signer, digest)
		sum := sha256.Sum256(signer.PubKey().SerializeCompressed())
		digest = sum[:]
	}
	return chain
}

func TestVerify(t *testing.T) {
	cardPriv, _ := btcec.NewPrivateKey()
	intermediate, _ := btcec.NewPrivateKey()
	root, _ := btcec.NewPrivateKey()
	impostor, _ := btcec.NewPrivateKey()
	cardPub := cardPriv.PubKey().SerializeCompressed()
	rootPub := root.PubKey().SerializeCompressed()

	cases := []struct {
		name    string
		chain   func() [][]byte
		root    []byte
		wantErr bool
	}{
		{
			name:    "valid chain",
			chain:   func() [][]byte { return buildChain(t, cardPriv, []*btcec.PrivateKey{intermediate, root}) },
			root:    rootPub,
			wantErr: false,
		},
		{
			name:    "wrong root",
			chain:   func() [][]byte { return buildChain(t, cardPriv, []*btcec.PrivateKey{intermediate, root}) },
			root:    impostor.PubKey().SerializeCompressed(),
			wantErr: true,
		},
		{
			name: "tampered link",
			chain: func() [][]byte {
				chain := buildChain(t, cardPriv, []*btcec.PrivateKey{intermediate, root})
				chain[0][10] ^= 0xFF
				return chain
			},
			root:    rootPub,
			wantErr: true,
		},
		{
			name:    "empty chain",
			chain:   func() [][]byte { return nil },
			root:    FactoryRoot,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Verify(cardPub, tc.chain(), tc.root)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Verify: err=%v, wantErr=%v", err, tc.wantErr)
			}
		})
	}
}
