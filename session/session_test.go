package session

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

func TestOpenDerivesMatchingSharedSecret(t *testing.T) {
	cardPriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate card key: %v", err)
	}
	cardPub := cardPriv.PubKey().SerializeCompressed()

	sess, err := Open(cardPub)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Zero()

	hostEpub, err := btcec.ParsePubKey(sess.Epubkey)
	if err != nil {
		t.Fatalf("parse host epubkey: %v", err)
	}
	curve := btcec.S256()
	x, _ := curve.ScalarMult(hostEpub.X(), hostEpub.Y(), cardPriv.Serialize())
	want := sha256.Sum256(x.Bytes())

	if sess.SessionKey != want {
		t.Fatalf("session key mismatch: got %x want %x", sess.SessionKey, want)
	}
}

func TestEncryptDecryptCVCRoundTrip(t *testing.T) {
	cardPriv, _ := btcec.NewPrivateKey()
	sess, err := Open(cardPriv.PubKey().SerializeCompressed())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Zero()

	cvc := []byte("123456")
	xcvc := sess.EncryptCVC(cvc)
	if len(xcvc) != len(cvc) {
		t.Fatalf("xcvc length %d, want %d", len(xcvc), len(cvc))
	}

	plain := xorStream(xcvc, sess.SessionKey[:])
	for i := range cvc {
		if plain[i] != cvc[i] {
			t.Fatalf("round trip mismatch at byte %d: got %x want %x", i, plain[i], cvc[i])
		}
	}
}

func TestDecryptPayloadLongerThanSessionKey(t *testing.T) {
	cardPriv, _ := btcec.NewPrivateKey()
	sess, err := Open(cardPriv.PubKey().SerializeCompressed())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Zero()

	plaintext := make([]byte, 64)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}
	ciphertext := xorStream(plaintext, sess.keystream(len(plaintext)))
	got := sess.DecryptPayload(ciphertext)
	for i := range plaintext {
		if got[i] != plaintext[i] {
			t.Fatalf("byte %d: got %x want %x", i, got[i], plaintext[i])
		}
	}
}

func TestValidateCVCLength(t *testing.T) {
	cases := []struct {
		name string
		cvc  string
		ok   bool
	}{
		{"too short (5 chars)", "12345", false},
		{"minimum valid (6 chars)", "123456", true},
		{"too long (33 chars)", "123456789012345678901234567890123", false},
		{"maximum valid (32 chars)", "12345678901234567890123456789012", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCVC([]byte(tc.cvc))
			if (err == nil) != tc.ok {
				t.Errorf("ValidateCVC(%q): err=%v, want ok=%v", tc.cvc, err, tc.ok)
			}
		})
	}
}

func TestVerifyResponseRejectsWrongSigner(t *testing.T) {
	signerA, _ := btcec.NewPrivateKey()
	signerB, _ := btcec.NewPrivateKey()
	digest := sha256.Sum256([]byte("some message"))

	sig, err := Sign(signerA, digest[:])
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if err := VerifyResponse(sig, digest[:], signerA.PubKey().SerializeCompressed()); err != nil {
		t.Fatalf("expected signature to verify against its own signer: %v", err)
	}
	if err := VerifyResponse(sig, digest[:], signerB.PubKey().SerializeCompressed()); err == nil {
		t.Fatal("expected signature to be rejected against a different signer's pubkey")
	}
}
