package card_test

import (
	"bytes"
	"testing"

	"cktap/card"
	"cktap/cardtest"
)

func openFakeTapSigner(t *testing.T) *card.Card {
	t.Helper()
	c, err := card.OpenWithTransport(cardtest.NewTapSigner())
	if err != nil {
		t.Fatalf("OpenWithTransport: %v", err)
	}
	return c
}

func TestTapSignerReadRequiresCVC(t *testing.T) {
	c := openFakeTapSigner(t)
	if _, err := c.Read(nil); err == nil {
		t.Fatal("expected TAPSIGNER read without a CVC to be rejected")
	}
	if _, err := c.Read([]byte("123456")); err != nil {
		t.Fatalf("Read with CVC: %v", err)
	}
}

func TestTapSignerDerive(t *testing.T) {
	c := openFakeTapSigner(t)
	pubkey, chainCode, err := c.Derive([]byte("123456"), []uint32{0, 1})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if len(pubkey) == 0 {
		t.Fatal("expected a non-empty derived pubkey")
	}
	if len(chainCode) != 32 {
		t.Fatalf("chain code length = %d, want 32", len(chainCode))
	}
	if len(c.Path) != 2 || c.Path[1] != 1 {
		t.Fatalf("Path not updated: %v", c.Path)
	}
}

func TestTapSignerChangeCVCThenOldCVCFails(t *testing.T) {
	c := openFakeTapSigner(t)
	if err := c.ChangeCVC([]byte("123456"), []byte("654321")); err != nil {
		t.Fatalf("ChangeCVC: %v", err)
	}
	if _, err := c.Read([]byte("123456")); err == nil {
		t.Fatal("expected the old CVC to be rejected after a change")
	}
	if _, err := c.Read([]byte("654321")); err != nil {
		t.Fatalf("expected the new CVC to be accepted: %v", err)
	}
}

func TestTapSignerXpubParses(t *testing.T) {
	c := openFakeTapSigner(t)
	xpub, err := c.Xpub([]byte("123456"), false)
	if err != nil {
		t.Fatalf("Xpub: %v", err)
	}
	if xpub == nil {
		t.Fatal("expected a parsed extended key")
	}
}

func TestTapSignerBackupDecrypts(t *testing.T) {
	c := openFakeTapSigner(t)
	data, err := c.Backup([]byte("123456"))
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("fake-backup:")) {
		t.Fatalf("decrypted backup data doesn't look right: %x", data)
	}
}

func TestNewSlotOnTapSignerIsRejected(t *testing.T) {
	c := openFakeTapSigner(t)
	if _, err := c.NewSlot("123456", nil); err == nil {
		t.Fatal("expected new to be rejected on TAPSIGNER")
	}
}
