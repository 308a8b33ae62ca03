package card_test

import (
	"bytes"
	"testing"

	"cktap/card"
	"cktap/cardtest"
)

func openFakeSatsCard(t *testing.T) (*card.Card, *cardtest.FakeCard) {
	t.Helper()
	fc := cardtest.NewSatsCard()
	c, err := card.OpenWithTransport(fc)
	if err != nil {
		t.Fatalf("OpenWithTransport: %v", err)
	}
	return c, fc
}

func withTrustRoot(t *testing.T, fc *cardtest.FakeCard) {
	t.Helper()
	prev := card.TrustRoot
	card.TrustRoot = fc.TrustRoot()
	t.Cleanup(func() { card.TrustRoot = prev })
}

func TestOpenClassifiesSatsCard(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	if c.Kind != card.KindSatsCard {
		t.Fatalf("Kind = %v, want KindSatsCard", c.Kind)
	}
	if c.TotalSlots != 1 || c.CurrentSlot != 0 {
		t.Fatalf("slots = %d/%d, want 0/1", c.CurrentSlot, c.TotalSlots)
	}
}

func TestOpenClassifiesTapSigner(t *testing.T) {
	fc := cardtest.NewTapSigner()
	c, err := card.OpenWithTransport(fc)
	if err != nil {
		t.Fatalf("OpenWithTransport: %v", err)
	}
	if c.Kind != card.KindTapSigner {
		t.Fatalf("Kind = %v, want KindTapSigner", c.Kind)
	}
}

func TestReadUnauthenticatedSatsCard(t *testing.T) {
	c, fc := openFakeSatsCard(t)
	pubkey, err := c.Read(nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(pubkey, fc.Pubkey()) {
		t.Fatalf("Read returned %x, want %x", pubkey, fc.Pubkey())
	}
}

func TestReadRotatesCardNonceEachCall(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	first := append([]byte{}, c.CardNonce...)
	if _, err := c.Read(nil); err != nil {
		t.Fatalf("Read: %v", err)
	}
	second := append([]byte{}, c.CardNonce...)
	if bytes.Equal(first, second) {
		t.Fatal("expected CardNonce to change after a command")
	}
	if _, err := c.Read(nil); err != nil {
		t.Fatalf("Read: %v", err)
	}
	third := append([]byte{}, c.CardNonce...)
	if bytes.Equal(second, third) {
		t.Fatal("expected CardNonce to change again on a second command")
	}
}

func TestVerifyAuthenticityAcceptsMatchingTrustRoot(t *testing.T) {
	c, fc := openFakeSatsCard(t)
	withTrustRoot(t, fc)

	if err := c.VerifyAuthenticity(); err != nil {
		t.Fatalf("VerifyAuthenticity: %v", err)
	}
}

func TestVerifyAuthenticityRejectsWrongTrustRoot(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	// card.TrustRoot keeps its production default here, which will not
	// match this fake card's randomly generated chain.
	if err := c.VerifyAuthenticity(); err == nil {
		t.Fatal("expected VerifyAuthenticity to reject a chain not rooted at the configured TrustRoot")
	}
}

func TestNewSlotAdvancesCurrentSlotByOne(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	before := c.CurrentSlot
	slot, err := c.NewSlot("123456", nil)
	if err != nil {
		t.Fatalf("NewSlot: %v", err)
	}
	if slot != before+1 {
		t.Fatalf("new slot = %d, want %d", slot, before+1)
	}
	if c.CurrentSlot != before+1 {
		t.Fatalf("CurrentSlot = %d, want %d", c.CurrentSlot, before+1)
	}
}

func TestUnsealThenDumpRevealsPrivateKey(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	info, err := c.Unseal("123456", 0)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if info.State != card.SlotUnsealed {
		t.Fatalf("State = %v, want SlotUnsealed", info.State)
	}
	if len(info.Privkey) != 32 {
		t.Fatalf("Privkey length = %d, want 32", len(info.Privkey))
	}

	dumped, err := c.Dump("123456", 0)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !bytes.Equal(dumped.Privkey, info.Privkey) {
		t.Fatalf("Dump privkey %x != Unseal privkey %x", dumped.Privkey, info.Privkey)
	}
}

func TestDumpWithoutCVCHidesPrivateKey(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	if _, err := c.Unseal("123456", 0); err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	info, err := c.Dump("", 0)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if info.Privkey != nil {
		t.Fatal("expected Privkey to be hidden without CVC authentication")
	}
}

func TestWrongCVCIsRejected(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	if _, err := c.Unseal("000000", 0); err == nil {
		t.Fatal("expected wrong CVC to be rejected")
	}
}

func TestSignReturnsSignatureForCurrentSlot(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	digest := make([]byte, card.DigestSize)
	for i := range digest {
		digest[i] = byte(i)
	}
	sig, pubkey, err := c.Sign([]byte("123456"), digest, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}
	if len(pubkey) == 0 {
		t.Fatal("expected a non-empty pubkey")
	}
}

func TestDeriveOnSatsCardIsRejected(t *testing.T) {
	c, _ := openFakeSatsCard(t)
	if _, _, err := c.Derive([]byte("123456"), []uint32{0}); err == nil {
		t.Fatal("expected Derive to be rejected on SATSCARD")
	}
}
