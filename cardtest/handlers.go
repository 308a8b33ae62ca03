package cardtest

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/fxamacker/cbor/v2"

	"cktap/ckerr"
	"cktap/cktap"
)

func (f *FakeCard) handleRead(body []byte) []byte {
	var req cktap.ReadRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad read request", ckerr.CodeBadParameter)
	}
	if len(req.Xcvc) > 0 {
		if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
			return f.errorReply("bad CVC", ckerr.CodeBadCvc)
		}
	}

	pubkey := f.activePubkey()
	d := sha256Sum(opendimePrefix, f.cardNonce, req.Nonce, []byte{byte(f.currentSlot)}, pubkey)
	sig := sign(f.priv, d)
	resp := cktap.ReadResponse{Sig: sig, Pubkey: pubkey, CardNonce: f.bumpNonce()}
	return mustMarshal(resp)
}

func (f *FakeCard) handleCheck(body []byte) []byte {
	var req cktap.CheckRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad check request", ckerr.CodeBadParameter)
	}
	pubkey := f.priv.PubKey().SerializeCompressed()
	d := sha256Sum(opendimePrefix, f.cardNonce, req.Nonce, []byte{byte(f.currentSlot)}, pubkey)
	sig := sign(f.priv, d)
	resp := cktap.CheckResponse{Sig: sig, Pubkey: pubkey, CardNonce: f.bumpNonce()}
	return mustMarshal(resp)
}

func (f *FakeCard) handleCerts() []byte {
	chain := make([][]byte, len(f.certSigners))
	subject := f.priv.PubKey().SerializeCompressed()
	d := sha256Sum(subject)
	for i, signer := range f.certSigners {
		chain[i] = sign(signer, d)
		subjectPub := signer.PubKey().SerializeCompressed()
		d = sha256Sum(subjectPub)
	}
	resp := cktap.CertsResponse{CertChain: chain, CardNonce: f.cardNonce}
	return mustMarshal(resp)
}

func (f *FakeCard) handleWait() []byte {
	if f.authDelay > 0 {
		f.authDelay--
	}
	return mustMarshal(cktap.WaitResponse{Success: true, AuthDelay: f.authDelay})
}

func (f *FakeCard) handleDerive(body []byte) []byte {
	var req cktap.DeriveRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad derive request", ckerr.CodeBadParameter)
	}
	if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
		return f.errorReply("bad CVC", ckerr.CodeBadCvc)
	}
	f.path = req.Path

	sessionKey, _ := f.sessionKeyFor(req.Epubkey)
	chainCode := randomBytes(32)
	derivedPub := f.priv.PubKey().SerializeCompressed() // a real card would derive a child key; this fake reuses identity for simplicity
	f.derivePub = derivedPub
	encChainCode := xorStream(chainCode, keystream(sessionKey, len(chainCode)))

	d := sha256Sum(opendimePrefix, f.cardNonce, req.Nonce, encChainCode, derivedPub)
	sig := sign(f.priv, d)
	resp := cktap.DeriveResponse{
		Sig:       sig,
		ChainCode: encChainCode,
		Pubkey:    derivedPub,
		CardNonce: f.bumpNonce(),
	}
	return mustMarshal(resp)
}

func (f *FakeCard) handleNew(body []byte) []byte {
	var req cktap.NewSlotRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad new request", ckerr.CodeBadParameter)
	}
	if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
		return f.errorReply("bad CVC", ckerr.CodeBadCvc)
	}
	if req.Slot != f.currentSlot {
		return f.errorReply("wrong slot", ckerr.CodeBadSlot)
	}
	slotPriv := mustGenKey()
	f.slots = append(f.slots, &Slot{Sealed: true, priv: slotPriv})
	f.currentSlot++

	resp := cktap.NewSlotResponse{Slot: f.currentSlot, CardNonce: f.bumpNonce()}
	return mustMarshal(resp)
}

func (f *FakeCard) handleUnseal(body []byte) []byte {
	var req cktap.UnsealRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad unseal request", ckerr.CodeBadParameter)
	}
	if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
		return f.errorReply("bad CVC", ckerr.CodeBadCvc)
	}
	if req.Slot < 0 || req.Slot >= len(f.slots) {
		return f.errorReply("bad slot", ckerr.CodeBadSlot)
	}
	slot := f.slots[req.Slot]
	if !slot.Sealed {
		return f.errorReply("already unsealed", ckerr.CodeBadSlot)
	}
	slot.Sealed = false
	slot.Used = true
	slot.masterPub = slot.priv.PubKey().SerializeCompressed()
	slot.chainCode = randomBytes(32)

	sessionKey, _ := f.sessionKeyFor(req.Epubkey)
	ks := keystream(sessionKey, 32)
	resp := cktap.UnsealResponse{
		Slot:         req.Slot,
		Privkey:      xorStream(slot.priv.Serialize(), ks),
		Pubkey:       slot.priv.PubKey().SerializeCompressed(),
		MasterPubkey: slot.masterPub,
		ChainCode:    xorStream(slot.chainCode, ks),
		CardNonce:    f.bumpNonce(),
	}
	return mustMarshal(resp)
}

func (f *FakeCard) handleDump(body []byte) []byte {
	var req cktap.DumpRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad dump request", ckerr.CodeBadParameter)
	}
	if req.Slot < 0 || req.Slot >= len(f.slots) {
		return f.errorReply("bad slot", ckerr.CodeBadSlot)
	}
	slot := f.slots[req.Slot]

	resp := cktap.DumpResponse{
		Slot:      req.Slot,
		Sealed:    slot.Sealed,
		Used:      slot.Used,
		Pubkey:    slot.priv.PubKey().SerializeCompressed(),
		CardNonce: f.bumpNonce(),
	}
	if !slot.Sealed && len(req.Xcvc) > 0 && f.verifyXcvc(req.Epubkey, req.Xcvc) {
		sessionKey, _ := f.sessionKeyFor(req.Epubkey)
		ks := keystream(sessionKey, 32)
		resp.Privkey = xorStream(slot.priv.Serialize(), ks)
		resp.MasterPubkey = slot.masterPub
		resp.ChainCode = xorStream(slot.chainCode, ks)
	}
	return mustMarshal(resp)
}

func (f *FakeCard) handleSign(body []byte) []byte {
	var req cktap.SignRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad sign request", ckerr.CodeBadParameter)
	}
	if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
		return f.errorReply("bad CVC", ckerr.CodeBadCvc)
	}
	signer := f.priv
	if !f.Tapsigner && len(f.slots) > 0 {
		signer = f.slots[f.currentSlot].priv
	}
	sig := sign(signer, req.Digest)
	resp := cktap.SignResponse{Sig: sig, Pubkey: signer.PubKey().SerializeCompressed(), CardNonce: f.bumpNonce()}
	return mustMarshal(resp)
}

func (f *FakeCard) handleChange(body []byte) []byte {
	var req cktap.ChangeRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad change request", ckerr.CodeBadParameter)
	}
	if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
		return f.errorReply("bad CVC", ckerr.CodeBadCvc)
	}
	sessionKey, _ := f.sessionKeyFor(req.Epubkey)
	f.cvc = xorStream(req.Data, keystream(sessionKey, len(req.Data)))
	return mustMarshal(cktap.ChangeResponse{Success: true})
}

func (f *FakeCard) handleXpub(body []byte) []byte {
	var req cktap.XpubRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad xpub request", ckerr.CodeBadParameter)
	}
	if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
		return f.errorReply("bad CVC", ckerr.CodeBadCvc)
	}
	const fakeXpub = "xpub661MyMwAqRbcFtXgS5sYJABqqG9YLmC4Q1Rdap9gSE8NqtwybGhePY2gZ29ESFjqJoCu1Rupje8YtGqsefD265TMg7usUDFdp6W1EGMcet8"
	return mustMarshal(cktap.XpubResponse{Xpub: []byte(fakeXpub)})
}

func (f *FakeCard) handleBackup(body []byte) []byte {
	var req cktap.BackupRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return f.errorReply("bad backup request", ckerr.CodeBadParameter)
	}
	if !f.verifyXcvc(req.Epubkey, req.Xcvc) {
		return f.errorReply("bad CVC", ckerr.CodeBadCvc)
	}
	sessionKey, _ := f.sessionKeyFor(req.Epubkey)
	plaintext := append([]byte("fake-backup:"), f.priv.Serialize()...)
	return mustMarshal(cktap.BackupResponse{Data: xorStream(plaintext, keystream(sessionKey, len(plaintext)))})
}

// verifyXcvc derives the session key against epubkey and checks xcvc
// decrypts to the card's current CVC.
func (f *FakeCard) verifyXcvc(epubkey, xcvc []byte) bool {
	sessionKey, err := f.sessionKeyFor(epubkey)
	if err != nil {
		return false
	}
	return f.checkCVC(sessionKey, xcvc)
}

func mustGenKey() *btcec.PrivateKey {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		panic(err)
	}
	return priv
}
