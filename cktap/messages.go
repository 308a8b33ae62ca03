// Package cktap encodes typed command values to CBOR, wraps them in the
// cktap APDU envelope via the apdu package, decodes the CBOR response
// into a typed value, and maps cktap error replies to the ckerr
// taxonomy.
package cktap

// Command names.
const (
	CmdStatus = "status"
	CmdCerts  = "certs"
	CmdCheck  = "check" // internal: the read-like challenge that binds certs to this session
	CmdWait   = "wait"
	CmdNFC    = "nfc"
	CmdRead   = "read"
	CmdDerive = "derive"
	CmdSign   = "sign"
	CmdNew    = "new"
	CmdUnseal = "unseal"
	CmdDump   = "dump"
	CmdChange = "change"
	CmdXpub   = "xpub"
	CmdBackup = "backup"
)

// errorReply is the shape of every cktap failure response.
type errorReply struct {
	Error string `cbor:"error"`
	Code  int    `cbor:"code"`
}

// StatusRequest carries no fields beyond cmd.
type StatusRequest struct {
	Cmd string `cbor:"cmd"`
}

func NewStatusRequest() *StatusRequest { return &StatusRequest{Cmd: CmdStatus} }

// StatusResponse is the card's identity and capability report.
type StatusResponse struct {
	Proto      int      `cbor:"proto"`
	Ver        string   `cbor:"ver"`
	Birth      int      `cbor:"birth"`
	Slots      []int    `cbor:"slots,omitempty"` // [current, total], SATSCARD/SATSCHIP only
	Addr       string   `cbor:"addr,omitempty"`
	Path       []uint32 `cbor:"path,omitempty"` // TAPSIGNER derivation path
	Tapsigner  bool     `cbor:"tapsigner,omitempty"`
	Satschip   bool     `cbor:"satschip,omitempty"`
	NumBackups int      `cbor:"num_backups,omitempty"`
	Pubkey     []byte   `cbor:"pubkey"`
	CardNonce  []byte   `cbor:"card_nonce"`
	AuthDelay  int      `cbor:"auth_delay,omitempty"`
	NFC        bool     `cbor:"nfc,omitempty"` // NFC capability, taken as-is from the wire's "nfc" key
}

// ReadRequest asks for the current slot's (SATSCARD) or derived
// (TAPSIGNER) public key, signed against a fresh HostNonce.
type ReadRequest struct {
	Cmd     string `cbor:"cmd"`
	Nonce   []byte `cbor:"nonce"`
	Epubkey []byte `cbor:"epubkey"`
	Xcvc    []byte `cbor:"xcvc,omitempty"`
}

func NewReadRequest(nonce, epubkey, xcvc []byte) *ReadRequest {
	return &ReadRequest{Cmd: CmdRead, Nonce: nonce, Epubkey: epubkey, Xcvc: xcvc}
}

// ReadResponse carries the card-identity signature over the read digest.
type ReadResponse struct {
	Sig       []byte `cbor:"sig"`
	Pubkey    []byte `cbor:"pubkey"`
	CardNonce []byte `cbor:"card_nonce"`
}

// DeriveRequest asks TAPSIGNER to derive along path.
type DeriveRequest struct {
	Cmd     string   `cbor:"cmd"`
	Nonce   []byte   `cbor:"nonce"`
	Epubkey []byte   `cbor:"epubkey"`
	Xcvc    []byte   `cbor:"xcvc,omitempty"`
	Path    []uint32 `cbor:"path,omitempty"`
}

func NewDeriveRequest(nonce, epubkey, xcvc []byte, path []uint32) *DeriveRequest {
	return &DeriveRequest{Cmd: CmdDerive, Nonce: nonce, Epubkey: epubkey, Xcvc: xcvc, Path: path}
}

// DeriveResponse carries the card-identity signature over the derive digest.
type DeriveResponse struct {
	Sig       []byte `cbor:"sig"`
	ChainCode []byte `cbor:"chain_code"`
	Pubkey    []byte `cbor:"pubkey"`
	CardNonce []byte `cbor:"card_nonce"`
}

// CheckRequest is the pre-certs challenge that binds a cert chain
// fetch to this session.
type CheckRequest struct {
	Cmd     string `cbor:"cmd"`
	Nonce   []byte `cbor:"nonce"`
	Epubkey []byte `cbor:"epubkey"`
}

func NewCheckRequest(nonce, epubkey []byte) *CheckRequest {
	return &CheckRequest{Cmd: CmdCheck, Nonce: nonce, Epubkey: epubkey}
}

// CheckResponse is verified against the card-identity key exactly like
// ReadResponse.
type CheckResponse struct {
	Sig       []byte `cbor:"sig"`
	Pubkey    []byte `cbor:"pubkey"`
	CardNonce []byte `cbor:"card_nonce"`
}

// CertsRequest has no fields beyond cmd.
type CertsRequest struct {
	Cmd string `cbor:"cmd"`
}

func NewCertsRequest() *CertsRequest { return &CertsRequest{Cmd: CmdCerts} }

// CertsResponse is the ordered list of 65-byte recoverable signatures
// forming the certificate chain.
type CertsResponse struct {
	CertChain [][]byte `cbor:"cert_chain"`
	CardNonce []byte   `cbor:"card_nonce"`
}

// WaitRequest has no fields beyond cmd.
type WaitRequest struct {
	Cmd string `cbor:"cmd"`
}

func NewWaitRequest() *WaitRequest { return &WaitRequest{Cmd: CmdWait} }

// WaitResponse reports the remaining AuthDelay after one decrement.
type WaitResponse struct {
	Success   bool `cbor:"success"`
	AuthDelay int  `cbor:"auth_delay"`
}

// NFCRequest has no fields beyond cmd.
type NFCRequest struct {
	Cmd string `cbor:"cmd"`
}

func NewNFCRequest() *NFCRequest { return &NFCRequest{Cmd: CmdNFC} }

// NFCResponse carries the URL a phone's NFC read would resolve to.
type NFCResponse struct {
	URL string `cbor:"url"`
}

// NewSlotRequest seals a fresh SATSCARD slot or initializes TAPSIGNER.
type NewSlotRequest struct {
	Cmd       string `cbor:"cmd"`
	Epubkey   []byte `cbor:"epubkey"`
	Xcvc      []byte `cbor:"xcvc"`
	Slot      int    `cbor:"slot,omitempty"`
	ChainCode []byte `cbor:"chain_code,omitempty"`
}

func NewNewSlotRequest(epubkey, xcvc []byte, slot int, chainCode []byte) *NewSlotRequest {
	return &NewSlotRequest{Cmd: CmdNew, Epubkey: epubkey, Xcvc: xcvc, Slot: slot, ChainCode: chainCode}
}

// NewSlotResponse reports the slot now active after `new`.
type NewSlotResponse struct {
	Slot      int    `cbor:"slot"`
	CardNonce []byte `cbor:"card_nonce"`
}

// SignRequest asks the card to sign digest, optionally along a
// derivation sub-path.
type SignRequest struct {
	Cmd     string   `cbor:"cmd"`
	Epubkey []byte   `cbor:"epubkey"`
	Xcvc    []byte   `cbor:"xcvc"`
	Digest  []byte   `cbor:"digest"`
	Path    []uint32 `cbor:"path,omitempty"`
}

func NewSignRequest(epubkey, xcvc, digest []byte, path []uint32) *SignRequest {
	return &SignRequest{Cmd: CmdSign, Epubkey: epubkey, Xcvc: xcvc, Digest: digest, Path: path}
}

// SignResponse carries the raw signature; the core never verifies it,
// leaving that to the caller.
type SignResponse struct {
	Sig       []byte `cbor:"sig"`
	Pubkey    []byte `cbor:"pubkey"`
	CardNonce []byte `cbor:"card_nonce"`
}

// UnsealRequest unseals the current SATSCARD slot.
type UnsealRequest struct {
	Cmd     string `cbor:"cmd"`
	Epubkey []byte `cbor:"epubkey"`
	Xcvc    []byte `cbor:"xcvc"`
	Slot    int    `cbor:"slot"`
}

func NewUnsealRequest(epubkey, xcvc []byte, slot int) *UnsealRequest {
	return &UnsealRequest{Cmd: CmdUnseal, Epubkey: epubkey, Xcvc: xcvc, Slot: slot}
}

// UnsealResponse carries the ciphertext master privkey; the session
// layer decrypts it.
type UnsealResponse struct {
	Slot         int    `cbor:"slot"`
	Privkey      []byte `cbor:"privkey"` // XORed with session key material
	Pubkey       []byte `cbor:"pubkey"`
	MasterPubkey []byte `cbor:"master_pk"`
	ChainCode    []byte `cbor:"chain_code"`
	CardNonce    []byte `cbor:"card_nonce"`
}

// DumpRequest reads any slot's public data, and its private payload if
// the caller authenticates as the slot's owner.
type DumpRequest struct {
	Cmd     string `cbor:"cmd"`
	Epubkey []byte `cbor:"epubkey,omitempty"`
	Xcvc    []byte `cbor:"xcvc,omitempty"`
	Slot    int    `cbor:"slot"`
}

func NewDumpRequest(epubkey, xcvc []byte, slot int) *DumpRequest {
	return &DumpRequest{Cmd: CmdDump, Epubkey: epubkey, Xcvc: xcvc, Slot: slot}
}

// DumpResponse's Privkey/MasterPubkey/ChainCode are only populated when
// the slot is UNSEALED and the caller authenticated as its owner.
type DumpResponse struct {
	Slot         int    `cbor:"slot"`
	Sealed       bool   `cbor:"sealed"`
	Used         bool   `cbor:"used"`
	Addr         string `cbor:"addr,omitempty"`
	Pubkey       []byte `cbor:"pubkey,omitempty"`
	Privkey      []byte `cbor:"privkey,omitempty"`
	MasterPubkey []byte `cbor:"master_pk,omitempty"`
	ChainCode    []byte `cbor:"chain_code,omitempty"`
	CardNonce    []byte `cbor:"card_nonce"`
}

// ChangeRequest rotates the TAPSIGNER CVC.
type ChangeRequest struct {
	Cmd     string `cbor:"cmd"`
	Epubkey []byte `cbor:"epubkey"`
	Xcvc    []byte `cbor:"xcvc"` // old CVC, encrypted
	Data    []byte `cbor:"data"` // new CVC, encrypted with the same session key
}

func NewChangeRequest(epubkey, xcvc, data []byte) *ChangeRequest {
	return &ChangeRequest{Cmd: CmdChange, Epubkey: epubkey, Xcvc: xcvc, Data: data}
}

type ChangeResponse struct {
	Success bool `cbor:"success"`
}

// XpubRequest asks for the extended public key at the current (or
// master, if Master is true) derivation.
type XpubRequest struct {
	Cmd     string `cbor:"cmd"`
	Epubkey []byte `cbor:"epubkey"`
	Xcvc    []byte `cbor:"xcvc"`
	Master  bool   `cbor:"master,omitempty"`
}

func NewXpubRequest(epubkey, xcvc []byte, master bool) *XpubRequest {
	return &XpubRequest{Cmd: CmdXpub, Epubkey: epubkey, Xcvc: xcvc, Master: master}
}

type XpubResponse struct {
	Xpub []byte `cbor:"xpub"`
}

// BackupRequest asks for an encrypted offline-recovery payload.
type BackupRequest struct {
	Cmd     string `cbor:"cmd"`
	Epubkey []byte `cbor:"epubkey"`
	Xcvc    []byte `cbor:"xcvc"`
}

func NewBackupRequest(epubkey, xcvc []byte) *BackupRequest {
	return &BackupRequest{Cmd: CmdBackup, Epubkey: epubkey, Xcvc: xcvc}
}

type BackupResponse struct {
	Data []byte `cbor:"data"` // ciphertext, decrypted by the session layer
}
