package cktap

import (
	"github.com/fxamacker/cbor/v2"

	"cktap/apdu"
	"cktap/ckerr"
)

// Codec holds the canonical CBOR encode/decode modes used for every
// cktap message, the same shape as a typical CBOR-over-APDU codec
// (grounded on dc4eu-vc's mdoc.CBOREncoder).
type Codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCodec builds a Codec with canonical-sort encoding (so identical
// command values always serialize identically, which matters for any
// future MAC/signature binding over the wire bytes) and strict decoding.
func NewCodec() (*Codec, error) {
	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}
	enc, err := encOpts.EncMode()
	if err != nil {
		return nil, ckerr.Wrap(ckerr.CborEncode, err, "build CBOR encoder")
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	dec, err := decOpts.DecMode()
	if err != nil {
		return nil, ckerr.Wrap(ckerr.CborDecode, err, "build CBOR decoder")
	}

	return &Codec{enc: enc, dec: dec}, nil
}

// Client pairs a Codec with an apdu.Client, turning typed commands into
// typed responses over the wire.
type Client struct {
	codec *Codec
	apdu  *apdu.Client
}

// NewClient wires the codec on top of an apdu.Client.
func NewClient(codec *Codec, a *apdu.Client) *Client {
	return &Client{codec: codec, apdu: a}
}

// Close releases the underlying apdu.Client's link.
func (c *Client) Close() error {
	return c.apdu.Close()
}

// Resync asks the underlying link to resynchronize, if it supports
// that, then re-selects the applet.
func (c *Client) Resync() error {
	if err := c.apdu.Resync(); err != nil {
		return err
	}
	_, err := c.Select()
	return err
}

// Select selects the cktap applet and decodes the initial status CBOR.
func (c *Client) Select() (*StatusResponse, error) {
	raw, err := c.apdu.Select()
	if err != nil {
		return nil, err
	}
	var status StatusResponse
	if err := c.decode(raw, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Call encodes cmd, sends it, and decodes the response into out (a
// pointer to one of the *Response types), translating any cktap
// {error, code} reply into a ckerr.CkTapError.
func (c *Client) Call(cmd any, out any) error {
	body, err := c.codec.enc.Marshal(cmd)
	if err != nil {
		return ckerr.Wrap(ckerr.CborEncode, err, "encode %T", cmd)
	}

	raw, err := c.apdu.SendCBOR(body)
	if err != nil {
		return err
	}

	return c.decode(raw, out)
}

func (c *Client) decode(raw []byte, out any) error {
	var maybeErr errorReply
	if err := c.codec.dec.Unmarshal(raw, &maybeErr); err == nil && maybeErr.Error != "" {
		return ckerr.CardError(maybeErr.Code, maybeErr.Error)
	}

	if err := c.codec.dec.Unmarshal(raw, out); err != nil {
		return ckerr.Wrap(ckerr.CborDecode, err, "decode %T", out)
	}
	return nil
}
