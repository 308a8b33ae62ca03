// Package apdu serializes ISO-7816-4 command APDUs and assembles
// fragmented responses via GET RESPONSE, stripping the trailing status
// word before handing the payload to the cktap codec.
package apdu

import (
	"io"

	"cktap/ckerr"
)

// Instruction bytes used by cktap.
const (
	insSelect      byte = 0xA4
	insCktap       byte = 0xCB
	insGetResponse byte = 0xC0
)

// AID is the cktap applet identifier, "\xf0CkTapCard".
var AID = []byte{0xF0, 0x43, 0x6B, 0x54, 0x61, 0x70, 0x43, 0x61, 0x72, 0x64}

// Link is the transport the APDU layer is built on: one raw APDU in,
// one raw APDU response out. ccid.Client implements this over CCID
// framing; RawLink implements it directly over the emulator socket.
type Link interface {
	Transact(apdu []byte) ([]byte, error)
}

// Response is a parsed APDU response: data plus the two status-word
// bytes.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// SW returns the status word as a single uint16.
func (r *Response) SW() uint16 { return uint16(r.SW1)<<8 | uint16(r.SW2) }

// IsOK reports whether the response is 0x9000.
func (r *Response) IsOK() bool { return r.SW1 == 0x90 && r.SW2 == 0x00 }

// HasMoreData reports SW1 == 0x61.
func (r *Response) HasMoreData() bool { return r.SW1 == 0x61 }

// Client drives one cktap applet session over a Link.
type Client struct {
	link Link
}

// New wraps a Link (a ccid.Client or a raw emulator passthrough).
func New(link Link) *Client {
	return &Client{link: link}
}

// Close releases the underlying link, if it supports closing.
func (c *Client) Close() error {
	if closer, ok := c.link.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// resyncer is implemented by links that can be asked to resync their
// framing layer out of band, such as ccid.Client's GetSlotStatus.
// RawLink and other emulator passthroughs don't implement it, in which
// case Resync is a no-op.
type resyncer interface {
	GetSlotStatus() error
}

// Resync asks the underlying link to resynchronize after a cancelled
// or failed command, if it supports that.
func (c *Client) Resync() error {
	if r, ok := c.link.(resyncer); ok {
		return r.GetSlotStatus()
	}
	return nil
}

func buildCommand(cla, ins, p1, p2 byte, data []byte) []byte {
	apdu := make([]byte, 0, 6+len(data))
	apdu = append(apdu, cla, ins, p1, p2)
	if len(data) > 0 {
		apdu = append(apdu, byte(len(data)))
		apdu = append(apdu, data...)
	} else {
		apdu = append(apdu, 0x00)
	}
	apdu = append(apdu, 0x00) // Le: allow up to 256 bytes back
	return apdu
}

func (c *Client) send(apdu []byte) (*Response, error) {
	raw, err := c.link.Transact(apdu)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 {
		return nil, ckerr.New(ckerr.ApduStatus, "APDU response shorter than a status word: %d bytes", len(raw))
	}
	return &Response{
		Data: raw[:len(raw)-2],
		SW1:  raw[len(raw)-2],
		SW2:  raw[len(raw)-1],
	}, nil
}

// getResponse issues GET RESPONSE for the given expected length.
func (c *Client) getResponse(le byte) (*Response, error) {
	apdu := []byte{0x00, insGetResponse, 0x00, 0x00, le}
	return c.send(apdu)
}

// transact sends one command APDU and chains GET RESPONSE until a
// terminal status word is reached, returning the
// concatenated payload on 0x9000 and a taxonomy error on anything else.
func (c *Client) transact(cla, ins, p1, p2 byte, data []byte) ([]byte, error) {
	resp, err := c.send(buildCommand(cla, ins, p1, p2, data))
	if err != nil {
		return nil, err
	}

	var out []byte
	out = append(out, resp.Data...)

	for resp.HasMoreData() {
		resp, err = c.getResponse(resp.SW2)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Data...)
	}

	if !resp.IsOK() {
		return nil, ckerr.New(ckerr.ApduStatus, "unexpected status word SW=%04X", resp.SW())
	}

	return out, nil
}

// Select issues SELECT by AID and returns the initial cktap status CBOR.
func (c *Client) Select() ([]byte, error) {
	return c.transact(0x00, insSelect, 0x04, 0x00, AID)
}

// SendCBOR wraps a CBOR-encoded cktap command in the command APDU
// envelope (INS=0xCB, P1=P2=0x00) and returns the decoded response
// payload.
func (c *Client) SendCBOR(body []byte) ([]byte, error) {
	return c.transact(0x00, insCktap, 0x00, 0x00, body)
}
