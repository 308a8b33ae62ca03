// Package ccid frames outgoing APDU payloads as USB-IF CCID "XfrBlock"
// messages and parses the resulting DataBlock/SlotStatus responses,
// owning the CCID sequence counter.
package ccid

import (
	"encoding/binary"

	"cktap/ckerr"
	"cktap/transport"
)

// CCID message types.
const (
	msgPowerOn       byte = 0x62
	msgGetSlotStatus byte = 0x65
	msgXfrBlock      byte = 0x6F

	msgDataBlock  byte = 0x80
	msgSlotStatus byte = 0x81
)

const headerLen = 10

// Client owns one CCID-framed link to a single card slot over a raw
// transport, and the monotonically increasing 8-bit sequence counter.
type Client struct {
	t   transport.Transport
	seq byte
}

// New wraps a transport with CCID framing.
func New(t transport.Transport) *Client {
	return &Client{t: t}
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.t.Close()
}

func (c *Client) nextSeq() byte {
	s := c.seq
	c.seq++
	return s
}

func frame(msgType byte, slot, seq byte, specific [3]byte, payload []byte) []byte {
	buf := make([]byte, headerLen+len(payload))
	buf[0] = msgType
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(payload)))
	buf[5] = slot
	buf[6] = seq
	copy(buf[7:10], specific[:])
	copy(buf[headerLen:], payload)
	return buf
}

// PowerOn sends a PowerOn request. Most readers
// auto-power the card on connect; this is exposed for the readers that
// don't. Nothing in the driver calls it.
func (c *Client) PowerOn() ([]byte, error) {
	resp, err := c.roundTrip(msgPowerOn, nil)
	if err != nil {
		return nil, err
	}
	return resp.payload, nil
}

// GetSlotStatus sends a GetSlotStatus request, used to resync after a
// cancelled command.
func (c *Client) GetSlotStatus() error {
	_, err := c.roundTrip(msgGetSlotStatus, nil)
	return err
}

// Transact frames payload as an XfrBlock request, sends it, and returns
// the raw APDU response bytes carried in the matching DataBlock. It
// implements apdu.Link.
func (c *Client) Transact(payload []byte) ([]byte, error) {
	resp, err := c.roundTrip(msgXfrBlock, payload)
	if err != nil {
		return nil, err
	}
	return resp.payload, nil
}

type response struct {
	msgType byte
	payload []byte
	status  byte
	err     byte
}

func (c *Client) roundTrip(msgType byte, payload []byte) (*response, error) {
	seq := c.nextSeq()
	req := frame(msgType, 0, seq, [3]byte{}, payload)
	if err := c.t.Write(req); err != nil {
		return nil, err
	}
	raw, err := c.t.Read()
	if err != nil {
		return nil, err
	}
	return parse(msgType, raw)
}

// parse validates and unpacks a raw CCID response.
// requestType selects which response type is expected: XfrBlock expects
// DataBlock, PowerOn/GetSlotStatus expect SlotStatus or DataBlock.
func parse(requestType byte, raw []byte) (*response, error) {
	if len(raw) < headerLen {
		return nil, ckerr.New(ckerr.Ccid, "response shorter than CCID header: %d bytes", len(raw))
	}

	msgType := raw[0]
	length := binary.LittleEndian.Uint32(raw[1:5])
	// byte 6 (sequence) is intentionally not matched: CCID is treated as
	// single-outstanding here, and sequence numbers are not explicitly
	// correlated across request/response.
	status := raw[7]
	errByte := raw[8]
	chain := raw[9]

	if requestType == msgXfrBlock && msgType != msgDataBlock {
		return nil, ckerr.New(ckerr.Ccid, "expected DataBlock (0x80), got message type 0x%02X", msgType)
	}
	if requestType != msgXfrBlock && msgType != msgSlotStatus && msgType != msgDataBlock {
		return nil, ckerr.New(ckerr.Ccid, "unexpected CCID message type 0x%02X", msgType)
	}

	if chain != 0 {
		// T=1 I-block chaining is not exercised by this driver; fail fast
		// rather than guess at reassembly.
		return nil, ckerr.New(ckerr.Ccid, "non-zero chain parameter 0x%02X not supported", chain)
	}

	iccStatus := status & 0x03
	cmdStatus := (status >> 6) & 0x03
	if cmdStatus == 1 { // failed
		return nil, ckerr.New(ckerr.Ccid, "ICC error: status=0x%02X error=0x%02X", status, errByte)
	}
	if iccStatus == 2 { // no ICC present
		return nil, ckerr.New(ckerr.Ccid, "no card present in slot (status=0x%02X)", status)
	}

	end := headerLen + int(length)
	if end > len(raw) {
		return nil, ckerr.New(ckerr.Ccid, "CCID payload length %d exceeds packet size %d", length, len(raw)-headerLen)
	}

	return &response{
		msgType: msgType,
		payload: raw[headerLen:end],
		status:  status,
		err:     errByte,
	}, nil
}
