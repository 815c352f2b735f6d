// Package fetch implements the smart-HTTP git-upload-pack protocol: pkt-line
// framing, ref discovery, want/have negotiation, and side-band-64k demuxing.
package fetch

import (
	"fmt"
)

// maxPktPayload is the largest payload a single pkt-line frame can carry;
// with the 4-byte length prefix the whole frame is at most 65520 (0xfff0) bytes.
const maxPktPayload = 65516

// EncodePkt frames payload as a pkt-line: a 4-byte ASCII hex length
// (including the length bytes themselves) followed by the payload.
// An empty payload still produces a non-flush "0004" frame — callers
// that mean a flush must call EncodeFlush instead.
func EncodePkt(payload []byte) ([]byte, error) {
	if len(payload) > maxPktPayload {
		return nil, fmt.Errorf("fetch: pkt-line payload of %d bytes exceeds max %d", len(payload), maxPktPayload)
	}
	out := make([]byte, 0, 4+len(payload))
	out = append(out, []byte(fmt.Sprintf("%04x", len(payload)+4))...)
	out = append(out, payload...)
	return out, nil
}

// EncodeFlush returns the flush packet "0000".
func EncodeFlush() []byte {
	return []byte("0000")
}

// pktKind distinguishes a flush packet from a data packet while decoding.
type pktKind int

const (
	pktIncomplete pktKind = iota
	pktFlush
	pktData
)

// nextPkt attempts to parse one pkt-line frame from the front of buf. It
// returns the kind of frame found, the frame's payload (for pktData), and
// the number of bytes consumed. A streaming parser calls this repeatedly,
// re-invoking once more data has arrived when it reports pktIncomplete.
func nextPkt(buf []byte) (pktKind, []byte, int, error) {
	if len(buf) < 4 {
		return pktIncomplete, nil, 0, nil
	}

	var length int
	if _, err := fmt.Sscanf(string(buf[:4]), "%04x", &length); err != nil {
		return pktIncomplete, nil, 0, fmt.Errorf("fetch: invalid pkt-line length %q: %w", buf[:4], err)
	}

	if length == 0 {
		return pktFlush, nil, 4, nil
	}
	if length < 4 {
		return pktIncomplete, nil, 0, fmt.Errorf("fetch: invalid pkt-line length %d", length)
	}
	if len(buf) < length {
		return pktIncomplete, nil, 0, nil
	}
	return pktData, buf[4:length], length, nil
}

// PktReader incrementally decodes pkt-line frames from an appended byte
// stream, so it can resume across partial reads from an HTTP response body.
type PktReader struct {
	buf []byte
}

// NewPktReader returns an empty PktReader; feed it bytes with Feed.
func NewPktReader() *PktReader {
	return &PktReader{}
}

// Feed appends newly read bytes to the pending buffer.
func (p *PktReader) Feed(b []byte) {
	p.buf = append(p.buf, b...)
}

// Next returns the next fully-buffered packet. ok is false if no complete
// packet is currently available (the caller should Feed more and retry).
// isFlush is true for a flush packet, in which case payload is nil.
func (p *PktReader) Next() (payload []byte, isFlush bool, ok bool, err error) {
	kind, data, n, err := nextPkt(p.buf)
	if err != nil {
		return nil, false, false, err
	}
	switch kind {
	case pktIncomplete:
		return nil, false, false, nil
	case pktFlush:
		p.buf = p.buf[n:]
		return nil, true, true, nil
	default:
		out := make([]byte, len(data))
		copy(out, data)
		p.buf = p.buf[n:]
		return out, false, true, nil
	}
}

// DecodeAll decodes every pkt-line frame in a complete, in-memory buffer,
// skipping flush packets, and returns the data packets in order. Used for
// the ref-advertisement response, which is read fully before parsing.
func DecodeAll(buf []byte) ([][]byte, error) {
	r := NewPktReader()
	r.Feed(buf)

	var packets [][]byte
	for {
		payload, isFlush, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			if len(r.buf) != 0 {
				return nil, fmt.Errorf("fetch: trailing incomplete pkt-line frame (%d bytes)", len(r.buf))
			}
			return packets, nil
		}
		if isFlush {
			continue
		}
		packets = append(packets, payload)
	}
}
