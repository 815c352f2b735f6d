package gitcore

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
)

// byteParser is a buffered binary reader over a seekable byte source. It
// layers the primitives the pack, index, and object decoders share: exact
// reads, delimiter scans, big-endian integers, the varint "size encoding"
// used by loose-object headers and pack records, and zlib window
// extraction that stops exactly at the declared decompressed length.
type byteParser struct {
	r   io.Reader
	pos int64
}

func newByteParser(r io.Reader) *byteParser {
	return &byteParser{r: r}
}

func (p *byteParser) readExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(p.r, buf)
	p.pos += int64(read)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, truncatedf("byteparser", "read_exact(%d): got %d bytes: %w", n, read, err)
		}
		return nil, ioErr("byteparser", err)
	}
	return buf, nil
}

func (p *byteParser) readArray(n int) ([]byte, error) {
	return p.readExact(n)
}

// readUntil returns the bytes preceding delim, consuming delim itself.
func (p *byteParser) readUntil(delim byte) ([]byte, error) {
	var out []byte
	one := make([]byte, 1)
	for {
		n, err := io.ReadFull(p.r, one)
		if n == 1 {
			p.pos++
		}
		if err != nil {
			return nil, truncatedf("byteparser", "read_until(%q): %w", delim, err)
		}
		if one[0] == delim {
			return out, nil
		}
		out = append(out, one[0])
	}
}

// readBEUint reads n in {1,2,4,8} bytes as an unsigned big-endian integer.
func (p *byteParser) readBEUint(n int) (uint64, error) {
	buf, err := p.readExact(n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(buf)), nil
	case 8:
		return binary.BigEndian.Uint64(buf), nil
	default:
		return 0, malformedf("byteparser", "read_be_uint: unsupported width %d", n)
	}
}

// readVarsize decodes the pack/loose-object "size encoding": 7-bit
// little-endian groups, continuing while the MSB of the byte is set. The
// raw bytes consumed are returned alongside the value since CRC ranges in
// the pack decoder need them.
func (p *byteParser) readVarsize() (uint64, []byte, error) {
	var raw []byte
	var value uint64
	var shift uint
	for {
		b, err := p.readExact(1)
		if err != nil {
			return 0, nil, truncatedf("byteparser", "read_varsize: %w", err)
		}
		raw = append(raw, b[0])
		value |= uint64(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			break
		}
		shift += 7
	}
	return value, raw, nil
}

// readLineDecimal reads ASCII decimal digits up to and including delim,
// parsing the digits as an unsigned integer.
func (p *byteParser) readLineDecimal(delim byte) (uint64, error) {
	line, err := p.readUntil(delim)
	if err != nil {
		return 0, err
	}
	if len(line) == 0 {
		return 0, malformedf("byteparser", "read_line_decimal: empty before delimiter %q", delim)
	}
	var value uint64
	for _, c := range line {
		if c < '0' || c > '9' {
			return 0, malformedf("byteparser", "read_line_decimal: non-digit byte %q", c)
		}
		value = value*10 + uint64(c-'0')
	}
	return value, nil
}

// decompressExact attaches a zlib reader to the underlying stream and
// pulls exactly n decompressed bytes, returning them along with the
// number of compressed bytes the zlib reader consumed from the source.
// It never reads past the end of the current record: decompression stops
// the instant n bytes are produced, even if the zlib stream has more
// trailing bytes buffered internally that belong to the next record.
func (p *byteParser) decompressExact(n int) ([]byte, int64, error) {
	counter := &countingReader{r: p.r}
	zr, err := zlib.NewReader(counter)
	if err != nil {
		return nil, 0, malformedf("byteparser", "decompress_exact: zlib header: %w", err)
	}
	out := make([]byte, n)
	read, err := io.ReadFull(zr, out)
	if err != nil && !(err == io.EOF && n == 0) {
		return nil, 0, truncatedf("byteparser", "decompress_exact(%d): got %d bytes: %w", n, read, err)
	}
	_ = zr.Close()
	p.pos += counter.n
	return out, counter.n, nil
}

// verifyTrailingChecksumBytes hashes all but the final 20 bytes of the
// in-memory buffer data with SHA-1 and compares the digest to those final
// 20 bytes.
func verifyTrailingChecksumBytes(data []byte) error {
	if len(data) < 20 {
		return truncatedf("byteparser", "verify_trailing_checksum: stream shorter than 20 bytes")
	}
	prefix := data[:len(data)-20]
	want := data[len(data)-20:]
	sum := sha1.Sum(prefix)
	if !bytes.Equal(sum[:], want) {
		return malformedf("byteparser", "verify_trailing_checksum: checksum mismatch")
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ReadByte satisfies io.ByteReader. compress/flate's NewReader special-cases
// sources that already provide ReadByte and reads from them directly instead
// of wrapping them in its own bufio.Reader; without this method flate would
// pull a full internal buffer's worth of bytes from the pack stream on the
// first Read, consuming bytes that belong to the next record. A one-byte
// Read per call is slow but exact, which is what record-boundary accounting
// here requires.
func (c *countingReader) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := c.r.Read(buf[:])
	if n == 1 {
		c.n++
		return buf[0], nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return 0, err
}

// bufReader adapts any io.Reader to a *bufio.Reader sized for loose object
// and pack record decoding; kept as a thin helper so callers don't sprinkle
// bufio.NewReaderSize literals with inconsistent buffer sizes.
func bufReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, 32*1024)
}

func fmtByteLen(n int) string {
	return fmt.Sprintf("%d", n)
}
