package gitcore

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// PackedObject is one fully decoded record from a packfile: its content
// address, the raw CRC32 of its on-disk byte range, its decompressed
// size, its byte offset within the pack, its kind, and its payload.
type PackedObject struct {
	Name             ObjectName
	CRC32            uint32
	DecompressedSize int64
	Offset           int64
	Kind             ObjectType
	Payload          []byte
}

// DecodedPack is the result of a full PackDecoder pass: the sorted object
// list plus the pack's own trailer (its content-name, the SHA-1 of
// everything preceding the final 20 bytes).
type DecodedPack struct {
	Objects []PackedObject
	Trailer [20]byte
}

// DecodePack sequentially decodes every record in a seekable pack stream
// of length size. It verifies the pack trailer, rejects OFS-delta entries
// as FeatureUnsupported, resolves REF-delta entries against already
// decoded records in the same pack, and returns the decoded list sorted
// by object name.
func DecodePack(rs io.ReadSeeker, size int64) (*DecodedPack, error) {
	if size < 32 { // 12-byte header + at least one record + 20-byte trailer
		return nil, truncatedf("pack-decoder", "pack too small: %d bytes", size)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, ioErr("pack-decoder", err)
	}
	full := make([]byte, size)
	if _, err := io.ReadFull(rs, full); err != nil {
		return nil, truncatedf("pack-decoder", "reading full pack: %w", err)
	}
	if err := verifyTrailingChecksumBytes(full); err != nil {
		return nil, malformedf("pack-decoder", "trailer check: %w", err)
	}
	var trailer [20]byte
	copy(trailer[:], full[len(full)-20:])

	if string(full[0:4]) != "PACK" {
		return nil, malformedf("pack-decoder", "bad magic %q", full[0:4])
	}
	version := binary.BigEndian.Uint32(full[4:8])
	if version != 2 {
		return nil, unsupportedf("pack-decoder", "pack version %d is not supported", version)
	}
	objectCount := binary.BigEndian.Uint32(full[8:12])

	byName := make(map[ObjectName]*PackedObject, objectCount)
	objects := make([]PackedObject, 0, objectCount)

	if _, err := rs.Seek(12, io.SeekStart); err != nil {
		return nil, ioErr("pack-decoder", err)
	}

	for i := uint32(0); i < objectCount; i++ {
		recordOffset, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, ioErr("pack-decoder", err)
		}

		obj, nextOffset, err := decodePackRecord(rs, full, recordOffset, byName)
		if err != nil {
			return nil, err
		}
		objects = append(objects, *obj)
		byName[obj.Name] = &objects[len(objects)-1]

		if _, err := rs.Seek(nextOffset, io.SeekStart); err != nil {
			return nil, ioErr("pack-decoder", err)
		}
	}

	SortPackedObjects(objects)
	return &DecodedPack{Objects: objects, Trailer: trailer}, nil
}

// decodePackRecord decodes the record starting at recordOffset, returning
// the decoded object and the absolute byte offset the next record begins
// at. full is the entire pack's bytes, used for CRC computation over the
// raw on-disk range.
func decodePackRecord(rs io.ReadSeeker, full []byte, recordOffset int64, byName map[ObjectName]*PackedObject) (*PackedObject, int64, error) {
	bp := newByteParser(rs)

	firstByte, raw, err := readPackTypeSize(bp)
	if err != nil {
		return nil, 0, err
	}
	kindNum := (firstByte >> 4) & 0x07
	size := decodeTypeSizeValue(firstByte, raw)

	headLen := int64(len(raw))

	switch kindNum {
	case 1, 2, 3, 4:
		kind := ObjectType(kindNum)
		payload, compressedLen, err := bp.decompressExact(int(size))
		if err != nil {
			return nil, 0, err
		}
		name := hashObject(kind, payload)
		crcEnd := recordOffset + headLen + compressedLen
		crc := crc32.ChecksumIEEE(full[recordOffset:crcEnd])
		return &PackedObject{
			Name:             name,
			CRC32:            crc,
			DecompressedSize: int64(len(payload)),
			Offset:           recordOffset,
			Kind:             kind,
			Payload:          payload,
		}, crcEnd, nil

	case 6:
		return nil, 0, unsupportedf("pack-decoder", "OFS-delta is not supported")

	case 7:
		baseNameBytes, err := bp.readExact(20)
		if err != nil {
			return nil, 0, err
		}
		baseName, err := ObjectNameFromBytes(baseNameBytes)
		if err != nil {
			return nil, 0, err
		}
		deltaStream, compressedLen, err := bp.decompressExact(int(size))
		if err != nil {
			return nil, 0, err
		}
		base, found := byName[baseName]
		if !found {
			return nil, 0, malformedf("pack-decoder", "ref-delta base %s not found earlier in pack", baseName)
		}
		payload, err := applyDelta(base.Payload, deltaStream)
		if err != nil {
			return nil, 0, malformedf("pack-decoder", "applying ref-delta: %w", err)
		}
		name := hashObject(base.Kind, payload)
		crcEnd := recordOffset + headLen + 20 + compressedLen
		crc := crc32.ChecksumIEEE(full[recordOffset:crcEnd])
		return &PackedObject{
			Name:             name,
			CRC32:            crc,
			DecompressedSize: int64(len(payload)),
			Offset:           recordOffset,
			Kind:             base.Kind,
			Payload:          payload,
		}, crcEnd, nil

	default:
		return nil, 0, unknownf("pack-decoder", "invalid pack entry type %d", kindNum)
	}
}

// readPackTypeSize reads the variable-length type+size head of a pack
// record, returning the first raw byte (for the type nibble) and all raw
// bytes consumed (needed for CRC ranging and size reconstruction).
func readPackTypeSize(bp *byteParser) (byte, []byte, error) {
	first, err := bp.readExact(1)
	if err != nil {
		return 0, nil, truncatedf("pack-decoder", "reading record type/size: %w", err)
	}
	raw := []byte{first[0]}
	for raw[len(raw)-1]&0x80 != 0 {
		next, err := bp.readExact(1)
		if err != nil {
			return 0, nil, truncatedf("pack-decoder", "reading record type/size continuation: %w", err)
		}
		raw = append(raw, next[0])
	}
	return first[0], raw, nil
}

// decodeTypeSizeValue reconstructs the size field from the raw type+size
// head bytes: low nibble of the first byte, then 7-bit groups from each
// continuation byte shifted by 4, 11, 18, ...
func decodeTypeSizeValue(firstByte byte, raw []byte) uint64 {
	size := uint64(firstByte & 0x0F)
	shift := uint(4)
	for _, b := range raw[1:] {
		size |= uint64(b&0x7F) << shift
		shift += 7
	}
	return size
}

// SortPackedObjects sorts decoded pack records by object name in ascending
// binary order, as required of PackDecoder's output.
func SortPackedObjects(objects []PackedObject) {
	// insertion sort is fine for typical pack sizes in this subset; swap
	// to sort.Slice if pack sizes grow large enough to matter.
	for i := 1; i < len(objects); i++ {
		j := i
		for j > 0 && objects[j].Name.Less(objects[j-1].Name) {
			objects[j], objects[j-1] = objects[j-1], objects[j]
			j--
		}
	}
}

// verifyPackTrailer is a standalone helper for verify-pack: it reads the
// whole stream and checks the SHA-1 trailer without decoding records.
func verifyPackTrailer(rs io.ReadSeeker, size int64) ([20]byte, error) {
	var trailer [20]byte
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return trailer, ioErr("pack-decoder", err)
	}
	full := make([]byte, size)
	if _, err := io.ReadFull(rs, full); err != nil {
		return trailer, truncatedf("pack-decoder", "reading pack: %w", err)
	}
	if err := verifyTrailingChecksumBytes(full); err != nil {
		return trailer, err
	}
	copy(trailer[:], full[len(full)-20:])
	return trailer, nil
}
