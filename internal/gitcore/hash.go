package gitcore

import (
	"encoding/hex"
	"sort"
)

// ObjectName is a 20-byte SHA-1 object identity with a lowercase-hex
// projection. Equality and ordering are defined over the binary form;
// since hex encoding is order-preserving byte-by-byte, binary order and
// hex order coincide.
type ObjectName [20]byte

// ZeroObjectName is the all-zero name used as a sentinel (e.g. an absent
// parent in a RefDelta chain, or an unset ref target).
var ZeroObjectName ObjectName

// ParseObjectName decodes a 40-character lowercase hex string into an
// ObjectName.
func ParseObjectName(hexStr string) (ObjectName, error) {
	var name ObjectName
	if len(hexStr) != 40 {
		return name, malformedf("object-name", "expected 40 hex characters, got %d", len(hexStr))
	}
	decoded, err := hex.DecodeString(hexStr)
	if err != nil {
		return name, malformedf("object-name", "invalid hex: %w", err)
	}
	copy(name[:], decoded)
	return name, nil
}

// ObjectNameFromBytes copies a 20-byte slice into an ObjectName.
func ObjectNameFromBytes(b []byte) (ObjectName, error) {
	var name ObjectName
	if len(b) != 20 {
		return name, malformedf("object-name", "expected 20 bytes, got %d", len(b))
	}
	copy(name[:], b)
	return name, nil
}

// String returns the lowercase hex projection.
func (n ObjectName) String() string {
	return hex.EncodeToString(n[:])
}

// Bytes returns the 20 raw bytes.
func (n ObjectName) Bytes() []byte {
	return n[:]
}

// IsZero reports whether n is the all-zero sentinel name.
func (n ObjectName) IsZero() bool {
	return n == ZeroObjectName
}

// Less reports whether n sorts strictly before o in binary (equivalently,
// hex) order.
func (n ObjectName) Less(o ObjectName) bool {
	for i := range n {
		if n[i] != o[i] {
			return n[i] < o[i]
		}
	}
	return false
}

// SortObjectNames sorts names in ascending binary order in place.
func SortObjectNames(names []ObjectName) {
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })
}

// ToHash converts an ObjectName to the legacy hex-string Hash type used by
// the repository/server glue layer.
func (n ObjectName) ToHash() Hash {
	return Hash(n.String())
}

// ObjectNameFromHash converts a Hash (40-char hex string) to an ObjectName.
func ObjectNameFromHash(h Hash) (ObjectName, error) {
	return ParseObjectName(string(h))
}
