package gitcore

import (
	"crypto/sha1"
	"fmt"
)

// frameObject builds the canonical on-disk framing of an object:
// "<kind> <decimal-length>\0" followed by the payload. The content
// address of an object is the SHA-1 of exactly these bytes.
func frameObject(kind ObjectType, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", kind.String(), len(payload))
	framed := make([]byte, 0, len(header)+len(payload))
	framed = append(framed, header...)
	framed = append(framed, payload...)
	return framed
}

// hashObject computes the ObjectName of a payload under the canonical
// framing for kind, without touching the object store.
func hashObject(kind ObjectType, payload []byte) ObjectName {
	framed := frameObject(kind, payload)
	sum := sha1.Sum(framed)
	return ObjectName(sum)
}

// splitFramedObject parses a decompressed loose-object stream back into
// its kind and payload, verifying the declared length matches what was
// actually present.
func splitFramedObject(framed []byte) (ObjectType, []byte, error) {
	nul := -1
	for i, b := range framed {
		if b == 0 {
			nul = i
			break
		}
	}
	if nul == -1 {
		return 0, nil, malformedf("object-codec", "missing NUL after object header")
	}
	header := string(framed[:nul])
	var kindStr string
	var size int
	if _, err := fmt.Sscanf(header, "%s %d", &kindStr, &size); err != nil {
		return 0, nil, malformedf("object-codec", "malformed header %q: %w", header, err)
	}
	kind := StrToObjectType(kindStr)
	if kind == NoneObject {
		return 0, nil, unknownf("object-codec", "unrecognized object kind %q", kindStr)
	}
	payload := framed[nul+1:]
	if len(payload) != size {
		return 0, nil, inconsistentf("object-codec", "declared length %d does not match payload length %d", size, len(payload))
	}
	return kind, payload, nil
}
