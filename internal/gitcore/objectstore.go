package gitcore

import (
	"bytes"
	"compress/zlib"
	"io"
	"os"
	"path/filepath"
)

// looseObjectPath returns the on-disk path objects/<xx>/<38hex> for name
// under gitDir.
func looseObjectPath(gitDir string, name ObjectName) string {
	hex := name.String()
	return filepath.Join(gitDir, "objects", hex[:2], hex[2:])
}

// readLooseObject reads and decompresses the loose object named name under
// gitDir, returning its kind and payload.
func readLooseObject(gitDir string, name ObjectName) (ObjectType, []byte, error) {
	path := looseObjectPath(gitDir, name)
	//nolint:gosec // G304: path is derived from a validated ObjectName, not user input
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil, ioErr("object-store", err)
		}
		return 0, nil, ioErr("object-store", err)
	}
	defer f.Close()

	framed, err := readCompressedData(f)
	if err != nil {
		return 0, nil, malformedf("object-store", "decompressing %s: %w", name, err)
	}
	return splitFramedObject(framed)
}

// writeLooseObject hashes payload under kind's framing and, if not already
// present, writes it via temp-file-plus-rename into objects/<xx>/<rest>
// under gitDir. Re-writing an existing name is silently successful: the
// content address guarantees the bytes are identical.
func writeLooseObject(gitDir string, kind ObjectType, payload []byte) (ObjectName, error) {
	name := hashObject(kind, payload)
	dest := looseObjectPath(gitDir, name)

	if _, err := os.Stat(dest); err == nil {
		return name, nil
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return name, ioErr("object-store", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-obj-*")
	if err != nil {
		return name, ioErr("object-store", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	zw := zlib.NewWriter(tmp)
	framed := frameObject(kind, payload)
	if _, err := zw.Write(framed); err != nil {
		return name, ioErr("object-store", err)
	}
	if err := zw.Close(); err != nil {
		return name, ioErr("object-store", err)
	}
	if err := tmp.Close(); err != nil {
		return name, ioErr("object-store", err)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		// Another writer may have published the same content-addressed
		// name between our Stat and our Rename; that's still success.
		if _, statErr := os.Stat(dest); statErr == nil {
			return name, nil
		}
		return name, ioErr("object-store", err)
	}
	return name, nil
}

// readLooseObjectStream returns a streaming reader over the loose object's
// payload plus its declared length, without materializing the whole blob.
// Large blobs can be consumed incrementally by callers that only need to
// copy bytes onward (e.g. checkout).
func readLooseObjectStream(gitDir string, name ObjectName) (ObjectType, io.ReadCloser, int64, error) {
	kind, payload, err := readLooseObject(gitDir, name)
	if err != nil {
		return 0, nil, 0, err
	}
	return kind, io.NopCloser(bytes.NewReader(payload)), int64(len(payload)), nil
}
