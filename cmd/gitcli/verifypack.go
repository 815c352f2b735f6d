package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/okorvid/gitvc/internal/gitcore"
)

// runVerifyPack decodes a pack file, verifying its trailer checksum and
// every object's framing, then cross-checks the sidecar .idx (if present)
// for matching object counts and offsets.
func runVerifyPack(_ *gitcore.Repository, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli verify-pack <pack-file|idx-file>")
		return 1
	}

	packPath := strings.TrimSuffix(args[0], ".idx")
	if !strings.HasSuffix(packPath, ".pack") {
		packPath += ".pack"
	}
	idxPath := strings.TrimSuffix(packPath, ".pack") + ".idx"

	//nolint:gosec // G304: path is an explicit CLI argument
	f, err := os.Open(packPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	decoded, err := gitcore.DecodePack(f, info.Size())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if idx, err := gitcore.LoadPackIndex(idxPath); err == nil {
		if idx.NumObjects() != uint32(len(decoded.Objects)) { //nolint:gosec // len() is bounded by pack size
			fmt.Fprintf(os.Stderr, "fatal: idx reports %d objects, pack decoded %d\n", idx.NumObjects(), len(decoded.Objects))
			return 128
		}
		for _, obj := range decoded.Objects {
			offset, found := idx.FindObject(obj.Name.ToHash())
			if !found {
				fmt.Fprintf(os.Stderr, "fatal: object %s missing from index\n", obj.Name)
				return 128
			}
			if offset != obj.Offset {
				fmt.Fprintf(os.Stderr, "fatal: object %s offset mismatch: idx=%d pack=%d\n", obj.Name, offset, obj.Offset)
				return 128
			}
		}
	}

	for _, obj := range decoded.Objects {
		fmt.Printf("%s %s %d\n", obj.Name, obj.Kind, len(obj.Payload))
	}
	fmt.Printf("%s: ok\n", packPath)
	return 0
}
