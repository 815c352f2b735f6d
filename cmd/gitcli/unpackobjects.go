package main

import (
	"fmt"
	"os"

	"github.com/okorvid/gitvc/internal/gitcore"
)

// runUnpackObjects explodes a standalone pack file into loose objects under
// the repository's object store, the `unpack-objects` porcelain operation.
func runUnpackObjects(repo *gitcore.Repository, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli unpack-objects <pack-file>")
		return 1
	}
	packPath := args[0]

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

	for _, obj := range decoded.Objects {
		if _, err := gitcore.HashObject(repo.GitDir(), obj.Kind, obj.Payload, true); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: writing %s: %v\n", obj.Name, err)
			return 128
		}
	}

	fmt.Printf("unpacked %d objects\n", len(decoded.Objects))
	return 0
}
