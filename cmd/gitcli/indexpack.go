package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/okorvid/gitvc/internal/gitcore"
)

// runIndexPack decodes a standalone pack file and writes its sidecar .idx
// next to it, the `index-pack` porcelain operation.
func runIndexPack(_ *gitcore.Repository, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli index-pack <pack-file>")
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

	idxPath := strings.TrimSuffix(packPath, ".pack") + ".idx"
	//nolint:gosec // G304: path is derived from the CLI-supplied pack path
	out, err := os.Create(idxPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	defer func() { _ = out.Close() }()

	if err := gitcore.WriteIndex(out, decoded.Objects, decoded.Trailer); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	name, err := gitcore.NewHashFromBytes(decoded.Trailer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	fmt.Println(name)
	return 0
}
