package main

import (
	"fmt"
	"os"

	"github.com/okorvid/gitvc/internal/gitcore"
)

func runCheckout(repo *gitcore.Repository, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli checkout <commit-ish>")
		return 1
	}

	hash, err := resolveHash(repo, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	treeHash, err := treeHashForRev(repo, hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if err := gitcore.CheckoutTree(repo, treeHash, repo.WorkDir()); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	return 0
}
