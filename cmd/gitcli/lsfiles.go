package main

import (
	"fmt"
	"os"

	"github.com/okorvid/gitvc/internal/gitcore"
)

func runLsFiles(repo *gitcore.Repository, args []string) int {
	var showStage bool
	for _, a := range args {
		if a == "-s" {
			showStage = true
		}
	}

	idx, err := gitcore.ReadIndex(repo.GitDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, e := range idx.Entries {
		if showStage {
			fmt.Printf("%06o %s %d\t%s\n", e.Mode, e.Hash, e.Stage, e.Path)
			continue
		}
		fmt.Println(e.Path)
	}
	return 0
}
