package main

import (
	"fmt"
	"os"

	"github.com/okorvid/gitvc/internal/gitcore"
)

func runWriteTree(repo *gitcore.Repository, _ []string) int {
	name, err := gitcore.WriteTree(repo.GitDir(), repo.WorkDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	fmt.Println(name)
	return 0
}
