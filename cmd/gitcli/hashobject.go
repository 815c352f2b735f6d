package main

import (
	"fmt"
	"io"
	"os"

	"github.com/okorvid/gitvc/internal/gitcore"
)

func runHashObject(repo *gitcore.Repository, args []string) int {
	var (
		write      bool
		objTypeStr = "blob"
		stdin      bool
		path       string
	)

	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-w":
			write = true
		case "-t":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "error: -t requires a type argument")
				return 1
			}
			i++
			objTypeStr = args[i]
		case "--stdin":
			stdin = true
		default:
			path = a
		}
	}

	if !stdin && path == "" {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli hash-object [-w] [-t <type>] (--stdin | <file>)")
		return 1
	}

	var data []byte
	var err error
	if stdin {
		data, err = io.ReadAll(os.Stdin)
	} else {
		//nolint:gosec // G304: path is an explicit CLI argument
		data, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	kind := gitcore.StrToObjectType(objTypeStr)
	if kind == gitcore.NoneObject {
		fmt.Fprintf(os.Stderr, "fatal: invalid object type %q\n", objTypeStr)
		return 128
	}

	name, err := gitcore.HashObject(repo.GitDir(), kind, data, write)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	fmt.Println(name)
	return 0
}
