package main

import (
	"fmt"
	"os"
	"time"

	"github.com/okorvid/gitvc/internal/gitcore"
)

func runCommitTree(repo *gitcore.Repository, args []string) int {
	var (
		tree     string
		parents  []string
		messages []string
	)

	for i := 0; i < len(args); i++ {
		switch a := args[i]; a {
		case "-p":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "error: -p requires a parent hash")
				return 1
			}
			i++
			parents = append(parents, args[i])
		case "-m":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "error: -m requires a message")
				return 1
			}
			i++
			messages = append(messages, args[i])
		default:
			if tree == "" {
				tree = a
			}
		}
	}

	if tree == "" {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli commit-tree <tree> [-p <parent>]... -m <message>")
		return 1
	}

	treeName, err := gitcore.ParseObjectName(tree)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: invalid tree %q: %v\n", tree, err)
		return 128
	}

	parentNames := make([]gitcore.ObjectName, 0, len(parents))
	for _, p := range parents {
		n, err := gitcore.ParseObjectName(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: invalid parent %q: %v\n", p, err)
			return 128
		}
		parentNames = append(parentNames, n)
	}

	message := ""
	for i, m := range messages {
		if i > 0 {
			message += "\n"
		}
		message += m
	}
	if message == "" {
		fmt.Fprintln(os.Stderr, "fatal: no commit message given")
		return 128
	}

	sig := commitSignature()

	name, err := gitcore.CommitTree(repo.GitDir(), treeName, parentNames, sig, sig, message)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	fmt.Println(name)
	return 0
}

// commitSignature builds the author/committer signature from the
// GIT_AUTHOR_NAME/GIT_AUTHOR_EMAIL environment, falling back to a
// placeholder identity when unset.
func commitSignature() gitcore.Signature {
	name := os.Getenv("GIT_AUTHOR_NAME")
	if name == "" {
		name = "Unknown"
	}
	email := os.Getenv("GIT_AUTHOR_EMAIL")
	if email == "" {
		email = "unknown@localhost"
	}
	return gitcore.Signature{Name: name, Email: email, When: time.Now()}
}
