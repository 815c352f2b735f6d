package main

import (
	"fmt"
	"os"

	"github.com/okorvid/gitvc/internal/gitcore"
)

func runLsTree(repo *gitcore.Repository, args []string) int {
	var (
		nameOnly  bool
		recursive bool
		rev       string
	)

	for _, a := range args {
		switch a {
		case "--name-only":
			nameOnly = true
		case "-r":
			recursive = true
		default:
			rev = a
		}
	}

	if rev == "" {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli ls-tree [--name-only] [-r] <tree-ish>")
		return 1
	}

	hash, err := resolveHash(repo, rev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	treeHash, err := treeHashForRev(repo, hash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	return listTree(repo, treeHash, "", recursive, nameOnly)
}

// treeHashForRev resolves a commit or tree hash to the tree it denotes.
func treeHashForRev(repo *gitcore.Repository, hash gitcore.Hash) (gitcore.Hash, error) {
	typeName, _, err := repo.GetObjectInfo(hash)
	if err != nil {
		return "", err
	}
	switch typeName {
	case "tree":
		return hash, nil
	case "commit":
		commit, err := repo.GetCommit(hash)
		if err != nil {
			return "", err
		}
		return commit.Tree, nil
	default:
		return "", fmt.Errorf("object %s is a %s, not a tree-ish", hash, typeName)
	}
}

func listTree(repo *gitcore.Repository, treeHash gitcore.Hash, prefix string, recursive, nameOnly bool) int {
	tree, err := repo.GetTree(treeHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	for _, entry := range tree.Entries {
		path := entry.Name
		if prefix != "" {
			path = prefix + "/" + entry.Name
		}

		if recursive && entry.Type == "tree" {
			if code := listTree(repo, entry.ID, path, recursive, nameOnly); code != 0 {
				return code
			}
			continue
		}

		if nameOnly {
			fmt.Println(path)
			continue
		}
		fmt.Printf("%s %s %s\t%s\n", normalizeMode(entry.Mode), entry.Type, entry.ID, path)
	}
	return 0
}
