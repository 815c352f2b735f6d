package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/okorvid/gitvc/internal/cli"
	"github.com/okorvid/gitvc/internal/gitcore"
	"github.com/okorvid/gitvc/internal/termcolor"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	gf, args := parseGlobalFlags(os.Args[1:])

	// --version is handled before app.Run because "--" prefixed args
	// would be treated as unknown commands by the dispatcher.
	for _, a := range args {
		if a == "--version" {
			printVersion()
			os.Exit(0)
		}
	}

	cw := termcolor.NewWriter(os.Stdout, gf.colorMode)

	app := cli.NewApp("gitvista-cli", version)
	app.Stderr = os.Stderr

	// repo is declared here and assigned after dispatch determines that
	// the matched command needs it (NeedsRepo). Closures capture the
	// pointer variable, which is populated before they execute.
	var repo *gitcore.Repository

	app.Register(&cli.Command{
		Name:      "hash-object",
		Summary:   "Compute the object name for data, optionally writing it",
		Usage:     "gitvista-cli hash-object [-w] [-t <type>] (--stdin | <file>)",
		Examples:  []string{"gitvista-cli hash-object -w README.md", "echo hi | gitvista-cli hash-object --stdin"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runHashObject(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "cat-file",
		Summary:   "Show object content, type, or size",
		Usage:     "gitvista-cli cat-file (-t|-s|-p) <object>",
		Examples:  []string{"gitvista-cli cat-file -p HEAD", "gitvista-cli cat-file -t abc1234"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runCatFile(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "ls-tree",
		Summary:   "List the contents of a tree object",
		Usage:     "gitvista-cli ls-tree [--name-only] [-r] <tree-ish>",
		Examples:  []string{"gitvista-cli ls-tree HEAD", "gitvista-cli ls-tree -r --name-only HEAD"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runLsTree(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "write-tree",
		Summary:   "Write the working tree's contents as a tree object",
		Usage:     "gitvista-cli write-tree",
		NeedsRepo: true,
		Run:       func(args []string) int { return runWriteTree(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "commit-tree",
		Summary:   "Create a commit object from a tree and parents",
		Usage:     "gitvista-cli commit-tree <tree> [-p <parent>]... -m <message>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runCommitTree(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "index-pack",
		Summary:   "Build a pack index for a packfile",
		Usage:     "gitvista-cli index-pack <pack-file>",
		NeedsRepo: false,
		Run:       func(args []string) int { return runIndexPack(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "verify-pack",
		Summary:   "Validate a pack file and its index",
		Usage:     "gitvista-cli verify-pack <pack-file|idx-file>",
		NeedsRepo: false,
		Run:       func(args []string) int { return runVerifyPack(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "unpack-objects",
		Summary:   "Explode a pack file into loose objects",
		Usage:     "gitvista-cli unpack-objects <pack-file>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runUnpackObjects(repo, args) },
	})

	app.Register(&cli.Command{
		Name:     "clone",
		Summary:  "Clone a repository into a new directory",
		Usage:    "gitvista-cli clone <url> [<directory>]",
		Examples: []string{"gitvista-cli clone https://example.com/group/project.git"},
		Run:      func(args []string) int { return runClone(args) },
	})

	app.Register(&cli.Command{
		Name:      "checkout",
		Summary:   "Check out a commit's tree into the working directory",
		Usage:     "gitvista-cli checkout <commit-ish>",
		NeedsRepo: true,
		Run:       func(args []string) int { return runCheckout(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "ls-files",
		Summary:   "Show files in the staging index",
		Usage:     "gitvista-cli ls-files [-s]",
		NeedsRepo: true,
		Run:       func(args []string) int { return runLsFiles(repo, args) },
	})

	app.Register(&cli.Command{
		Name:      "status",
		Summary:   "Show working tree status",
		Usage:     "gitvista-cli status [-s|--porcelain]",
		Examples:  []string{"gitvista-cli status", "gitvista-cli status --porcelain"},
		NeedsRepo: true,
		Run:       func(args []string) int { return runStatus(repo, args) },
	})

	app.Register(&cli.Command{
		Name:    "update",
		Summary: "Update to the latest release",
		Usage:   "gitvista-cli update [--check]",
		Examples: []string{
			"gitvista-cli update",
			"gitvista-cli update --check",
		},
		Run: func(args []string) int { return runUpdate(args) },
	})

	app.Register(&cli.Command{
		Name:    "version",
		Summary: "Show version information",
		Usage:   "gitvista-cli version",
		Run:     func([]string) int { printVersion(); return 0 },
	})

	// Determine which command will run so we can load the repo only when needed.
	if len(args) > 0 {
		cmd := app.Lookup(args[0])
		if cmd != nil && cmd.NeedsRepo {
			repoPath := os.Getenv("GIT_DIR")
			if repoPath == "" {
				repoPath = "."
			}
			var err error
			repo, err = gitcore.NewRepository(repoPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
				os.Exit(128)
			}
		}
	}

	os.Exit(app.Run(args, cw))
}

func printVersion() {
	fmt.Printf("GitVista CLI %s\n", version)
	fmt.Printf("  commit:     %s\n", commit)
	fmt.Printf("  built:      %s\n", buildDate)
	fmt.Printf("  go version: %s\n", runtime.Version())
	fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
