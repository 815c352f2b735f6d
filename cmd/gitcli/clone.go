package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/okorvid/gitvc/internal/fetch"
	"github.com/okorvid/gitvc/internal/gitcore"
	"github.com/okorvid/gitvc/internal/termcolor"
)

// runClone clones a remote repository over smart-HTTP into a new directory
// and checks out its default branch, the `clone` porcelain operation.
func runClone(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: gitvista-cli clone <url> [<directory>]")
		return 1
	}
	repoURL := args[0]

	dest := ""
	if len(args) > 1 {
		dest = args[1]
	} else {
		dest = defaultCloneDir(repoURL)
	}

	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintf(os.Stderr, "fatal: destination path %q already exists\n", dest)
		return 128
	}

	gitDir := filepath.Join(dest, ".git")
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	if err := fetchInto(context.Background(), repoURL, gitDir); err != nil {
		_ = os.RemoveAll(dest)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	repo, err := gitcore.NewRepository(gitDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	head, err := resolveHash(repo, "HEAD")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	treeHash, err := treeHashForRev(repo, head)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}
	if err := gitcore.CheckoutTree(repo, treeHash, dest); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 128
	}

	fmt.Printf("Cloned into %q\n", dest)
	return 0
}

func defaultCloneDir(repoURL string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(repoURL, "/"), ".git")
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}

// fetchInto discovers the remote's refs, fetches a single pack for its
// default branch, and lays the result out as a bare .git directory: a
// packfile plus sidecar .idx, one loose ref per advertised ref, and a
// symbolic HEAD. This is the same layout internal/repomanager writes for
// its read-only managed clones, reimplemented here since the CLI process
// has no dependency on that package.
func fetchInto(ctx context.Context, repoURL, gitDir string) error {
	client := fetch.NewClient(repoURL)

	var bar *pterm.ProgressbarPrinter
	if termcolor.IsTerminal(os.Stderr.Fd()) {
		bar, _ = pterm.DefaultProgressbar.WithTotal(100).WithTitle("receiving objects").WithWriter(os.Stderr).Start()
	}
	client.OnProgress = func(line string) {
		phase, pct, ok := parseClonePercent(line)
		if !ok {
			return
		}
		if bar == nil {
			fmt.Fprintf(os.Stderr, "\r%s: %d%%", phase, pct)
			return
		}
		bar.UpdateTitle(phase)
		if delta := pct - bar.Current; delta > 0 {
			bar.Add(delta)
		}
	}
	defer func() {
		if bar != nil {
			_, _ = bar.Stop()
		}
	}()

	adv, err := client.DiscoverRefs(ctx)
	if err != nil {
		return fmt.Errorf("discover refs: %w", err)
	}
	if len(adv.Refs) == 0 {
		return fmt.Errorf("remote has no refs")
	}

	branch, err := adv.DefaultBranch()
	if err != nil {
		return err
	}

	var want gitcore.ObjectName
	var found bool
	for _, r := range adv.Refs {
		if r.Name == "refs/heads/"+branch {
			want, found = r.Hash, true
			break
		}
	}
	if !found {
		return fmt.Errorf("default branch %q not found in advertisement", branch)
	}

	packData, err := client.FetchPack(ctx, want)
	if err != nil {
		return fmt.Errorf("fetch pack: %w", err)
	}

	packDir := filepath.Join(gitDir, "objects", "pack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		return fmt.Errorf("create objects/pack: %w", err)
	}

	decoded, err := gitcore.DecodePack(bytes.NewReader(packData), int64(len(packData)))
	if err != nil {
		return fmt.Errorf("decode pack: %w", err)
	}

	trailerName, err := gitcore.NewHashFromBytes(decoded.Trailer)
	if err != nil {
		return fmt.Errorf("pack trailer: %w", err)
	}

	packPath := filepath.Join(packDir, "pack-"+string(trailerName)+".pack")
	if err := os.WriteFile(packPath, packData, 0o644); err != nil { //nolint:gosec // G306: pack data is not secret
		return fmt.Errorf("write pack: %w", err)
	}

	idxPath := filepath.Join(packDir, "pack-"+string(trailerName)+".idx")
	idxFile, err := os.Create(idxPath) //nolint:gosec // G304: path built from trusted hex trailer
	if err != nil {
		return fmt.Errorf("create idx: %w", err)
	}
	defer func() { _ = idxFile.Close() }()
	if err := gitcore.WriteIndex(idxFile, decoded.Objects, decoded.Trailer); err != nil {
		return fmt.Errorf("write idx: %w", err)
	}

	for _, r := range adv.Refs {
		if r.Name == "HEAD" {
			continue
		}
		refPath := filepath.Join(gitDir, filepath.FromSlash(r.Name))
		if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
			return fmt.Errorf("create ref dir for %s: %w", r.Name, err)
		}
		if err := os.WriteFile(refPath, []byte(r.Hash.String()+"\n"), 0o644); err != nil { //nolint:gosec // G306: refs are not secret
			return fmt.Errorf("write ref %s: %w", r.Name, err)
		}
	}

	head := []byte("ref: refs/heads/" + branch + "\n")
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), head, 0o644); err != nil { //nolint:gosec // G306: HEAD is not secret
		return fmt.Errorf("write HEAD: %w", err)
	}

	return nil
}

// clonePercentRe matches progress lines like "Receiving objects:  45% (123/456)".
var clonePercentRe = regexp.MustCompile(`^(.+?):\s+(\d+)%`)

func parseClonePercent(line string) (phase string, percent int, ok bool) {
	m := clonePercentRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", 0, false
	}
	pct, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], pct, true
}
