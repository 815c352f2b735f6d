package repomanager

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okorvid/gitvc/internal/fetch"
	"github.com/okorvid/gitvc/internal/gitcore"
)

// sshShorthandRe matches SSH shorthand like git@github.com:user/repo.git.
var sshShorthandRe = regexp.MustCompile(`^([^@]+)@([^:]+):(.+)$`)

// normalizeURL canonicalizes a Git remote URL for deduplication.
// It lowercases the hostname, strips .git suffix and trailing slashes,
// removes embedded credentials, and converts SSH shorthand to ssh:// form.
func normalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("empty URL")
	}

	// Reject URLs that could be interpreted as git command-line options.
	if strings.HasPrefix(rawURL, "-") {
		return "", fmt.Errorf("invalid URL: must not start with '-'")
	}

	lower := strings.ToLower(rawURL)
	if strings.HasPrefix(lower, "file://") {
		return "", fmt.Errorf("file:// URLs are not supported")
	}
	if strings.HasPrefix(lower, "git://") {
		return "", fmt.Errorf("git:// URLs are not supported")
	}

	if m := sshShorthandRe.FindStringSubmatch(rawURL); m != nil {
		host := strings.ToLower(m[2])
		path := strings.TrimSuffix(m[3], ".git")
		path = strings.TrimRight(path, "/")
		return "ssh://" + host + "/" + path, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "https" && scheme != "http" && scheme != "ssh" {
		return "", fmt.Errorf("unsupported scheme: %s", scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", fmt.Errorf("missing hostname")
	}

	if isPrivateHost(host) {
		return "", fmt.Errorf("cloning from private/internal addresses is not allowed")
	}

	port := parsed.Port()
	hostPart := host
	if port != "" {
		hostPart = host + ":" + port
	}

	path := parsed.Path
	path = strings.TrimSuffix(path, ".git")
	path = strings.TrimRight(path, "/")

	return scheme + "://" + hostPart + path, nil
}

// hashURL returns the first 16 characters of the SHA-256 hex digest of the
// normalized URL. The result is deterministic and filesystem-safe.
func hashURL(normalizedURL string) string {
	h := sha256.Sum256([]byte(normalizedURL))
	return fmt.Sprintf("%x", h)[:16]
}

// progressLineRe matches git progress lines like "Receiving objects:  45% (123/456)".
var progressLineRe = regexp.MustCompile(`^(.+?):\s+(\d+)%`)

// parseProgressLine extracts the phase and percent from a git progress line.
// Returns zero-value CloneProgress and false if the line doesn't match.
func parseProgressLine(line string) (CloneProgress, bool) {
	m := progressLineRe.FindStringSubmatch(line)
	if m == nil {
		return CloneProgress{}, false
	}
	pct, err := strconv.Atoi(m[2])
	if err != nil {
		return CloneProgress{}, false
	}
	return CloneProgress{Phase: m[1], Percent: pct}, true
}

// splitProgressLines splits a chunk of stderr output on \r and \n, returning
// individual progress lines. Git uses \r for in-place updates.
func splitProgressLines(chunk string) []string {
	var lines []string
	for _, part := range strings.Split(chunk, "\n") {
		for _, sub := range strings.Split(part, "\r") {
			sub = strings.TrimSpace(sub)
			if sub != "" {
				lines = append(lines, sub)
			}
		}
	}
	return lines
}

// cloneRepo performs a bare clone of repoURL into destPath using the
// smart-HTTP fetch client: ref discovery, a single want for the default
// branch, and a pack fetch. No working tree is materialized (destPath ends
// up laid out as objects/, refs/, HEAD — the bare layout repository.go
// expects). On failure, destPath is cleaned up.
func cloneRepo(ctx context.Context, repoURL, destPath string, timeout time.Duration, onProgress func(CloneProgress)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := doClone(ctx, repoURL, destPath, onProgress); err != nil {
		_ = os.RemoveAll(destPath)
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("clone timed out after %s", timeout)
		}
		return fmt.Errorf("clone failed: %w", err)
	}
	return nil
}

func doClone(ctx context.Context, repoURL, destPath string, onProgress func(CloneProgress)) error {
	client := fetch.NewClient(repoURL)
	if onProgress != nil {
		client.OnProgress = func(line string) {
			for _, sub := range splitProgressLines(line) {
				if p, ok := parseProgressLine(sub); ok {
					onProgress(p)
				}
			}
		}
	}

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

	want, ok := findRef(adv, "refs/heads/"+branch)
	if !ok {
		return fmt.Errorf("default branch %q not found in advertisement", branch)
	}

	packData, err := client.FetchPack(ctx, want)
	if err != nil {
		return fmt.Errorf("fetch pack: %w", err)
	}

	if err := writeBareRepo(destPath, adv, branch, packData); err != nil {
		return err
	}
	remoteFile := filepath.Join(destPath, "remote-url")
	return os.WriteFile(remoteFile, []byte(repoURL+"\n"), 0o644) //nolint:gosec // G306: remote URL is not secret
}

func findRef(adv *fetch.Advertisement, name string) (gitcore.ObjectName, bool) {
	for _, r := range adv.Refs {
		if r.Name == name {
			return r.Hash, true
		}
	}
	return gitcore.ObjectName{}, false
}

// writeBareRepo materializes the fetched pack and ref advertisement as a
// bare repository directory: objects/pack/pack-<trailer>.{pack,idx},
// refs/heads|tags/<name> for every advertised ref, and a symbolic HEAD.
//
// This subset's fetch client only negotiates a single want (the default
// branch head), so refs whose history isn't reachable from that branch are
// written but may point at objects missing from the pack; a later read of
// such a ref surfaces as a normal missing-object error rather than being
// silently dropped.
func writeBareRepo(destPath string, adv *fetch.Advertisement, branch string, packData []byte) error {
	packDir := filepath.Join(destPath, "objects", "pack")
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
		refPath := filepath.Join(destPath, filepath.FromSlash(r.Name))
		if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
			return fmt.Errorf("create ref dir for %s: %w", r.Name, err)
		}
		if err := os.WriteFile(refPath, []byte(r.Hash.String()+"\n"), 0o644); err != nil { //nolint:gosec // G306: refs are not secret
			return fmt.Errorf("write ref %s: %w", r.Name, err)
		}
	}

	head := []byte("ref: refs/heads/" + branch + "\n")
	if err := os.WriteFile(filepath.Join(destPath, "HEAD"), head, 0o644); err != nil { //nolint:gosec // G306: HEAD is not secret
		return fmt.Errorf("write HEAD: %w", err)
	}

	return nil
}

// fetchRepo re-fetches the default branch into an existing bare repository,
// replacing its pack and refs. This subset's fetch client negotiates no
// common base, so a refresh is a full re-fetch rather than an incremental
// one: the old pack directory is cleared before the new pack is written.
func fetchRepo(ctx context.Context, repoPath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	headBytes, err := os.ReadFile(filepath.Join(repoPath, "HEAD"))
	if err != nil {
		return fmt.Errorf("read HEAD: %w", err)
	}
	headTarget := strings.TrimPrefix(strings.TrimSpace(string(headBytes)), "ref: ")

	remoteURL, err := readRemoteURL(repoPath)
	if err != nil {
		return err
	}

	client := fetch.NewClient(remoteURL)
	adv, err := client.DiscoverRefs(ctx)
	if err != nil {
		return fmt.Errorf("discover refs: %w", err)
	}

	branch := strings.TrimPrefix(headTarget, "refs/heads/")
	want, ok := findRef(adv, "refs/heads/"+branch)
	if !ok {
		return fmt.Errorf("tracked branch %q no longer on remote", branch)
	}

	packData, err := client.FetchPack(ctx, want)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("fetch timed out after %s", timeout)
		}
		return fmt.Errorf("fetch pack: %w", err)
	}

	packDir := filepath.Join(repoPath, "objects", "pack")
	entries, err := os.ReadDir(packDir)
	if err == nil {
		for _, e := range entries {
			_ = os.Remove(filepath.Join(packDir, e.Name()))
		}
	}

	return writeBareRepo(repoPath, adv, branch, packData)
}

// readRemoteURL recovers the origin URL recorded at clone time. Managed
// repositories store it in a plain-text "remote-url" file alongside the
// bare repository layout, since this subset does not implement a config
// file parser.
func readRemoteURL(repoPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, "remote-url"))
	if err != nil {
		return "", fmt.Errorf("read remote-url: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// isPrivateHost returns true if the hostname resolves to a private, loopback,
// or link-local IP address. This prevents SSRF attacks where a user-supplied
// clone URL targets internal infrastructure (e.g., cloud metadata endpoints).
func isPrivateHost(host string) bool {
	switch host {
	case "localhost", "metadata.google.internal":
		return true
	}

	ips, err := net.DefaultResolver.LookupHost(context.Background(), host)
	if err != nil {
		ip := net.ParseIP(host)
		if ip == nil {
			return false
		}
		return isPrivateIP(ip)
	}

	for _, ipStr := range ips {
		ip := net.ParseIP(ipStr)
		if ip != nil && isPrivateIP(ip) {
			return true
		}
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
