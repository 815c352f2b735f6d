package gitcore

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// SerializeCommit renders a commit's header lines in the exact required
// order — tree, parents in insertion order, author, committer, a blank
// line, then the message — and returns the resulting payload.
func SerializeCommit(tree ObjectName, parents []ObjectName, author, committer Signature, message string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", tree)
	for _, p := range parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", formatSignature(author))
	fmt.Fprintf(&buf, "committer %s\n", formatSignature(committer))
	buf.WriteByte('\n')
	buf.WriteString(message)
	if len(message) == 0 || message[len(message)-1] != '\n' {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// formatSignature renders a Signature as "<name> <email> <unix-seconds>
// <tz-offset>".
func formatSignature(s Signature) string {
	_, offset := s.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours := offset / 3600
	mins := (offset % 3600) / 60
	return fmt.Sprintf("%s <%s> %d %s%02d%02d", s.Name, s.Email, s.When.Unix(), sign, hours, mins)
}

// CommitTree creates a commit object pointing at tree with the given
// parents, author/committer identity, and message, writes it to gitDir,
// and returns its ObjectName.
func CommitTree(gitDir string, tree ObjectName, parents []ObjectName, author, committer Signature, message string) (ObjectName, error) {
	payload := SerializeCommit(tree, parents, author, committer, message)
	return writeLooseObject(gitDir, CommitObject, payload)
}

// parseCommitBody parses the body of a commit object into a Commit struct.
func parseCommitBody(body []byte, id Hash) (*Commit, error) {
	commit := &Commit{ID: id}
	scanner := bufio.NewScanner(bytes.NewReader(body))
	inMessage := false
	var messageLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if inMessage {
			messageLines = append(messageLines, line)
			continue
		}
		if line == "" {
			inMessage = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "parent "):
			parent, err := NewHash(strings.TrimPrefix(line, "parent "))
			if err != nil {
				return nil, malformedf("commit-parse", "invalid parent hash: %w", err)
			}
			commit.Parents = append(commit.Parents, parent)
		case strings.HasPrefix(line, "tree "):
			tree, err := NewHash(strings.TrimPrefix(line, "tree "))
			if err != nil {
				return nil, malformedf("commit-parse", "invalid tree hash: %w", err)
			}
			commit.Tree = tree
		case strings.HasPrefix(line, "author "):
			author, err := NewSignature(strings.TrimPrefix(line, "author "))
			if err != nil {
				return nil, malformedf("commit-parse", "invalid author signature: %w", err)
			}
			commit.Author = author
		case strings.HasPrefix(line, "committer "):
			committer, err := NewSignature(strings.TrimPrefix(line, "committer "))
			if err != nil {
				return nil, malformedf("commit-parse", "invalid committer signature: %w", err)
			}
			commit.Committer = committer
		}
	}

	commit.Message = strings.TrimSpace(strings.Join(messageLines, "\n"))
	return commit, nil
}
