package gitcore

import (
	"bufio"
	"bytes"
	"strings"
)

// parseTagBody parses the body of an annotated tag object into a Tag
// struct. Tag write/formatting is out of scope — the source project only
// ever consumes tags produced by a peer implementation.
func parseTagBody(body []byte, id Hash) (*Tag, error) {
	tag := &Tag{ID: id}
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
		case strings.HasPrefix(line, "object "):
			objectHash, err := NewHash(strings.TrimPrefix(line, "object "))
			if err != nil {
				return nil, malformedf("tag-parse", "invalid object hash: %w", err)
			}
			tag.Object = objectHash
		case strings.HasPrefix(line, "type "):
			tag.ObjType = StrToObjectType(strings.TrimPrefix(line, "type "))
		case strings.HasPrefix(line, "tag "):
			tag.Name = strings.TrimPrefix(line, "tag ")
		case strings.HasPrefix(line, "tagger "):
			tagger, err := NewSignature(strings.TrimPrefix(line, "tagger "))
			if err != nil {
				return nil, malformedf("tag-parse", "invalid tagger: %w", err)
			}
			tag.Tagger = tagger
		}
	}

	tag.Message = strings.TrimSpace(strings.Join(messageLines, "\n"))
	return tag, nil
}
