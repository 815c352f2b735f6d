package gitcore

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// gitMetaDir is the repository metadata directory name skipped by both the
// tree builder and the working-tree scanner.
const gitMetaDir = ".git"

// buildOutputDir is the project-convention build output directory skipped
// alongside .git, per §4.2/§4.6.
const buildOutputDir = "target"

const (
	modeDir        = "40000"
	modeFile       = "100644"
	modeExecutable = "100755"
	modeSymlink    = "120000"
)

// treeBuildEntry is an entry collected while building a tree before it is
// serialized; it mirrors TreeEntry but carries a raw 20-byte target.
type treeBuildEntry struct {
	mode   string
	name   string
	target ObjectName
}

// sortKey is the key tree entries are sorted by: the name with "/"
// appended for subtrees. This ordering is load-bearing and must match
// peer implementations byte-for-byte.
func (e treeBuildEntry) sortKey() string {
	if e.mode == modeDir {
		return e.name + "/"
	}
	return e.name
}

// serializeTreeEntries concatenates "<mode> <name>\0<20-byte target>" for
// each entry, sorted by sortKey, and returns the Tree object's payload.
func serializeTreeEntries(entries []treeBuildEntry) []byte {
	sorted := make([]treeBuildEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].sortKey() < sorted[j].sortKey() })

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteString(e.mode)
		buf.WriteByte(' ')
		buf.WriteString(e.name)
		buf.WriteByte(0)
		buf.Write(e.target.Bytes())
	}
	return buf.Bytes()
}

// BuildTree recursively hashes and writes (if gitDir is non-empty) the
// directory rooted at path, skipping .git and the build-output directory.
// Empty directories produce no entry and are themselves omitted from their
// parent. Returns the root tree's ObjectName.
func BuildTree(gitDir, path string) (ObjectName, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return ObjectName{}, ioErr("tree-build", err)
	}

	var built []treeBuildEntry
	for _, entry := range entries {
		name := entry.Name()
		if name == gitMetaDir || name == buildOutputDir {
			continue
		}
		full := filepath.Join(path, name)

		if entry.IsDir() {
			subTree, err := BuildTree(gitDir, full)
			if err != nil {
				return ObjectName{}, err
			}
			if subTree.IsZero() {
				continue
			}
			built = append(built, treeBuildEntry{mode: modeDir, name: name, target: subTree})
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return ObjectName{}, ioErr("tree-build", err)
		}

		mode, target, err := hashWorktreeFile(gitDir, full, info)
		if err != nil {
			return ObjectName{}, err
		}
		built = append(built, treeBuildEntry{mode: mode, name: name, target: target})
	}

	if len(built) == 0 {
		return ObjectName{}, nil
	}

	payload := serializeTreeEntries(built)
	name := hashObject(TreeObject, payload)
	if gitDir != "" {
		if _, err := writeLooseObject(gitDir, TreeObject, payload); err != nil {
			return ObjectName{}, err
		}
	}
	return name, nil
}

// hashWorktreeFile hashes a regular file or symlink as a blob, optionally
// writing it to the object store, and returns its tree-entry mode.
func hashWorktreeFile(gitDir, path string, info fs.FileInfo) (string, ObjectName, error) {
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return "", ObjectName{}, ioErr("tree-build", err)
		}
		name, err := hashOrWriteBlob(gitDir, []byte(target))
		return modeSymlink, name, err
	}

	//nolint:gosec // G304: path is a file discovered by the repository's own directory walk
	data, err := os.ReadFile(path)
	if err != nil {
		return "", ObjectName{}, ioErr("tree-build", err)
	}
	name, err := hashOrWriteBlob(gitDir, data)
	if err != nil {
		return "", ObjectName{}, err
	}

	mode := modeFile
	if info.Mode()&0o111 != 0 {
		mode = modeExecutable
	}
	return mode, name, nil
}

func hashOrWriteBlob(gitDir string, data []byte) (ObjectName, error) {
	if gitDir == "" {
		return hashObject(BlobObject, data), nil
	}
	return writeLooseObject(gitDir, BlobObject, data)
}

// parseTreeBody parses the body of a tree object into a Tree struct.
func parseTreeBody(body []byte, id Hash) (*Tree, error) {
	tree := &Tree{ID: id, Entries: make([]TreeEntry, 0)}
	reader := bytes.NewReader(body)

	for {
		var modeBuilder strings.Builder
		for {
			b, err := reader.ReadByte()
			if err == io.EOF {
				return tree, nil
			}
			if err != nil {
				return nil, truncatedf("tree-parse", "reading mode: %w", err)
			}
			if b == ' ' {
				break
			}
			modeBuilder.WriteByte(b)
		}
		mode := modeBuilder.String()

		var nameBuilder strings.Builder
		for {
			b, err := reader.ReadByte()
			if err != nil {
				return nil, truncatedf("tree-parse", "reading name: %w", err)
			}
			if b == 0 {
				break
			}
			nameBuilder.WriteByte(b)
		}
		name := nameBuilder.String()

		var hashBytes [20]byte
		if _, err := io.ReadFull(reader, hashBytes[:]); err != nil {
			return nil, truncatedf("tree-parse", "reading target: %w", err)
		}
		hash, err := NewHashFromBytes(hashBytes)
		if err != nil {
			return nil, malformedf("tree-parse", "invalid target hash: %w", err)
		}

		var entryType string
		switch {
		case strings.HasPrefix(mode, "100"):
			entryType = "blob"
		case mode == modeDir || mode == "040000":
			entryType = "tree"
		case mode == modeSymlink || mode == "160000":
			entryType = "commit"
		default:
			entryType = StatusUnknown
		}

		tree.Entries = append(tree.Entries, TreeEntry{ID: hash, Name: name, Mode: mode, Type: entryType})
	}
}
