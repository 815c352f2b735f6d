package gitcore

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// WorktreeFile is a single file discovered by ScanWorktree, ready to be
// turned into a staging IndexEntry once its blob has been hashed.
type WorktreeFile struct {
	// Path is the slash-separated path relative to the working tree root.
	Path string
	// Mode is the tree-entry mode string ("100644", "100755", or "120000").
	Mode string
	// AbsPath is the file's absolute location on disk.
	AbsPath string
	Info    fs.FileInfo
}

// ScanWorktree walks workDir and returns every regular file and symlink,
// skipping .git and the build-output directory, sorted by path. It applies
// no ignore rules of any kind — .gitignore processing is out of scope.
func ScanWorktree(workDir string) ([]WorktreeFile, error) {
	var files []WorktreeFile

	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == gitMetaDir || d.Name() == buildOutputDir {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return ioErr("worktree-scan", err)
		}

		relPath, err := filepath.Rel(workDir, path)
		if err != nil {
			return ioErr("worktree-scan", err)
		}
		relPath = filepath.ToSlash(relPath)

		mode := modeFile
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			mode = modeSymlink
		case info.Mode()&0o111 != 0:
			mode = modeExecutable
		}

		files = append(files, WorktreeFile{
			Path:    relPath,
			Mode:    mode,
			AbsPath: path,
			Info:    info,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// StageFile hashes the file at f.AbsPath as a blob (writing it into gitDir's
// object store) and builds the corresponding IndexEntry, carrying over the
// on-disk stat data the staging index caches for fast status checks.
func StageFile(gitDir string, f WorktreeFile) (IndexEntry, error) {
	var data []byte
	var err error

	if f.Mode == modeSymlink {
		target, linkErr := os.Readlink(f.AbsPath)
		if linkErr != nil {
			return IndexEntry{}, ioErr("worktree-stage", linkErr)
		}
		data = []byte(target)
	} else {
		//nolint:gosec // G304: path comes from the repository's own working-tree walk
		data, err = os.ReadFile(f.AbsPath)
		if err != nil {
			return IndexEntry{}, ioErr("worktree-stage", err)
		}
	}

	name, err := writeLooseObject(gitDir, BlobObject, data)
	if err != nil {
		return IndexEntry{}, err
	}

	kind, perm := treeModeToStat(f.Mode)
	stat := statTimes(f.Info)

	return IndexEntry{
		CtimeSec:  stat.ctimeSec,
		CtimeNsec: stat.ctimeNsec,
		MtimeSec:  stat.mtimeSec,
		MtimeNsec: stat.mtimeNsec,
		Device:    stat.device,
		Inode:     stat.inode,
		Mode:      kind<<12 | perm,
		UID:       stat.uid,
		GID:       stat.gid,
		FileSize:  uint32(len(data)), //nolint:gosec // file content length is bounded well under 2^32
		Hash:      name.ToHash(),
		Path:      f.Path,
	}, nil
}

func treeModeToStat(mode string) (kind, perm uint32) {
	switch mode {
	case modeSymlink:
		return 0o12, 0
	case modeExecutable:
		return 0o10, 0o755
	default:
		return 0o10, 0o644
	}
}
