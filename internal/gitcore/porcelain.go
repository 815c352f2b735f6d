package gitcore

import (
	"os"
	"path/filepath"
)

// HashObject computes the ObjectName of data as the given kind and, if
// write is true, publishes it into gitDir's loose object store.
func HashObject(gitDir string, kind ObjectType, data []byte, write bool) (ObjectName, error) {
	if write {
		return writeLooseObject(gitDir, kind, data)
	}
	return hashObject(kind, data), nil
}

// WriteTree hashes (and writes) the working tree rooted at workDir as a
// Tree object, the `write-tree` porcelain operation.
func WriteTree(gitDir, workDir string) (ObjectName, error) {
	name, err := BuildTree(gitDir, workDir)
	if err != nil {
		return ObjectName{}, err
	}
	if name.IsZero() {
		// An empty working tree still has a well-defined empty Tree object.
		return writeLooseObject(gitDir, TreeObject, nil)
	}
	return name, nil
}

// CheckoutTree materializes the tree named by root into destDir: blobs are
// written as regular files (executable bit set from mode), subtrees are
// recursively materialized, and symlinks are recreated pointing at the
// blob's content as a path string.
func CheckoutTree(r *Repository, root Hash, destDir string) error {
	tree, err := r.GetTree(root)
	if err != nil {
		return err
	}
	return checkoutTreeEntries(r, tree, destDir)
}

func checkoutTreeEntries(r *Repository, tree *Tree, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return ioErr("checkout", err)
	}
	for _, entry := range tree.Entries {
		dest := filepath.Join(destDir, entry.Name)
		switch entry.Mode {
		case modeDir, "040000":
			subTree, err := r.GetTree(entry.ID)
			if err != nil {
				return err
			}
			if err := checkoutTreeEntries(r, subTree, dest); err != nil {
				return err
			}
		case modeSymlink:
			target, err := r.GetBlob(entry.ID)
			if err != nil {
				return err
			}
			_ = os.Remove(dest)
			if err := os.Symlink(string(target), dest); err != nil {
				return ioErr("checkout", err)
			}
		default:
			data, err := r.GetBlob(entry.ID)
			if err != nil {
				return err
			}
			perm := os.FileMode(0o644)
			if entry.Mode == modeExecutable {
				perm = 0o755
			}
			if err := os.WriteFile(dest, data, perm); err != nil {
				return ioErr("checkout", err)
			}
		}
	}
	return nil
}
