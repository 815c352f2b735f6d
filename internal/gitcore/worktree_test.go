package gitcore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestScanWorktree_SkipsGitDirAndBuildOutput(t *testing.T) {
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "main.go"), "package main\n")
	mustWrite(t, filepath.Join(dir, gitMetaDir, "HEAD"), "ref: refs/heads/main\n")
	mustWrite(t, filepath.Join(dir, buildOutputDir, "bin"), "binary\n")
	mustWrite(t, filepath.Join(dir, "sub", "util.go"), "package sub\n")

	files, err := ScanWorktree(dir)
	if err != nil {
		t.Fatalf("ScanWorktree: %v", err)
	}

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}

	want := []string{"main.go", "sub/util.go"}
	if len(paths) != len(want) {
		t.Fatalf("Paths: got %v, want %v", paths, want)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("Paths[%d]: got %q, want %q", i, paths[i], p)
		}
	}
}

func TestScanWorktree_ExecutableMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit is not meaningful on windows")
	}
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "script.sh"), "#!/bin/sh\necho hi\n")
	if err := os.Chmod(filepath.Join(dir, "script.sh"), 0o755); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	mustWrite(t, filepath.Join(dir, "plain.txt"), "hello\n")

	files, err := ScanWorktree(dir)
	if err != nil {
		t.Fatalf("ScanWorktree: %v", err)
	}

	byPath := make(map[string]WorktreeFile)
	for _, f := range files {
		byPath[f.Path] = f
	}

	if got := byPath["script.sh"].Mode; got != modeExecutable {
		t.Errorf("script.sh Mode: got %q, want %q", got, modeExecutable)
	}
	if got := byPath["plain.txt"].Mode; got != modeFile {
		t.Errorf("plain.txt Mode: got %q, want %q", got, modeFile)
	}
}

func TestScanWorktree_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}
	dir := t.TempDir()

	mustWrite(t, filepath.Join(dir, "target.txt"), "content\n")
	linkPath := filepath.Join(dir, "link.txt")
	if err := os.Symlink("target.txt", linkPath); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	files, err := ScanWorktree(dir)
	if err != nil {
		t.Fatalf("ScanWorktree: %v", err)
	}

	var found bool
	for _, f := range files {
		if f.Path == "link.txt" {
			found = true
			if f.Mode != modeSymlink {
				t.Errorf("link.txt Mode: got %q, want %q", f.Mode, modeSymlink)
			}
		}
	}
	if !found {
		t.Fatal("link.txt not found in scan results")
	}
}

func TestScanWorktree_SortedByPath(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "zebra.txt"), "z\n")
	mustWrite(t, filepath.Join(dir, "alpha.txt"), "a\n")
	mustWrite(t, filepath.Join(dir, "mid", "file.txt"), "m\n")

	files, err := ScanWorktree(dir)
	if err != nil {
		t.Fatalf("ScanWorktree: %v", err)
	}

	want := []string{"alpha.txt", "mid/file.txt", "zebra.txt"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d", len(files), len(want))
	}
	for i, w := range want {
		if files[i].Path != w {
			t.Errorf("files[%d].Path = %q, want %q", i, files[i].Path, w)
		}
	}
}

func TestStageFile_WritesBlobAndBuildsEntry(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, gitMetaDir)
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	content := "hello world\n"
	mustWrite(t, filepath.Join(dir, "hello.txt"), content)

	files, err := ScanWorktree(dir)
	if err != nil {
		t.Fatalf("ScanWorktree: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}

	entry, err := StageFile(gitDir, files[0])
	if err != nil {
		t.Fatalf("StageFile: %v", err)
	}

	if entry.Path != "hello.txt" {
		t.Errorf("Path: got %q", entry.Path)
	}
	if entry.FileSize != uint32(len(content)) {
		t.Errorf("FileSize: got %d, want %d", entry.FileSize, len(content))
	}
	wantName := hashObject(BlobObject, []byte(content))
	if entry.Hash != wantName.ToHash() {
		t.Errorf("Hash: got %s, want %s", entry.Hash, wantName.ToHash())
	}

	kind, payload, err := readLooseObject(gitDir, wantName)
	if err != nil {
		t.Fatalf("readLooseObject: %v", err)
	}
	if kind != BlobObject {
		t.Errorf("stored object kind: got %v, want blob", kind)
	}
	if string(payload) != content {
		t.Errorf("stored payload: got %q, want %q", payload, content)
	}
}

func TestStageFile_SymlinkStoresTargetAsContent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}
	dir := t.TempDir()
	gitDir := filepath.Join(dir, gitMetaDir)
	if err := os.MkdirAll(gitDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	mustWrite(t, filepath.Join(dir, "target.txt"), "content\n")
	linkPath := filepath.Join(dir, "link.txt")
	if err := os.Symlink("target.txt", linkPath); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	files, err := ScanWorktree(dir)
	if err != nil {
		t.Fatalf("ScanWorktree: %v", err)
	}

	var link WorktreeFile
	for _, f := range files {
		if f.Path == "link.txt" {
			link = f
		}
	}

	entry, err := StageFile(gitDir, link)
	if err != nil {
		t.Fatalf("StageFile: %v", err)
	}

	wantName := hashObject(BlobObject, []byte("target.txt"))
	if entry.Hash != wantName.ToHash() {
		t.Errorf("Hash: got %s, want %s", entry.Hash, wantName.ToHash())
	}
	if entry.Mode != 0o120000 {
		t.Errorf("Mode: got %o, want %o", entry.Mode, 0o120000)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}
