package server

import (
	"github.com/okorvid/gitvc/internal/gitcore"
)

// FileStatus represents the status of a single file in the working tree.
type FileStatus struct {
	Path       string `json:"path"`
	StatusCode string `json:"statusCode"`
}

// WorkingTreeStatus groups files by their working tree state.
type WorkingTreeStatus struct {
	Staged    []FileStatus `json:"staged"`
	Modified  []FileStatus `json:"modified"`
	Untracked []FileStatus `json:"untracked"`
}

// indexStatusCode maps gitcore's staged-status strings to the single-letter
// codes the viewer frontend already expects.
var indexStatusCode = map[string]string{
	"added":    "A",
	"modified": "M",
	"deleted":  "D",
}

// workStatusCode maps gitcore's unstaged-status strings to the same codes.
var workStatusCode = map[string]string{
	"modified": "M",
	"deleted":  "D",
}

// getWorkingTreeStatus computes working tree status for repo without
// shelling out to git, grouping files the way the viewer frontend expects.
// Returns nil if the status cannot be computed (e.g. a bare repository).
func getWorkingTreeStatus(repo *gitcore.Repository) *WorkingTreeStatus {
	computed, err := gitcore.ComputeWorkingTreeStatus(repo)
	if err != nil {
		return nil
	}

	status := &WorkingTreeStatus{
		Staged:    []FileStatus{},
		Modified:  []FileStatus{},
		Untracked: []FileStatus{},
	}

	for _, f := range computed.Files {
		switch {
		case f.IsUntracked:
			status.Untracked = append(status.Untracked, FileStatus{Path: f.Path, StatusCode: "?"})
		default:
			if code, ok := indexStatusCode[f.IndexStatus]; ok {
				status.Staged = append(status.Staged, FileStatus{Path: f.Path, StatusCode: code})
			}
			if code, ok := workStatusCode[f.WorkStatus]; ok {
				status.Modified = append(status.Modified, FileStatus{Path: f.Path, StatusCode: code})
			}
		}
	}

	return status
}
