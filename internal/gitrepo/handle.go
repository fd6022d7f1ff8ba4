// Package gitrepo provides access to local git repositories through the
// git CLI, plus a process-local cache of per-project repository handles.
package gitrepo

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCommandTimeout bounds a single git invocation so a corrupted or
// oversized repository cannot hang an ingestion batch.
const DefaultCommandTimeout = 30 * time.Second

// Handle is a reusable accessor for one resolved repository path. Safe for
// concurrent use; every invocation shares the handle's rate limiter.
type Handle struct {
	projectID string
	path      string
	timeout   time.Duration
	limiter   *rate.Limiter
}

// NewHandle builds a handle bound to a verified repository path.
func NewHandle(projectID, path string, timeout time.Duration, limiter *rate.Limiter) *Handle {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Handle{projectID: projectID, path: path, timeout: timeout, limiter: limiter}
}

// Path returns the resolved repository path.
func (h *Handle) Path() string { return h.path }

// ProjectID returns the project this handle is bound to.
func (h *Handle) ProjectID() string { return h.projectID }

// run executes a git subcommand in the repository with the handle's
// timeout applied.
func (h *Handle) run(ctx context.Context, args ...string) (string, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = h.path
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %w (stderr: %s)", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(output), nil
}

// LogOptions narrows a Log call.
type LogOptions struct {
	Limit    int
	Since    *time.Time
	Branch   string // branch or revision; empty means HEAD
	Revision string // exact revision for a single-commit lookup
}

// Log returns commits in descending recency order with per-file numstat
// data attached.
func (h *Handle) Log(ctx context.Context, opts LogOptions) ([]CommitRecord, error) {
	args := []string{"log", "--numstat", "--date=iso-strict", "--pretty=format:" + logFormat}
	if opts.Limit > 0 {
		args = append(args, fmt.Sprintf("--max-count=%d", opts.Limit))
	}
	if opts.Since != nil {
		args = append(args, "--since="+opts.Since.Format(time.RFC3339))
	}
	switch {
	case opts.Revision != "":
		args = append(args, "--max-count=1", opts.Revision)
	case opts.Branch != "":
		args = append(args, opts.Branch)
	}

	output, err := h.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(output)
}

// Show returns a single commit with its file stats.
func (h *Handle) Show(ctx context.Context, hash string) (*CommitRecord, error) {
	records, err := h.Log(ctx, LogOptions{Revision: hash})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("commit %s not found in %s", hash, h.path)
	}
	return &records[0], nil
}

// ContainingBranches lists every local branch that contains the commit.
func (h *Handle) ContainingBranches(ctx context.Context, hash string) ([]string, error) {
	output, err := h.run(ctx, "branch", "--contains", hash, "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	var branches []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// BranchRef is one branch as listed by the repository.
type BranchRef struct {
	Name     string
	Head     string
	IsRemote bool
	Upstream string
}

// Branches lists local branches, and remote-tracking branches when
// includeRemote is set.
func (h *Handle) Branches(ctx context.Context, includeRemote bool) ([]BranchRef, error) {
	args := []string{"branch", "--format=%(refname:short)%09%(objectname)%09%(upstream:short)"}
	if includeRemote {
		args = append(args, "-a")
	}
	output, err := h.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var refs []BranchRef
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		name := parts[0]
		// Detached HEAD entries and symbolic remote HEAD pointers are
		// not branches.
		if strings.Contains(name, "HEAD") {
			continue
		}
		ref := BranchRef{Name: name, Head: parts[1]}
		if len(parts) >= 3 {
			ref.Upstream = parts[2]
		}
		if strings.HasPrefix(name, "remotes/") || strings.HasPrefix(name, "origin/") {
			ref.IsRemote = true
			ref.Name = strings.TrimPrefix(ref.Name, "remotes/")
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// CurrentBranch returns the checked-out branch name.
func (h *Handle) CurrentBranch(ctx context.Context) (string, error) {
	output, err := h.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// LastCommit returns the most recent commit on a branch, without file
// stats.
func (h *Handle) LastCommit(ctx context.Context, branch string) (*CommitRecord, error) {
	records, err := h.Log(ctx, LogOptions{Limit: 1, Branch: branch})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("branch %s has no commits", branch)
	}
	return &records[0], nil
}

// BlobSize returns the size in bytes of a file at a given commit.
func (h *Handle) BlobSize(ctx context.Context, hash, path string) (int64, error) {
	output, err := h.run(ctx, "cat-file", "-s", hash+":"+path)
	if err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(output), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse blob size for %s: %w", path, err)
	}
	return size, nil
}
