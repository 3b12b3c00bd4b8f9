// SPDX-License-Identifier: MPL-2.0

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

const remoteName = "origin"

type (
	// Fetcher keeps a local clone of a remote repository current.
	Fetcher interface {
		// Sync clones url into dest, or updates the existing clone at dest to
		// the remote tip of branch (the checked out branch when empty), and
		// returns the resulting commit.
		Sync(ctx context.Context, url, branch, dest string) (string, error)
	}

	// GitFetcher implements Fetcher with go-git.
	GitFetcher struct {
		sshAuth  transport.AuthMethod
		httpAuth transport.AuthMethod
	}
)

// NewGitFetcher creates a GitFetcher using the first credentials found in
// ~/.ssh or the GITHUB_TOKEN, GITLAB_TOKEN and GIT_TOKEN variables.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{sshAuth: trySSHAuth(), httpAuth: tryHTTPAuth()}
}

func (f *GitFetcher) authFor(url string) transport.AuthMethod {
	if strings.HasPrefix(url, "git@") || strings.HasPrefix(url, "ssh://") {
		return f.sshAuth
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return f.httpAuth
	}
	return nil
}

// Sync implements Fetcher.
func (f *GitFetcher) Sync(ctx context.Context, url, branch, dest string) (string, error) {
	repo, err := git.PlainOpen(dest)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return f.clone(ctx, url, branch, dest)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open cached clone %s: %w", dest, err)
	}

	if err := f.fetch(ctx, repo, url); err != nil {
		return "", err
	}
	return hardReset(repo, branch)
}

func (f *GitFetcher) clone(ctx context.Context, url, branch, dest string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create parent directory: %w", err)
	}

	opts := &git.CloneOptions{
		URL:        url,
		Auth:       f.authFor(url),
		RemoteName: remoteName,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		_ = os.RemoveAll(dest) // best-effort; a partial clone would be mistaken for a cache
		return "", fmt.Errorf("failed to clone %s: %w", url, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

func (f *GitFetcher) fetch(ctx context.Context, repo *git.Repository, url string) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		Auth:       f.authFor(url),
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	return nil
}

// hardReset moves the worktree to origin/<branch>, discarding local changes.
func hardReset(repo *git.Repository, branch string) (string, error) {
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return "", fmt.Errorf("failed to get HEAD: %w", err)
		}
		if !head.Name().IsBranch() {
			// Detached clone: nothing to follow.
			return head.Hash().String(), nil
		}
		branch = head.Name().Short()
	}

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		return "", fmt.Errorf("remote branch %s/%s not found: %w", remoteName, branch, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		return "", fmt.Errorf("failed to reset to %s: %w", ref.Hash(), err)
	}
	return ref.Hash().String(), nil
}

// HeadCommit returns the checked out commit of the clone at dir.
func HeadCommit(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

func trySSHAuth() transport.AuthMethod {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir, ".ssh", name)
		if _, err := os.Stat(keyPath); err != nil {
			continue
		}
		if auth, err := ssh.NewPublicKeysFromFile("git", keyPath, ""); err == nil {
			return auth
		}
	}
	return nil
}

func tryHTTPAuth() transport.AuthMethod {
	tokens := []struct{ env, user string }{
		{"GITHUB_TOKEN", "x-access-token"},
		{"GITLAB_TOKEN", "gitlab-ci-token"},
		{"GIT_TOKEN", "git"},
	}
	for _, tok := range tokens {
		if v := strings.TrimSpace(os.Getenv(tok.env)); v != "" {
			return &http.BasicAuth{Username: tok.user, Password: v}
		}
	}
	return nil
}
