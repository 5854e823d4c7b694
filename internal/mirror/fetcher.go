package mirror

import (
	"context"
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
)

// RemoteFetcher abstracts the VCS operations the orchestrator needs: listing
// a repository's configured remotes and fetching from one of them.
type RemoteFetcher interface {
	// ListRemotes returns the names of the remotes configured on the
	// repository at path.
	ListRemotes(path string) ([]string, error)
	// Fetch fetches from the named remote. The boolean reports whether the
	// fetch actually updated any local references, as opposed to merely
	// completing without error.
	Fetch(ctx context.Context, path, remote string) (bool, error)
}

// GitFetcher fetches using go-git, operating directly on the bare
// repositories on disk.
type GitFetcher struct{}

// NewGitFetcher returns a RemoteFetcher backed by go-git.
func NewGitFetcher() GitFetcher { return GitFetcher{} }

// ListRemotes implements RemoteFetcher.
func (GitFetcher) ListRemotes(path string) ([]string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository %q: %w", path, err)
	}

	remotes, err := repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes of %q: %w", path, err)
	}

	names := make([]string, 0, len(remotes))
	for _, remote := range remotes {
		names = append(names, remote.Config().Name)
	}

	return names, nil
}

// Fetch implements RemoteFetcher. go-git signals an up-to-date repository
// with NoErrAlreadyUpToDate; that is a successful fetch that updated nothing.
func (GitFetcher) Fetch(ctx context.Context, path, remote string) (bool, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return false, fmt.Errorf("open repository %q: %w", path, err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remote})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
