package mirror

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// setupUpstream creates a non-bare repository with one commit to act as the
// fetch source.
func setupUpstream(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	commitFile(t, repo, dir, "README.md", "upstream")

	return dir, repo
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	_, err = worktree.Add(name)
	require.NoError(t, err)

	_, err = worktree.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestGitFetcherListRemotes(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, true)
	require.NoError(t, err)

	for _, name := range []string{"github", "gitlab"} {
		_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: name,
			URLs: []string{"https://example.com/" + name + ".git"},
		})
		require.NoError(t, err)
	}

	remotes, err := NewGitFetcher().ListRemotes(dir)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"github", "gitlab"}, remotes)
}

func TestGitFetcherListRemotesNotARepository(t *testing.T) {
	_, err := NewGitFetcher().ListRemotes(t.TempDir())
	require.Error(t, err)
}

func TestGitFetcherFetch(t *testing.T) {
	upstreamDir, upstream := setupUpstream(t)

	mirrorDir := t.TempDir()
	_, err := git.PlainClone(mirrorDir, true, &git.CloneOptions{URL: upstreamDir})
	require.NoError(t, err)

	fetcher := NewGitFetcher()
	ctx := context.Background()

	// Nothing changed upstream since the clone.
	updated, err := fetcher.Fetch(ctx, mirrorDir, "origin")
	require.NoError(t, err)
	require.False(t, updated)

	commitFile(t, upstream, upstreamDir, "CHANGES.md", "new upstream commit")

	updated, err = fetcher.Fetch(ctx, mirrorDir, "origin")
	require.NoError(t, err)
	require.True(t, updated)

	// And up to date again on the run after.
	updated, err = fetcher.Fetch(ctx, mirrorDir, "origin")
	require.NoError(t, err)
	require.False(t, updated)
}

func TestGitFetcherFetchUnknownRemote(t *testing.T) {
	upstreamDir, _ := setupUpstream(t)

	mirrorDir := t.TempDir()
	_, err := git.PlainClone(mirrorDir, true, &git.CloneOptions{URL: upstreamDir})
	require.NoError(t, err)

	_, err = NewGitFetcher().Fetch(context.Background(), mirrorDir, "does-not-exist")
	require.Error(t, err)
}
