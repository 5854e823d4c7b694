package mirror

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupMirrorRoot(t *testing.T, repos ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, repo := range repos {
		require.NoError(t, os.MkdirAll(filepath.Join(root, repo), 0o755))
	}

	return root
}

func TestSelect(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		repos    []string
		ignore   []string
		expected []string
	}{
		{
			desc:     "bare repositories two levels down",
			repos:    []string{"group-a/project.git", "group-b/other.git"},
			expected: []string{"group-a/project.git", "group-b/other.git"},
		},
		{
			desc:     "wiki repositories are never selected",
			repos:    []string{"group-a/project.git", "group-a/project.wiki.git"},
			expected: []string{"group-a/project.git"},
		},
		{
			desc:     "directories without the git suffix are skipped",
			repos:    []string{"group-a/project.git", "group-a/checkout"},
			expected: []string{"group-a/project.git"},
		},
		{
			desc:     "ignore entry excludes a single repository",
			repos:    []string{"group-a/project.git", "group-a/legacy.git"},
			ignore:   []string{"group-a/legacy.git"},
			expected: []string{"group-a/project.git"},
		},
		{
			desc:     "ignore entry excludes everything nested under it",
			repos:    []string{"group-a/project.git", "group-b/one.git", "group-b/two.git"},
			ignore:   []string{"group-b"},
			expected: []string{"group-a/project.git"},
		},
		{
			desc:     "overlapping ignore entries",
			repos:    []string{"group-a/project.git", "group-b/one.git", "group-b/two.git"},
			ignore:   []string{"group-b", "group-b/one.git"},
			expected: []string{"group-a/project.git"},
		},
		{
			desc:     "empty root",
			repos:    nil,
			expected: nil,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			root := setupMirrorRoot(t, tc.repos...)

			selected, err := Select(root, tc.ignore)
			require.NoError(t, err)

			expected := make([]string, 0, len(tc.expected))
			for _, repo := range tc.expected {
				expected = append(expected, filepath.Join(root, repo))
			}

			require.ElementsMatch(t, expected, selected)
		})
	}
}

func TestSelectMissingRoot(t *testing.T) {
	selected, err := Select(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	require.NoError(t, err)
	require.Empty(t, selected)
}

func TestSelectSkipsTopLevelFiles(t *testing.T) {
	root := setupMirrorRoot(t, "group-a/project.git")
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray-file"), []byte("x"), 0o644))

	selected, err := Select(root, nil)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(root, "group-a", "project.git")}, selected)
}

func TestSelectNoDuplicates(t *testing.T) {
	root := setupMirrorRoot(t, "group-a/project.git", "group-b/project.git")

	selected, err := Select(root, nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, repo := range selected {
		require.False(t, seen[repo], "duplicate selection of %s", repo)
		seen[repo] = true
	}
}
