package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Select discovers the bare repositories living exactly two levels below
// rootDir, laid out as <rootDir>/<namespace>/<name>.git. Wiki repositories
// (*.wiki.git) are never selected. Any repository whose path starts with
// rootDir joined with an ignore entry is removed, so an ignore entry also
// excludes everything nested under it.
//
// A missing root is not an error: the selection is simply empty. An
// unreadable root yields an empty selection together with the error so the
// caller can report it.
func Select(rootDir string, ignore []string) ([]string, error) {
	namespaces, err := os.ReadDir(rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read mirror root %q: %w", rootDir, err)
	}

	var repos []string
	for _, namespace := range namespaces {
		if !namespace.IsDir() {
			continue
		}

		entries, err := os.ReadDir(filepath.Join(rootDir, namespace.Name()))
		if err != nil {
			// A namespace that vanished mid-walk is treated like an empty one.
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			name := entry.Name()
			if !strings.HasSuffix(name, ".git") || strings.HasSuffix(name, ".wiki.git") {
				continue
			}

			repos = append(repos, filepath.Join(rootDir, namespace.Name(), name))
		}
	}

	return subtractIgnored(rootDir, repos, ignore), nil
}

// subtractIgnored removes every repository whose path has one of the ignore
// fragments, joined with the root, as prefix. This is a single pure pass over
// the candidate list; the list is never mutated while being matched against.
func subtractIgnored(rootDir string, repos, ignore []string) []string {
	if len(ignore) == 0 {
		return repos
	}

	prefixes := make([]string, 0, len(ignore))
	for _, fragment := range ignore {
		prefixes = append(prefixes, filepath.Join(rootDir, fragment))
	}

	kept := repos[:0]
	for _, repo := range repos {
		if !hasIgnoredPrefix(repo, prefixes) {
			kept = append(kept, repo)
		}
	}

	return kept
}

func hasIgnoredPrefix(repo string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(repo, prefix) {
			return true
		}
	}
	return false
}

// Namespace derives the "group/name" namespace of a mirrored repository from
// its path relative to the mirror root.
func Namespace(rootDir, repoPath string) string {
	rel, err := filepath.Rel(rootDir, repoPath)
	if err != nil {
		rel = repoPath
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), ".git")
}
