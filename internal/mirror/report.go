package mirror

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Report accumulates the outcomes of one orchestration run: the paths that
// fetched successfully and the formatted failures. It is handed off to the
// notifier when the run ends and is safe for concurrent appends.
type Report struct {
	// RunID correlates the report with the log entries of the run that
	// produced it.
	RunID string

	mu        sync.Mutex
	successes []string
	failures  []string
}

// NewReport returns an empty report tagged with a fresh run id.
func NewReport() *Report {
	return &Report{RunID: uuid.New().String()}
}

// RecordSuccess appends path to the successes. A repository fetched from
// several remotes appears once per successful fetch.
func (r *Report) RecordSuccess(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes = append(r.successes, path)
}

// RecordFailure formats the failed (repository, remote) pair with the error
// message and appends it to the failures. An empty remote records a failure
// of the repository as a whole, such as its remotes being unreadable.
func (r *Report) RecordFailure(path, remote string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if remote == "" {
		r.failures = append(r.failures, fmt.Sprintf("sync of %s failed: %v", path, err))
		return
	}

	r.failures = append(r.failures, fmt.Sprintf("fetch %q of %s failed: %v", remote, path, err))
}

// Successes returns a copy of the accumulated success paths.
func (r *Report) Successes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.successes...)
}

// Failures returns a copy of the accumulated failure entries.
func (r *Report) Failures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failures...)
}

// Empty reports whether the run produced no outcomes at all.
func (r *Report) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.successes) == 0 && len(r.failures) == 0
}

// Text renders the report as plain text for the notifier.
func (r *Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Mirror run %s\n", r.RunID)

	if failures := r.Failures(); len(failures) > 0 {
		b.WriteString("\nFailures:\n")
		for _, failure := range failures {
			fmt.Fprintf(&b, "  - %s\n", failure)
		}
	}

	if successes := r.Successes(); len(successes) > 0 {
		b.WriteString("\nFetched:\n")
		for _, success := range successes {
			fmt.Fprintf(&b, "  - %s\n", success)
		}
	}

	return b.String()
}

// HTML renders the report as a minimal HTML document for mail clients that
// prefer it over plain text.
func (r *Report) HTML() string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h3>Mirror run %s</h3>\n", html.EscapeString(r.RunID))

	writeList := func(heading string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&b, "<h4>%s</h4>\n<ul>\n", heading)
		for _, item := range items {
			fmt.Fprintf(&b, "<li>%s</li>\n", html.EscapeString(item))
		}
		b.WriteString("</ul>\n")
	}

	writeList("Failures", r.Failures())
	writeList("Fetched", r.Successes())

	return b.String()
}
