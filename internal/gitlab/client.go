package gitlab

import (
	"context"
)

// Pipeline describes the pipeline resource returned by the GitLab API when a
// pipeline is created.
type Pipeline struct {
	// ID is the numeric identifier of the created pipeline.
	ID int `json:"id"`
	// Ref is the branch the pipeline runs on.
	Ref string `json:"ref"`
	// Status is the initial pipeline status, usually "created" or "pending".
	Status string `json:"status"`
	// WebURL points at the pipeline page.
	WebURL string `json:"web_url"`
}

// Client is an interface for the GitLab pipeline API
type Client interface {
	// CreatePipeline calls the v4 "create a new pipeline" endpoint for the
	// given namespace ("group/project") on the given branch. It does not wait
	// for the pipeline to finish.
	CreatePipeline(ctx context.Context, namespace, branch string) (*Pipeline, error)
}
