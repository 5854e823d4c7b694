package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrMalformedPayload is returned when a notification matches neither of the
// known provider shapes. There is no fallback guessing beyond the two shapes.
var ErrMalformedPayload = errors.New("webhook payload matches no known provider shape")

// Payload identifies the repository a provider notification refers to. It is
// one of GitLabPayload or GitHubPayload.
type Payload interface {
	// Namespace returns the group or owner segment of the repository.
	Namespace() string
	// Name returns the repository name.
	Name() string
}

// GitLabPayload is the shape GitLab sends: the repository lives under the
// "project" key.
type GitLabPayload struct {
	ProjectNamespace string
	ProjectName      string
}

// Namespace implements Payload.
func (p GitLabPayload) Namespace() string { return p.ProjectNamespace }

// Name implements Payload.
func (p GitLabPayload) Name() string { return p.ProjectName }

// GitHubPayload is the shape GitHub sends: the repository lives under the
// "repository" key with its owner nested inside.
type GitHubPayload struct {
	OwnerLogin string
	RepoName   string
}

// Namespace implements Payload.
func (p GitHubPayload) Namespace() string { return p.OwnerLogin }

// Name implements Payload.
func (p GitHubPayload) Name() string { return p.RepoName }

// ParsePayload detects which provider sent the notification and parses it
// into the matching variant. A document carrying a "project" key is treated
// as the GitLab shape; otherwise the GitHub shape is tried. Missing required
// fields fail closed with ErrMalformedPayload.
func ParsePayload(data []byte) (Payload, error) {
	var probe struct {
		Project *struct {
			Namespace string `json:"namespace"`
			Name      string `json:"name"`
		} `json:"project"`
		Repository *struct {
			Owner *struct {
				Login string `json:"login"`
			} `json:"owner"`
			Name string `json:"name"`
		} `json:"repository"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if probe.Project != nil {
		if probe.Project.Namespace == "" || probe.Project.Name == "" {
			return nil, ErrMalformedPayload
		}
		return GitLabPayload{
			ProjectNamespace: probe.Project.Namespace,
			ProjectName:      probe.Project.Name,
		}, nil
	}

	if probe.Repository != nil {
		if probe.Repository.Owner == nil || probe.Repository.Owner.Login == "" || probe.Repository.Name == "" {
			return nil, ErrMalformedPayload
		}
		return GitHubPayload{
			OwnerLogin: probe.Repository.Owner.Login,
			RepoName:   probe.Repository.Name,
		}, nil
	}

	return nil, ErrMalformedPayload
}

// ResolvePath derives the absolute local mirror path of the repository a
// payload refers to.
func ResolvePath(rootDir string, payload Payload) string {
	return filepath.Join(rootDir, payload.Namespace(), payload.Name()+".git")
}
