package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/extendi/gitlab-mirror-pull/internal/config"
	"github.com/extendi/gitlab-mirror-pull/internal/version"
)

const defaultRequestTimeout = 30 * time.Second

// HTTPClient talks to the GitLab v4 REST API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates an HTTP client to talk to the GitLab pipeline API
func NewHTTPClient(pipelineCfg config.Pipeline) (*HTTPClient, error) {
	baseURL, err := url.Parse(pipelineCfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing pipeline API url: %w", err)
	}

	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("%s is not a valid url", pipelineCfg.URL)
	}

	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL.String(), "/"),
		token:   pipelineCfg.Token,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

// CreatePipeline implements Client. The namespace is URL-encoded into the
// project id path segment, as the API requires for "group/project" ids.
func (c *HTTPClient) CreatePipeline(ctx context.Context, namespace, branch string) (*Pipeline, error) {
	endpoint := fmt.Sprintf(
		"%s/api/v4/projects/%s/pipeline?ref=%s",
		c.baseURL, url.QueryEscape(namespace), url.QueryEscape(branch),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building pipeline request: %w", err)
	}

	req.Header.Set("PRIVATE-TOKEN", c.token)
	req.Header.Set("User-Agent", "gitlab-mirror-pull/"+version.GetVersion())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline for %q: %w", namespace, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf(
			"creating pipeline for %q: status %d: %s",
			namespace, resp.StatusCode, strings.TrimSpace(string(body)),
		)
	}

	var pipeline Pipeline
	if err := json.NewDecoder(resp.Body).Decode(&pipeline); err != nil {
		return nil, fmt.Errorf("decoding pipeline response: %w", err)
	}

	return &pipeline, nil
}
