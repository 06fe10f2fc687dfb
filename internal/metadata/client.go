// Package metadata reads task execution records from the workflow
// metadata service: attempt metadata, current log sizes, and log lines.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrTaskUnavailable is returned when the metadata service cannot resolve
// or read the referenced task.
var ErrTaskUnavailable = errors.New("task unavailable")

// TaskInfo is a resolved task attempt.
type TaskInfo struct {
	Pathspec string            `json:"pathspec"`
	Attempt  int               `json:"attempt_id"`
	Metadata map[string]string `json:"metadata"`
}

// LogLine is one log line as reported by the metadata service. Timestamp
// is RFC 3339 and may be empty or malformed for lines written by older
// runtimes.
type LogLine struct {
	Timestamp string `json:"timestamp"`
	Line      string `json:"line"`
}

// Client resolves tasks and reads their log data.
type Client interface {
	// Task resolves a task attempt by pathspec. Returns a
	// ErrTaskUnavailable-wrapped error if the task cannot be resolved.
	Task(ctx context.Context, pathspec string, attempt int) (*TaskInfo, error)

	// LogSize returns the current size of the given stream's log.
	LogSize(ctx context.Context, task *TaskInfo, stream string) (int64, error)

	// LogLines returns the stream's log lines in write order.
	LogLines(ctx context.Context, task *TaskInfo, stream string) ([]LogLine, error)
}

// Config configures the HTTP metadata client.
type Config struct {
	// BaseURL of the metadata service, e.g. "http://localhost:8083".
	BaseURL string

	// Namespace scopes task lookups. Empty means the global namespace.
	// Passed explicitly on every request; there is no process-wide
	// namespace state.
	Namespace string

	// Timeout per request. Default 30s.
	Timeout time.Duration
}

// HTTPClient is the HTTP implementation of Client.
type HTTPClient struct {
	baseURL   string
	namespace string
	client    *http.Client
}

// NewHTTPClient creates a metadata client for the given service.
func NewHTTPClient(cfg Config) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: timeout},
	}
}

// taskURL builds /flows/{flow}/runs/{run}/steps/{step}/tasks/{task}/attempts/{n}{suffix}.
func (c *HTTPClient) taskURL(pathspec string, attempt int, suffix string) (string, error) {
	parts := strings.Split(pathspec, "/")
	if len(parts) != 4 {
		return "", fmt.Errorf("malformed pathspec %q", pathspec)
	}
	u := fmt.Sprintf("%s/flows/%s/runs/%s/steps/%s/tasks/%s/attempts/%d%s",
		c.baseURL,
		url.PathEscape(parts[0]), url.PathEscape(parts[1]),
		url.PathEscape(parts[2]), url.PathEscape(parts[3]),
		attempt, suffix)
	if c.namespace != "" {
		u += "?ns=" + url.QueryEscape(c.namespace)
	}
	return u, nil
}

func (c *HTTPClient) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTaskUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: not found", ErrTaskUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: metadata service returned %d: %s", ErrTaskUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Task resolves a task attempt.
func (c *HTTPClient) Task(ctx context.Context, pathspec string, attempt int) (*TaskInfo, error) {
	u, err := c.taskURL(pathspec, attempt, "")
	if err != nil {
		return nil, err
	}

	var info TaskInfo
	if err := c.get(ctx, u, &info); err != nil {
		return nil, err
	}
	if info.Pathspec == "" {
		info.Pathspec = pathspec
	}
	info.Attempt = attempt
	return &info, nil
}

// LogSize returns the current log size for the given stream.
func (c *HTTPClient) LogSize(ctx context.Context, task *TaskInfo, stream string) (int64, error) {
	u, err := c.taskURL(task.Pathspec, task.Attempt, "/logs/"+stream+"/size")
	if err != nil {
		return 0, err
	}

	var out struct {
		Size int64 `json:"size"`
	}
	if err := c.get(ctx, u, &out); err != nil {
		return 0, err
	}
	return out.Size, nil
}

// LogLines returns the stream's log lines.
func (c *HTTPClient) LogLines(ctx context.Context, task *TaskInfo, stream string) ([]LogLine, error) {
	u, err := c.taskURL(task.Pathspec, task.Attempt, "/logs/"+stream)
	if err != nil {
		return nil, err
	}

	var lines []LogLine
	if err := c.get(ctx, u, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}
