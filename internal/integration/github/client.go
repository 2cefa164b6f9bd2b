// Package github implements the issue tracker and pull request collaborators
// on top of the GitHub REST API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/evolve/internal/core/evolution"
)

const (
	apiVersion = "2022-11-28"
	perPage    = 100
	maxPages   = 10
)

// Config configures a Client.
type Config struct {
	BaseURL string // e.g. https://api.github.com
	Token   string
	Repo    string // owner/name
	Timeout time.Duration
}

// Client talks to one repository.
type Client struct {
	baseURL string
	token   string
	repo    string
	http    *http.Client
	log     zerolog.Logger
}

var (
	_ evolution.TaskQueue = (*Client)(nil)
	_ evolution.Hosting   = (*Client)(nil)
)

// New creates a client scoped to cfg.Repo.
func New(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		repo:    cfg.Repo,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// APIError is a non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("github %s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type issue struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	HTMLURL     string    `json:"html_url"`
	Labels      []label   `json:"labels"`
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type label struct {
	Name string `json:"name"`
}

// ListTasks returns open issues carrying label. Pull requests, which the
// issues endpoint also returns, are skipped.
func (c *Client) ListTasks(ctx context.Context, labelName string) ([]evolution.Task, error) {
	var tasks []evolution.Task

	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("labels", labelName)
		q.Set("state", "open")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var issues []issue
		if err := c.do(ctx, http.MethodGet, "/issues?"+q.Encode(), nil, &issues); err != nil {
			return nil, fmt.Errorf("list issues: %w", err)
		}

		for _, is := range issues {
			if is.PullRequest != nil {
				continue
			}
			labels := make(map[string]bool, len(is.Labels))
			for _, l := range is.Labels {
				labels[l.Name] = true
			}
			tasks = append(tasks, evolution.Task{
				Number: is.Number,
				Title:  is.Title,
				URL:    is.HTMLURL,
				Labels: labels,
			})
		}

		if len(issues) < perPage {
			return tasks, nil
		}
	}

	c.log.Warn().
		Str("label", labelName).
		Int("pages", maxPages).
		Int("tasks", len(tasks)).
		Msg("issue listing hit the page cap, later issues are not listed this scan")
	return tasks, nil
}

func (c *Client) AddLabel(ctx context.Context, number int, labelName string) error {
	body := map[string][]string{"labels": {labelName}}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/issues/%d/labels", number), body, nil); err != nil {
		return fmt.Errorf("add label %q to #%d: %w", labelName, number, err)
	}
	return nil
}

func (c *Client) RemoveLabel(ctx context.Context, number int, labelName string) error {
	path := fmt.Sprintf("/issues/%d/labels/%s", number, url.PathEscape(labelName))
	err := c.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("remove label %q from #%d: %w", labelName, number, err)
	}
	return nil
}

func (c *Client) Comment(ctx context.Context, number int, body string) error {
	payload := map[string]string{"body": body}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/issues/%d/comments", number), payload, nil); err != nil {
		return fmt.Errorf("comment on #%d: %w", number, err)
	}
	return nil
}

func (c *Client) Close(ctx context.Context, number int) error {
	payload := map[string]string{"state": "closed"}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/issues/%d", number), payload, nil); err != nil {
		return fmt.Errorf("close #%d: %w", number, err)
	}
	return nil
}

// OpenPullRequest creates a pull request and returns its number and URL.
func (c *Client) OpenPullRequest(ctx context.Context, spec evolution.PullRequestSpec) (evolution.PullRequest, error) {
	payload := map[string]string{
		"title": spec.Title,
		"body":  spec.Body,
		"head":  spec.Head,
		"base":  spec.Base,
	}

	var resp struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
	}
	if err := c.do(ctx, http.MethodPost, "/pulls", payload, &resp); err != nil {
		return evolution.PullRequest{}, fmt.Errorf("open pull request %s -> %s: %w", spec.Head, spec.Base, err)
	}

	return evolution.PullRequest{Number: resp.Number, URL: resp.HTMLURL}, nil
}

// do issues a repository-scoped request. path is relative to /repos/{repo}.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	endpoint := c.baseURL + "/repos/" + c.repo + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "evolve")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("github request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}
