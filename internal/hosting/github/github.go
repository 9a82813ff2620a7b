// Package github adapts a GitHub repository to the backup engine, as the
// source of a save and the target of a restore.
package github

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/flarebyte/tracker-snapshot/internal/backup"
)

// Compile-time interface checks.
var (
	_ backup.Source    = (*Client)(nil)
	_ backup.Target    = (*Client)(nil)
	_ backup.Updater   = (*Client)(nil)
	_ backup.KeyLister = (*Client)(nil)
)

const perPage = 100

// Config identifies one repository.
type Config struct {
	Owner   string
	Repo    string
	Token   string
	BaseURL string // GitHub Enterprise root, empty for github.com
	// HTTPClient overrides the transport; the token is still added.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements the engine's source and target capabilities with the
// go-github library.
type Client struct {
	client *gogithub.Client
	owner  string
	repo   string
	log    *slog.Logger

	mu           sync.Mutex
	issueNumbers []int
	pullNumbers  []int
	// labelNames maps an archived label name to the name it got in the target.
	labelNames map[string]string
}

// New builds an authenticated client.
func New(cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github: owner and repository are required")
	}
	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	httpClient := &http.Client{Transport: &oauth2Transport{token: cfg.Token, base: base}}
	client := gogithub.NewClient(httpClient)

	// GitHub Enterprise: override base URL.
	if cfg.BaseURL != "" {
		baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
		var err error
		client.BaseURL, err = client.BaseURL.Parse(baseURL + "/api/v3/")
		if err != nil {
			return nil, fmt.Errorf("parse base URL %q: %w", cfg.BaseURL, err)
		}
		client.UploadURL, err = client.UploadURL.Parse(baseURL + "/api/uploads/")
		if err != nil {
			return nil, fmt.Errorf("parse upload URL %q: %w", cfg.BaseURL, err)
		}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		client:     client,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		log:        log.With("repository", cfg.Owner+"/"+cfg.Repo),
		labelNames: map[string]string{},
	}, nil
}

// FullName returns owner/repo.
func (c *Client) FullName() string { return c.owner + "/" + c.repo }

// oauth2Transport adds an Authorization header to every request.
type oauth2Transport struct {
	token string
	base  http.RoundTripper
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	if t.token != "" {
		req2.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req2)
}
