package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/devradar/backend/internal/models"
)

var (
	ErrGitHubUserNotFound = errors.New("github user not found")
	ErrGitHubUnavailable  = errors.New("github api unavailable")
)

// GitHubClient imports public profile data from the GitHub users API.
type GitHubClient struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewGitHubClient authenticates with token when one is given; anonymous calls are
// rate limited to 60 requests per hour by GitHub.
func NewGitHubClient(endpoint, token string) *GitHubClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = "https://api.github.com"
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if tok := strings.TrimSpace(token); tok != "" {
		client = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}))
		client.Timeout = 10 * time.Second
	}

	return &GitHubClient{
		Endpoint:   strings.TrimRight(endpoint, "/"),
		HTTPClient: client,
	}
}

func (c *GitHubClient) FetchProfile(ctx context.Context, username string) (*models.GitHubProfile, error) {
	endpoint := c.Endpoint + "/users/" + url.PathEscape(username)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGitHubUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrGitHubUserNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: users api http %d", ErrGitHubUnavailable, resp.StatusCode)
	}

	var profile models.GitHubProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrGitHubUnavailable, err)
	}
	if profile.Login == "" {
		profile.Login = username
	}
	return &profile, nil
}
