package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

// Admin performs privileged operations against the provider.
type Admin interface {
	DisableUser(ctx context.Context, externalID string) error
}

type NoopAdmin struct{}

func (NoopAdmin) DisableUser(context.Context, string) error { return nil }

// AdminClient calls the provider's user-management API with a client
// credentials token.
type AdminClient struct {
	baseURL string
	client  *http.Client
}

type AdminClientConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
}

func NewAdminClient(ctx context.Context, cfg AdminClientConfig) *AdminClient {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	httpClient := cc.Client(ctx)
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient.Timeout = timeout
	return &AdminClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
	}
}

func (c *AdminClient) DisableUser(ctx context.Context, externalID string) error {
	if externalID == "" {
		return fmt.Errorf("disable user: empty external id")
	}
	body, err := json.Marshal(map[string]bool{"disabled": true})
	if err != nil {
		return err
	}
	endpoint := c.baseURL + "/users/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("disable user: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("disable user: provider status %d", resp.StatusCode)
	}
	return nil
}
