package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lshigami/Quokkas/config"
)

// CredentialSource issues the bearer token used against the blob store.
// A failure here is fatal for the load sequence; the library stays
// usable in memory, just without persistence.
type CredentialSource interface {
	Issue(ctx context.Context) (string, error)
}

type tokenEndpointSource struct {
	endpoint string
	client   *http.Client
}

func NewCredentialSource(cfg *config.Config) CredentialSource {
	return &tokenEndpointSource{
		endpoint: cfg.Remote.TokenEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *tokenEndpointSource) Issue(ctx context.Context) (string, error) {
	if s.endpoint == "" {
		return "", fmt.Errorf("%w: token endpoint is not configured", ErrTransport)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token endpoint: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: token endpoint: status %d", ErrTransport, resp.StatusCode)
	}

	var payload struct {
		Pat string `json:"pat"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrTransport, err)
	}
	if strings.TrimSpace(payload.Pat) == "" {
		return "", fmt.Errorf("%w: token endpoint returned an empty pat", ErrTransport)
	}

	return payload.Pat, nil
}
