package repository

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lshigami/Quokkas/config"
	"github.com/rs/zerolog/log"
)

const defaultAPIBase = "https://api.github.com"

// RemoteFile is one read of the stored document: its raw content and
// the opaque version token (content sha) identifying that state.
type RemoteFile struct {
	Content []byte
	SHA     string
}

// RemoteStore wraps the hosted version-controlled file store. Writes
// require the last-observed sha so a concurrent change is rejected as
// ErrConflict instead of silently overwritten.
type RemoteStore interface {
	Read(ctx context.Context, path string) (*RemoteFile, error)
	Write(ctx context.Context, path string, content []byte, sha string) (newSHA string, err error)
	SetToken(token string)
}

type gitContentsStore struct {
	apiBase string
	owner   string
	repo    string
	branch  string
	token   string
	client  *http.Client
}

func NewRemoteStore(cfg *config.Config) RemoteStore {
	return &gitContentsStore{
		apiBase: defaultAPIBase,
		owner:   cfg.Remote.Owner,
		repo:    cfg.Remote.Repo,
		branch:  cfg.Remote.Branch,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewRemoteStoreAt is like NewRemoteStore with an explicit API base, for tests.
func NewRemoteStoreAt(apiBase string, cfg *config.Config) RemoteStore {
	s := NewRemoteStore(cfg).(*gitContentsStore)
	s.apiBase = apiBase
	return s
}

func (s *gitContentsStore) SetToken(token string) {
	s.token = token
}

func (s *gitContentsStore) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.apiBase, s.owner, s.repo, path)
}

func (s *gitContentsStore) Read(ctx context.Context, path string) (*RemoteFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.contentsURL(path)+"?ref="+s.branch, nil)
	if err != nil {
		return nil, fmt.Errorf("create read request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: read %s: status %d", ErrTransport, path, resp.StatusCode)
	}

	var payload struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode read response: %v", ErrTransport, err)
	}

	// The contents API returns base64 with embedded newlines.
	raw, err := base64.StdEncoding.DecodeString(stripWhitespace(payload.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: decode file content: %v", ErrTransport, err)
	}

	return &RemoteFile{Content: raw, SHA: payload.SHA}, nil
}

func (s *gitContentsStore) Write(ctx context.Context, path string, content []byte, sha string) (string, error) {
	body := map[string]any{
		"message": "Update library",
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  s.branch,
	}
	if sha != "" {
		body["sha"] = sha
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return "", fmt.Errorf("encode write payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(path), buf)
	if err != nil {
		return "", fmt.Errorf("create write request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		io.Copy(io.Discard, resp.Body)
		log.Warn().Str("path", path).Str("sha", sha).Int("status", resp.StatusCode).Msg("Remote rejected write: version moved")
		return "", &ConflictError{ExpectedSHA: sha, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return "", fmt.Errorf("%w: write %s: status %d", ErrTransport, path, resp.StatusCode)
	}

	var payload struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode write response: %v", ErrTransport, err)
	}
	if payload.Content.SHA == "" {
		return "", fmt.Errorf("%w: write %s: response missing new sha", ErrTransport, path)
	}

	return payload.Content.SHA, nil
}

func (s *gitContentsStore) setHeaders(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
}

func stripWhitespace(in string) string {
	out := make([]byte, 0, len(in))
	for i := 0; i < len(in); i++ {
		switch in[i] {
		case ' ', '\n', '\r', '\t':
		default:
			out = append(out, in[i])
		}
	}
	return string(out)
}
