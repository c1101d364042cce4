package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Source is implemented by each place videos arrive from (platform API,
// feed server, local export). Each source maps its own format into Video.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]Video, error)
}

// FileSource reads a JSON array of videos from a local file. Demo-safe and
// used by the CSV/JSON backfill tooling.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return "file:" + s.Path }

func (s *FileSource) FetchAll(_ context.Context) ([]Video, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	var out []Video
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return out, nil
}

// FeedSource pulls videos from an HTTP feed endpoint returning a JSON array.
type FeedSource struct {
	BaseURL string
	Client  *http.Client
}

func NewFeedSource(baseURL string) *FeedSource {
	return &FeedSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *FeedSource) Name() string { return "feed:" + s.BaseURL }

func (s *FeedSource) FetchAll(ctx context.Context) ([]Video, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/videos", nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	var out []Video
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return out, nil
}
