package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const wikipediaURL = "https://en.wikipedia.org/api/rest_v1/page/summary/"

// Wikipedia looks the whole query up as a page title.
type Wikipedia struct {
	BaseURL string
	Client  *http.Client
}

func NewWikipedia() *Wikipedia {
	return &Wikipedia{BaseURL: wikipediaURL, Client: defaultHTTPClient()}
}

func (w *Wikipedia) Name() string { return "wikipedia" }

func (w *Wikipedia) Search(ctx context.Context, query string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.BaseURL+url.PathEscape(query), nil)
	if err != nil {
		return nil, err
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia returned %d", resp.StatusCode)
	}

	var data struct {
		Title       string `json:"title"`
		Extract     string `json:"extract"`
		ContentURLs struct {
			Desktop struct {
				Page string `json:"page"`
			} `json:"desktop"`
		} `json:"content_urls"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode wikipedia summary: %w", err)
	}
	if data.Extract == "" {
		return nil, nil
	}
	return []Result{{Title: data.Title, Snippet: data.Extract, Link: data.ContentURLs.Desktop.Page}}, nil
}
