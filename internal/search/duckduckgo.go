package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const duckDuckGoURL = "https://api.duckduckgo.com/"

// DuckDuckGo uses the keyless instant-answer API.
type DuckDuckGo struct {
	BaseURL string
	Client  *http.Client
}

func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{BaseURL: duckDuckGoURL, Client: defaultHTTPClient()}
}

func (d *DuckDuckGo) Name() string { return "duckduckgo" }

type ddgResponse struct {
	Heading       string `json:"Heading"`
	Abstract      string `json:"Abstract"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned %d", resp.StatusCode)
	}

	var data ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode duckduckgo response: %w", err)
	}

	var out []Result
	if data.Abstract != "" {
		title := data.Heading
		if title == "" {
			title = "Web Result"
		}
		out = append(out, Result{Title: title, Snippet: data.Abstract, Link: data.AbstractURL})
	}
	topics := data.RelatedTopics
	if len(topics) > MaxResults {
		topics = topics[:MaxResults]
	}
	for _, t := range topics {
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		title, _, _ := strings.Cut(t.Text, " - ")
		if title == "" {
			title = "Result"
		}
		out = append(out, Result{Title: title, Snippet: t.Text, Link: t.FirstURL})
	}
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out, nil
}
