package search

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// Google queries a Programmable Search Engine.
type Google struct {
	svc      *customsearch.Service
	engineID string
}

func NewGoogle(ctx context.Context, apiKey, engineID string, opts ...option.ClientOption) (*Google, error) {
	if apiKey == "" || engineID == "" {
		return nil, errors.New("google search needs an API key and engine ID")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create custom search service: %w", err)
	}
	return &Google{svc: svc, engineID: engineID}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Search(ctx context.Context, query string) ([]Result, error) {
	resp, err := g.svc.Cse.List().Cx(g.engineID).Q(query).Num(MaxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}
	var out []Result
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		title := item.Title
		if title == "" {
			title = "Result"
		}
		out = append(out, Result{Title: title, Snippet: item.Snippet, Link: item.Link})
		if len(out) == MaxResults {
			break
		}
	}
	return out, nil
}
