// Package search looks things up on the web for the assistant, trying Google
// Custom Search, then DuckDuckGo instant answers, then Wikipedia.
package search

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"stephly/internal/log"
)

// MaxResults bounds every provider.
const MaxResults = 3

type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Provider is one search backend. An empty result with nil error means
// "nothing found, try the next one".
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

var searchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`what (is|are|was|were)`),
	regexp.MustCompile(`who (is|are|was|were)`),
	regexp.MustCompile(`when (did|is|was)`),
	regexp.MustCompile(`where (is|are|was)`),
	regexp.MustCompile(`how (much|many|does)`),
	regexp.MustCompile(`latest`),
	regexp.MustCompile(`current`),
	regexp.MustCompile(`today`),
	regexp.MustCompile(`now`),
	regexp.MustCompile(`recent`),
	regexp.MustCompile(`price`),
	regexp.MustCompile(`cost`),
	regexp.MustCompile(`rate`),
	regexp.MustCompile(`weather`),
	regexp.MustCompile(`news`),
	regexp.MustCompile(`bitcoin`),
	regexp.MustCompile(`crypto`),
	regexp.MustCompile(`dollar`),
	regexp.MustCompile(`exchange`),
	regexp.MustCompile(`president`),
	regexp.MustCompile(`capital`),
}

// NeedsWebSearch reports whether a chat message asks about something the
// model cannot know from the user's data alone.
func NeedsWebSearch(query string) bool {
	q := strings.ToLower(query)
	for _, p := range searchPatterns {
		if p.MatchString(q) {
			return true
		}
	}
	return false
}

// FormatResults renders results as a prompt block; empty for no results.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n🔍 Web Search Results:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n   Source: %s\n", i+1, r.Title, r.Snippet, r.Link)
	}
	return b.String()
}

// Chain asks each provider in turn and returns the first non-empty answer.
type Chain struct {
	providers []Provider
	logger    *log.Logger
}

func NewChain(logger *log.Logger, providers ...Provider) *Chain {
	if logger == nil {
		logger = log.Discard()
	}
	return &Chain{providers: providers, logger: logger.WithComponent(log.ComponentSearch)}
}

// Search never fails: provider errors are logged and the next one is tried.
func (c *Chain) Search(ctx context.Context, query string) []Result {
	for _, p := range c.providers {
		if ctx.Err() != nil {
			return nil
		}
		results, err := p.Search(ctx, query)
		if err != nil {
			c.logger.WarnContext(ctx, "Search provider failed", "provider", p.Name(), log.FieldError, err)
			continue
		}
		if len(results) > 0 {
			c.logger.DebugContext(ctx, "Search answered", "provider", p.Name(), "results", len(results))
			if len(results) > MaxResults {
				results = results[:MaxResults]
			}
			return results
		}
	}
	return nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
