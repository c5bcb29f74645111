package search

import (
	"context"
	"strings"
)

// Result count bounds accepted by the provider.
const (
	MinCount     = 1
	MaxCount     = 20
	DefaultCount = 10
)

// NoResults is returned instead of an empty string when the provider found nothing.
const NoResults = "No results found"

// Searcher performs one web search.
type Searcher interface {
	Search(ctx context.Context, query string, count int) (string, error)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string, count int) (string, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, query string, count int) (string, error) {
	return f(ctx, query, count)
}

// Result is one web result entry.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// webSearchResponse is the subset of the provider payload we read.
type webSearchResponse struct {
	Web struct {
		Results []Result `json:"results"`
	} `json:"web"`
}

// ClampCount clamps n to [MinCount, MaxCount].
func ClampCount(n int) int {
	return min(max(n, MinCount), MaxCount)
}

// FormatResults renders results as Title/Description/URL blocks joined by a
// blank line. An empty slice yields NoResults.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return NoResults
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, "Title: "+r.Title+"\nDescription: "+r.Description+"\nURL: "+r.URL)
	}

	return strings.Join(blocks, "\n\n")
}

// ParseResults reverses FormatResults. Incomplete trailing blocks are dropped.
func ParseResults(text string) []Result {
	if text == NoResults {
		return nil
	}

	var (
		results []Result
		current *Result
		fields  int
	)

	flush := func() {
		if current != nil && fields == 3 {
			results = append(results, *current)
		}

		current, fields = nil, 0
	}

	for line := range strings.SplitSeq(text, "\n") {
		switch {
		case strings.HasPrefix(line, "Title: "):
			flush()

			current = &Result{Title: strings.TrimPrefix(line, "Title: ")}
			fields = 1
		case current != nil && strings.HasPrefix(line, "Description: "):
			current.Description = strings.TrimPrefix(line, "Description: ")
			fields++
		case current != nil && strings.HasPrefix(line, "URL: "):
			current.URL = strings.TrimPrefix(line, "URL: ")
			fields++
		}
	}

	flush()

	return results
}

// Limiter gates upstream calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// RateLimited returns a Searcher that waits on limiter before every call.
// A nil limiter returns searcher unchanged.
func RateLimited(searcher Searcher, limiter Limiter) Searcher {
	if limiter == nil {
		return searcher
	}

	return SearcherFunc(func(ctx context.Context, query string, count int) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}

		return searcher.Search(ctx, query, count)
	})
}
