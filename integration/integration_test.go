//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	saaros "github.com/mjochum64/saaros-mcp-server"
)

// loadConfigOrSkip skips the test unless a real API key is configured.
func loadConfigOrSkip(t *testing.T) *saaros.Config {
	t.Helper()

	if strings.TrimSpace(os.Getenv("BRAVE_API_KEY")) == "" {
		t.Skip("BRAVE_API_KEY not set")
	}

	cfg, err := saaros.LoadConfig("")
	require.NoError(t, err)

	return cfg
}

func TestLiveSearch(t *testing.T) {
	cfg := loadConfigOrSkip(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	err := saaros.WithClient(ctx, cfg, func(c saaros.Client) error {
		text, err := c.Search(ctx, "golang programming language", 3)
		if err != nil {
			return err
		}

		results := saaros.ParseResults(text)
		require.NotEmpty(t, results)
		require.LessOrEqual(t, len(results), 3)

		for _, r := range results {
			require.NotEmpty(t, r.Title)
			require.True(t, strings.HasPrefix(r.URL, "http"), "url %q", r.URL)
		}

		return nil
	})
	require.NoError(t, err)
}

func TestLiveSearch_InvalidKey(t *testing.T) {
	cfg := loadConfigOrSkip(t)
	cfg.APIKey = "invalid-key"

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	err := saaros.WithClient(ctx, cfg, func(c saaros.Client) error {
		_, err := c.Search(ctx, "golang", 1)

		return err
	})
	require.Equal(t, saaros.CodeUpstreamError, saaros.CodeOf(err))
	require.ErrorContains(t, err, "brave API error")
}
