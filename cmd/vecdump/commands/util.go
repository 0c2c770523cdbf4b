package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/vecdump/vecdump/pkg/cli"
	"github.com/vecdump/vecdump/pkg/embed"
	"github.com/vecdump/vecdump/pkg/store"
)

// dialStore connects to Redis using the selected context's URL, falling
// back to the REDIS_URL environment variable.
func dialStore(ctx context.Context) (*store.Redis, error) {
	rawURL := os.Getenv("REDIS_URL")
	if c, err := getContext(); err == nil && c.RedisURL != "" {
		rawURL = c.RedisURL
	}
	if rawURL == "" {
		return nil, fmt.Errorf("no Redis URL configured. Add a context with 'vecdump config add-context' or set REDIS_URL")
	}

	printVerbose("Connecting to %s", rawURL)
	client, err := store.DialRedis(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// newEmbedder builds the embedding client from the selected context,
// falling back to OPENAI_API_KEY / GEMINI_API_KEY. When no provider is
// configured it returns a nil embedder and no error; the search engine
// rejects that case itself.
//
// The returned cleanup closes the persistent cache (if one was opened)
// and must be called when the embedder is no longer needed.
func newEmbedder(ctx context.Context) (embed.Embedder, func(), error) {
	noop := func() {}

	var ec *cli.EmbedderConfig
	var cc *cli.CacheConfig
	if c, err := getContext(); err == nil {
		ec = c.Embedder
		cc = c.Cache
	}

	var provider, apiKey string
	var opts []embed.Option
	if ec != nil {
		provider = ec.Provider
		apiKey = ec.APIKey
		if ec.Model != "" {
			opts = append(opts, embed.WithModel(ec.Model))
		}
		if ec.Dimension > 0 {
			opts = append(opts, embed.WithDimension(ec.Dimension))
		}
		if ec.BaseURL != "" {
			opts = append(opts, embed.WithBaseURL(ec.BaseURL))
		}
	}

	if apiKey == "" {
		switch provider {
		case "openai":
			apiKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			apiKey = os.Getenv("GEMINI_API_KEY")
		default:
			if k := os.Getenv("OPENAI_API_KEY"); k != "" {
				provider, apiKey = "openai", k
			} else if k := os.Getenv("GEMINI_API_KEY"); k != "" {
				provider, apiKey = "gemini", k
			}
		}
	}
	if apiKey == "" {
		return nil, noop, nil
	}

	var inner embed.Embedder
	switch provider {
	case "gemini":
		g, err := embed.NewGemini(ctx, apiKey, opts...)
		if err != nil {
			return nil, noop, err
		}
		inner = g
	default:
		inner = embed.NewOpenAI(apiKey, opts...)
	}

	if cc != nil && cc.Disabled {
		return inner, noop, nil
	}

	dir := ""
	if cc != nil {
		dir = cc.Dir
	}
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return inner, noop, nil
		}
		dir = paths.CacheDir()
	}

	cache, err := embed.NewCache(inner, embed.CacheOptions{Dir: dir})
	if err != nil {
		// The cache only saves repeat API calls; a locked or broken cache
		// directory must not block the search.
		cli.PrintWarning("Embedding cache unavailable: %v", err)
		return inner, noop, nil
	}
	return cache, func() { _ = cache.Close() }, nil
}
