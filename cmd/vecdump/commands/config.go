package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vecdump/vecdump/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage vecdump CLI configuration.

Configuration is stored in ~/.vecdump/config.yaml.
Multiple contexts can be defined for different Redis instances or accounts.`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add a new context",
	Long: `Add a new context with a Redis connection and optional embedder credentials.

The embedder is only needed for 'vecdump search'; exports work without one.

Examples:
  vecdump config add-context local --redis-url redis://localhost:6379/0
  vecdump config add-context prod --redis-url redis://:pass@redis.example.com:6379/1 \
    --provider openai --api-key sk-xxxxx --dimension 1536`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		redisURL, _ := cmd.Flags().GetString("redis-url")
		provider, _ := cmd.Flags().GetString("provider")
		apiKey, _ := cmd.Flags().GetString("api-key")
		model, _ := cmd.Flags().GetString("model")
		dimension, _ := cmd.Flags().GetInt("dimension")
		baseURL, _ := cmd.Flags().GetString("base-url")
		cacheDir, _ := cmd.Flags().GetString("cache-dir")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		if redisURL == "" {
			return fmt.Errorf("redis-url is required")
		}

		ctx := &cli.Context{
			Name:     name,
			RedisURL: redisURL,
		}
		if provider != "" || apiKey != "" {
			switch provider {
			case "openai", "gemini":
			case "":
				provider = "openai"
			default:
				return fmt.Errorf("unknown provider %q (want openai or gemini)", provider)
			}
			ctx.Embedder = &cli.EmbedderConfig{
				Provider:  provider,
				APIKey:    apiKey,
				Model:     model,
				Dimension: dimension,
				BaseURL:   baseURL,
			}
		}
		if cacheDir != "" || noCache {
			ctx.Cache = &cli.CacheConfig{
				Dir:      cacheDir,
				Disabled: noCache,
			}
		}

		cfg := getConfig()
		if err := cfg.AddContext(name, ctx); err != nil {
			return err
		}

		cli.PrintSuccess("Context '%s' added successfully", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg := getConfig()
		if err := cfg.DeleteContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Context '%s' deleted", name)
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the default context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		cfg := getConfig()
		if err := cfg.UseContext(name); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context '%s'", name)
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Show the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
		} else {
			fmt.Println(cfg.CurrentContext)
		}
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:   "list-contexts",
	Short: "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		for name := range cfg.Contexts {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, name)
		}
		return nil
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View full configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		return outputResult(redactedConfig(cfg))
	},
}

// redactedConfig deep-copies the config with API keys masked for display.
func redactedConfig(cfg *cli.Config) *cli.Config {
	out := &cli.Config{
		CurrentContext: cfg.CurrentContext,
		Contexts:       make(map[string]*cli.Context, len(cfg.Contexts)),
	}
	for name, ctx := range cfg.Contexts {
		c := *ctx
		if ctx.Embedder != nil {
			e := *ctx.Embedder
			e.APIKey = cli.MaskAPIKey(e.APIKey)
			c.Embedder = &e
		}
		if ctx.Cache != nil {
			cc := *ctx.Cache
			c.Cache = &cc
		}
		out.Contexts[name] = &c
	}
	return out
}

func init() {
	// add-context flags
	configAddContextCmd.Flags().String("redis-url", "", "Redis connection URL (required)")
	configAddContextCmd.Flags().String("provider", "", "Embedding provider: openai or gemini")
	configAddContextCmd.Flags().StringP("api-key", "k", "", "Embedding API key")
	configAddContextCmd.Flags().String("model", "", "Embedding model (provider default if empty)")
	configAddContextCmd.Flags().Int("dimension", 0, "Embedding dimension (provider default if 0)")
	configAddContextCmd.Flags().String("base-url", "", "Embedding API base URL override")
	configAddContextCmd.Flags().String("cache-dir", "", "Embedding cache directory (default ~/.vecdump/cache)")
	configAddContextCmd.Flags().Bool("no-cache", false, "Disable the embedding cache")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}
