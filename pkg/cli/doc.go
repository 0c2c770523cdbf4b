// Package cli provides common utilities for the vecdump command-line tool.
//
// This package includes:
//   - Configuration management (contexts, similar to kubectl)
//   - Output formatting (JSON, YAML, raw)
//   - Terminal styling (progress line, result tables)
//
// Configuration is stored in ~/.vecdump/config.yaml, supporting multiple
// named contexts for different stores and embedding providers.
//
// Example usage:
//
//	cfg, err := cli.LoadConfig()
//
//	ctx, err := cfg.GetCurrentContext()
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	})
package cli
