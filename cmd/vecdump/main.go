// Package main provides the vecdump CLI tool.
//
// Usage:
//
//	vecdump [flags] <command> [args]
//
// Commands:
//
//	export   - Export the keyspace to a JSON manifest
//	search   - Similarity search over stored embeddings
//	stats    - Keyspace statistics
//	config   - Configuration management
//	version  - Build information
//
// Configuration:
//
//	The CLI stores configuration in ~/.vecdump/
//	Use 'vecdump config' commands to manage contexts.
package main

import (
	"fmt"
	"os"

	"github.com/vecdump/vecdump/cmd/vecdump/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
