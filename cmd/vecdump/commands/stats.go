package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vecdump/vecdump/pkg/cli"
	"github.com/vecdump/vecdump/pkg/export"
	"github.com/vecdump/vecdump/pkg/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Keyspace statistics",
	Long: `Report the key count and a per-type breakdown of the keyspace.

The breakdown walks the keyspace with SCAN and batches TYPE lookups
through a pipeline, so it touches every key once.

Examples:
  vecdump -c local stats
  vecdump -c local stats --match 'doc:*'`,
	RunE: runStats,
}

var statsMatch string

func init() {
	statsCmd.Flags().StringVar(&statsMatch, "match", "", "Only count keys matching a glob pattern")
}

type keyspaceStats struct {
	DBSize  int64            `json:"dbsize" yaml:"dbsize"`
	Scanned int64            `json:"scanned" yaml:"scanned"`
	Types   map[string]int64 `json:"types" yaml:"types"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client, err := dialStore(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	total, err := client.DBSize(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int64)
	var scanned int64
	for keys, err := range store.ScanAll(ctx, client, statsMatch, export.DefaultBatchSize) {
		if err != nil {
			return err
		}
		pipe := client.Pipeline()
		cmds := make([]*store.TypeCmd, len(keys))
		for i, k := range keys {
			cmds[i] = pipe.Type(k)
		}
		if err := pipe.Exec(ctx); err != nil {
			return err
		}
		for _, c := range cmds {
			t, err := c.Result()
			if err != nil {
				return err
			}
			counts[string(t)]++
		}
		scanned += int64(len(keys))
	}

	stats := keyspaceStats{DBSize: total, Scanned: scanned, Types: counts}
	if isJSONOutput() || isYAMLOutput() {
		return outputResult(stats)
	}

	cli.PrintInfo("DBSIZE: %s keys", cli.FormatCount(total))
	if total > export.LargeKeyspaceThreshold {
		cli.PrintWarning("Keyspace exceeds %s keys; a full export may take a while",
			cli.FormatCount(export.LargeKeyspaceThreshold))
	}

	if len(counts) == 0 {
		cli.PrintInfo("No keys scanned")
		return nil
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, cli.FormatCount(counts[name])}
	}
	styles := cli.NewStyles(cli.DefaultTheme)
	fmt.Print(styles.Table([]string{"TYPE", "COUNT"}, rows))
	return nil
}
