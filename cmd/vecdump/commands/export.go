package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vecdump/vecdump/pkg/cli"
	"github.com/vecdump/vecdump/pkg/export"
	"github.com/vecdump/vecdump/pkg/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the keyspace to a JSON manifest",
	Long: `Export every key to a single JSON manifest.

The export walks the keyspace with SCAN and projects each value by its
Redis type. Hash fields holding packed float32 embeddings are decoded into
typed arrays; lists and sorted sets are capped at their first 101 elements.
The manifest is written to a temp file and promoted on success, so a
cancelled or failed export never leaves a partial manifest behind.

Examples:
  vecdump -c local export --out dump.json
  vecdump -c local export --match 'doc:*' --out docs.json
  vecdump -c prod export --s3 my-bucket/backups/dump.json`,
	RunE: runExport,
}

var (
	exportOut   string
	exportS3    string
	exportMatch string
	exportBatch int64
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "dump.json", "Output file path")
	exportCmd.Flags().StringVar(&exportS3, "s3", "", "Write to S3 instead: bucket/key (credentials from the environment)")
	exportCmd.Flags().StringVar(&exportMatch, "match", "", "Only export keys matching a glob pattern")
	exportCmd.Flags().Int64Var(&exportBatch, "batch", export.DefaultBatchSize, "SCAN batch size hint")
}

type exportSummary struct {
	Path     string `json:"path" yaml:"path"`
	Keys     int64  `json:"keys" yaml:"keys"`
	Bytes    int64  `json:"bytes" yaml:"bytes"`
	Duration string `json:"duration" yaml:"duration"`
	SHA256   string `json:"sha256" yaml:"sha256"`
}

func runExport(cmd *cobra.Command, args []string) error {
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

	files, path, display, err := newManifestSink(ctx)
	if err != nil {
		return err
	}

	exp := export.New(client, files, export.Options{
		Match:     exportMatch,
		BatchSize: exportBatch,
	})

	// Render the progress stream on stderr so piped stdout stays clean.
	styles := cli.NewStyles(cli.DefaultTheme)
	done := make(chan struct{})
	go func() {
		defer close(done)
		rendered := false
		for p := range exp.Progress() {
			fmt.Fprintf(os.Stderr, "\r%s", styles.ProgressLine(p.Exported, p.Total, p.Percent))
			rendered = true
		}
		if rendered {
			fmt.Fprintln(os.Stderr)
		}
	}()

	res, err := exp.Run(ctx, path)
	<-done
	if err != nil {
		if ctx.Err() != nil {
			cli.PrintWarning("Cancelled: partial manifest removed")
		}
		return err
	}

	if isJSONOutput() || isYAMLOutput() {
		return outputResult(exportSummary{
			Path:     display,
			Keys:     res.Exported,
			Bytes:    res.Bytes,
			Duration: cli.FormatDuration(int(res.Duration.Milliseconds())),
			SHA256:   res.Checksum.String(),
		})
	}

	cli.PrintSuccess("Exported %s keys to %s", cli.FormatCount(res.Exported), display)
	fmt.Printf("  Size:     %s\n", cli.FormatBytes(res.Bytes))
	fmt.Printf("  Duration: %s\n", cli.FormatDuration(int(res.Duration.Milliseconds())))
	fmt.Printf("  SHA-256:  %s\n", res.Checksum)
	return nil
}

// newManifestSink resolves --out/--s3 into a FileStore plus the manifest
// path within it. display is the user-facing location.
func newManifestSink(ctx context.Context) (storage.FileStore, string, string, error) {
	if exportS3 != "" {
		bucket, key, _ := strings.Cut(exportS3, "/")
		if bucket == "" {
			return nil, "", "", fmt.Errorf("invalid --s3 value %q (want bucket/key)", exportS3)
		}
		if key == "" {
			key = filepath.Base(exportOut)
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", "", fmt.Errorf("aws config: %w", err)
		}
		files := storage.NewS3(s3.NewFromConfig(awsCfg), bucket, "")
		return files, key, "s3://" + bucket + "/" + key, nil
	}

	files, err := storage.NewLocal(filepath.Dir(exportOut))
	if err != nil {
		return nil, "", "", err
	}
	return files, filepath.Base(exportOut), exportOut, nil
}
