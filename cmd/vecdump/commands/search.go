package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vecdump/vecdump/pkg/cli"
	"github.com/vecdump/vecdump/pkg/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Similarity search over stored embeddings",
	Long: `Embed a query text and rank hashes by cosine similarity.

Every hash with an embedding field is scored against the query vector;
other key types and hashes without the field are skipped. This is a brute
force scan of the whole keyspace, not an index lookup.

Requires an embedding provider: configure one on the context or set
OPENAI_API_KEY / GEMINI_API_KEY.

Examples:
  vecdump -c local search "database connection errors"
  vecdump -c local search "customer refunds" -k 5 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var (
	searchK         int
	searchField     string
	searchDescField string
)

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 10, "Number of results to return")
	searchCmd.Flags().StringVar(&searchField, "field", search.DefaultEmbeddingField, "Hash field holding the embedding")
	searchCmd.Flags().StringVar(&searchDescField, "description-field", search.DefaultDescriptionField, "Hash field shown as the result description")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

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

	embedder, closeEmbedder, err := newEmbedder(ctx)
	if err != nil {
		return err
	}
	defer closeEmbedder()

	engine := search.New(client, embedder, search.Options{
		EmbeddingField:   searchField,
		DescriptionField: searchDescField,
	})

	printVerbose("Searching for %q (top %d)", query, searchK)
	results, err := engine.Search(ctx, query, searchK)
	if err != nil {
		if errors.Is(err, search.ErrNoEmbedder) {
			return fmt.Errorf("no embedding provider configured. Add one with 'vecdump config add-context ... --provider openai --api-key KEY' or set OPENAI_API_KEY")
		}
		return err
	}

	if isJSONOutput() || isYAMLOutput() {
		return outputResult(results)
	}

	if len(results) == 0 {
		cli.PrintInfo("No results")
		return nil
	}

	styles := cli.NewStyles(cli.DefaultTheme)
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			r.Key,
			fmt.Sprintf("%.4f", r.Similarity),
			r.Description,
		}
	}
	fmt.Print(styles.Table([]string{"#", "KEY", "SIMILARITY", "DESCRIPTION"}, rows))
	return nil
}
