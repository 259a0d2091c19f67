package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/personarag/internal/ingest"
	"github.com/dshills/personarag/pkg/types"
)

var (
	ingestNamespace string
	ingestWorkers   int
	ingestBatchSize int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Embed and store knowledge chunks from a JSON file",
	Long: `Ingest a JSON array of chunk records into a namespace. Records are
validated, embedded in batches and upserted, so re-running the same file
is safe.

Examples:
  personarag ingest mindset_chunks.json --namespace mindset
  personarag ingest business.json -n business --batch-size 50`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestNamespace, "namespace", "n", "", "target namespace (required)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "concurrent batches (default: number of CPUs)")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", ingest.DefaultBatchSize, "chunks per embedding call")
	_ = ingestCmd.MarkFlagRequired("namespace")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ns, err := types.ParseNamespace(ingestNamespace)
	if err != nil {
		return err
	}
	records, err := ingest.LoadFile(args[0])
	if err != nil {
		return err
	}

	stats, err := engine.Ingester.Ingest(cmd.Context(), ns, records, &ingest.Config{
		Workers:   ingestWorkers,
		BatchSize: ingestBatchSize,
	})
	out := cmd.OutOrStdout()
	if stats != nil {
		if jsonOut {
			if perr := printJSON(out, stats); perr != nil {
				return perr
			}
		} else {
			fmt.Fprintf(out, "Ingested %d chunks into %s (%d failed, %d batches, ~%d tokens) in %s\n",
				stats.ChunksIngested, ns, stats.ChunksFailed, stats.Batches, stats.TokensApprox, stats.Duration.Round(time.Millisecond))
			for _, msg := range stats.ErrorMessages {
				fmt.Fprintf(out, "  %s\n", msg)
			}
		}
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}
