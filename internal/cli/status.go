package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/personarag/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store, cache and embedding provider status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := engine.Status(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOut {
			return printJSON(out, st)
		}
		fmt.Fprintf(out, "Store:      %s (schema %s, accessible: %v)\n",
			st.Store.Backend, st.Store.SchemaVersion, st.Store.Health.DatabaseAccessible)
		for _, ns := range types.AllNamespaces {
			fmt.Fprintf(out, "  %-11s %d chunks (%d embedded)\n", ns+":", st.Store.Chunks[ns], st.Store.Embedded[ns])
		}
		fmt.Fprintf(out, "Users:      %d\n", st.Store.Users)
		if st.Store.SizeMB > 0 {
			fmt.Fprintf(out, "Size:       %.2f MB\n", st.Store.SizeMB)
		}
		fmt.Fprintf(out, "Cache:      %s (ok: %v)\n", st.Cache, st.CacheOK)
		fmt.Fprintf(out, "Embeddings: %s %s (%d dims)\n", st.Provider, st.Model, st.Dimension)
		return nil
	},
}
