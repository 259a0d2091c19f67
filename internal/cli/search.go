package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/personarag/internal/retriever"
	"github.com/dshills/personarag/pkg/types"
)

var (
	searchNamespace string
	searchTopK      int
	searchFilters   string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a hybrid search against one namespace",
	Long: `Search a knowledge namespace with vector similarity and expanded
keyword search fused by reciprocal rank.

Examples:
  personarag search "anxious about funding" --namespace business
  personarag search "can't get started" -n mindset --filters '{"emergency_only": true}'`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchNamespace, "namespace", "n", string(types.NamespaceMindset), "namespace to search (onboarding, mindset, business)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", retriever.DefaultTopK, "number of results")
	searchCmd.Flags().StringVar(&searchFilters, "filters", "", "filters as a JSON object")
}

func runSearch(cmd *cobra.Command, args []string) error {
	var filters types.Filters
	if searchFilters != "" {
		if err := json.Unmarshal([]byte(searchFilters), &filters); err != nil {
			return fmt.Errorf("%w: %v", types.ErrInvalidFilter, err)
		}
	}

	resp, err := engine.Retriever.Search(cmd.Context(), retriever.SearchRequest{
		Query:     args[0],
		Namespace: types.Namespace(searchNamespace),
		Filters:   filters,
		TopK:      searchTopK,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, retriever.Views(resp.Results))
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results (keyword query: %s):\n\n", len(resp.Results), resp.KeywordQuery)
	fmt.Fprintln(out, retriever.Render(resp.Results))
	return nil
}
