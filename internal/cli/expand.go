package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/personarag/internal/expander"
)

var expandDictionary string

var expandCmd = &cobra.Command{
	Use:   "expand <query>",
	Short: "Show the synonym expansion of a query",
	Long: `Expand a query with a synonym dictionary and print both the term list
and the keyword query the search would run.

Examples:
  personarag expand "felony record" --dictionary population
  personarag expand "no customers yet"`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().StringVarP(&expandDictionary, "dictionary", "d", "all", "population, business, behavioral or all")
}

func runExpand(cmd *cobra.Command, args []string) error {
	dicts := expander.Defaults()
	if cfg.DictionaryFile != "" {
		var err error
		if dicts, err = expander.LoadFile(dicts, cfg.DictionaryFile); err != nil {
			return err
		}
	}
	dict, ok := dicts.Lookup(expandDictionary)
	if !ok {
		return fmt.Errorf("unknown dictionary %q", expandDictionary)
	}

	terms := expander.ExpandQuery(args[0], dict)
	keyword := expander.ExpandQueryForFTS(args[0], dict)

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, map[string]interface{}{
			"query":         args[0],
			"dictionary":    expandDictionary,
			"terms":         terms,
			"keyword_query": keyword,
		})
	}
	fmt.Fprintf(out, "Terms (%d):\n", len(terms))
	for _, t := range terms {
		fmt.Fprintf(out, "  %s\n", t)
	}
	fmt.Fprintf(out, "\nKeyword query:\n  %s\n", keyword)
	return nil
}
