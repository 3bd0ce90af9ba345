// Package cli provides output formatting and an HTTP client for the askindex CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperjump/askindex/internal/models"
	"github.com/hyperjump/askindex/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is a human-readable table (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is the server's JSON array, indented.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes results to w in the given format.
func WriteSearchResults(w io.Writer, query *models.SearchQuery, results []models.SearchResult, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		if results == nil {
			results = []models.SearchResult{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case OutputText, "":
		return writeSearchResultsText(w, query, results)
	default:
		return fmt.Errorf("unknown output format %q (supported: text, json)", format)
	}
}

func writeSearchResultsText(w io.Writer, query *models.SearchQuery, results []models.SearchResult) error {
	fmt.Fprintf(w, "\n%d results for %q in %s (top_k=%d)\n\n",
		len(results), utils.Truncate(query.Question, 80), query.Industry, query.TopK)
	if len(results) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tID\tSOURCE\tDISTANCE\tASK METHOD")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%.4f\t%s\n",
			i+1, r.ID, utils.Truncate(r.Source, 40), r.Similarity, r.AskMethodCode)
	}
	return tw.Flush()
}
