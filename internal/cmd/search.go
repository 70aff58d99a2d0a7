package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/masahif/sitesearch/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the index",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().String("site", "", "Restrict results to one site url")
	searchCmd.Flags().Int("offset", 0, "Number of results to skip")
	searchCmd.Flags().Int("limit", 0, "Maximum number of results (default from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	site, _ := cmd.Flags().GetString("site")
	offset, _ := cmd.Flags().GetInt("offset")
	limit, _ := cmd.Flags().GetInt("limit")

	resp, err := a.searcher.Search(cmd.Context(), search.Query{
		Text:   strings.Join(args, " "),
		Site:   site,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	printResults(cmd.OutOrStdout(), resp)
	return nil
}

func printResults(w io.Writer, resp *search.Response) {
	fmt.Fprintf(w, "Found %d result(s)\n", resp.Count)
	for _, r := range resp.Data {
		fmt.Fprintf(w, "\n%.3f  %s%s\n", r.Relevance, r.Site, r.URI)
		if r.Title != "" {
			fmt.Fprintf(w, "       %s\n", r.Title)
		}
		if r.Snippet != "" {
			fmt.Fprintf(w, "       %s\n", r.Snippet)
		}
	}
}
