package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var indexPageCmd = &cobra.Command{
	Use:   "index-page <url>",
	Short: "Re-index a single page",
	Long: `Fetch one page of a configured site and replace its index entries.
The page's site is created if it has never been crawled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if err := a.crawler.IndexPage(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s\n", args[0])
		return nil
	},
}
