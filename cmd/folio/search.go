package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/folioblog/folio/content"
	"github.com/folioblog/folio/search"
)

var searchDrafts bool

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search posts in the content directory by title or tag",
	Long: `Runs the same filter as the /articles/ search box over the Markdown
files in the content directory. A post matches when its title contains the
whole query or one of its tags contains any word of the query.

Example:
  folio search go, testing`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchDrafts, "drafts", false, "Include draft posts")
}

func loadEntries() ([]content.Entry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	entries, problems, err := content.Loader{Dir: cfg.ContentDir, ExcerptLength: cfg.ExcerptLength}.Load()
	if err != nil {
		return nil, err
	}
	for _, p := range problems {
		logger.Sugar().Warnf("skipping %v", p)
	}
	return entries, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	entries, err := loadEntries()
	if err != nil {
		return err
	}
	if !searchDrafts {
		published := entries[:0]
		for _, e := range entries {
			if !e.Draft {
				published = append(published, e)
			}
		}
		entries = published
	}

	query := strings.Join(args, " ")
	matches := search.Filter(entries, query)

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, e := range matches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Date, e.Slug, e.Title, strings.Join(e.Tags, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s of %d\n", english.Plural(len(matches), "match", "matches"), len(entries))
	return nil
}
