package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/folioblog/folio"
	"github.com/folioblog/folio/build"
	"github.com/folioblog/folio/views"
)

var (
	buildOpts  build.Options
	buildClean bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Export the blog as a static site",
	Long: `Renders every public page, the feed and the sitemap into the output
directory, copies static assets and covers, and writes brotli copies of
text files for servers that can serve them precompressed.

Example:
  folio build --out dist`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOpts.OutDir, "out", "o", "dist", "Output directory")
	buildCmd.Flags().BoolVar(&buildOpts.NoCompress, "no-compress", false, "Skip writing .br files")
	buildCmd.Flags().BoolVar(&buildOpts.NoMinify, "no-minify", false, "Skip HTML, CSS, JS and XML minification")
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Drop cached cover variants before syncing")
	buildCmd.Flags().IntVarP(&buildOpts.Workers, "jobs", "j", 0, "Pages rendered concurrently (default: number of CPUs)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	app := folio.New(cfg, views.Default(), folio.WithLogger(logger))
	if err := app.Init(ctx); err != nil {
		return err
	}
	defer app.Close()

	// Covers of deleted posts would otherwise be exported too.
	if buildClean {
		if err := app.Covers.Purge(); err != nil {
			return err
		}
	}

	sync, err := app.SyncContent(ctx)
	if err != nil {
		return err
	}
	for _, p := range sync.Problems {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", p)
	}

	report, err := build.New(app, buildOpts).Export(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pages and %d assets (%s) to %s in %s\n",
		report.Pages, report.Assets, humanize.Bytes(uint64(report.Bytes)), buildOpts.OutDir, report.Took.Round(time.Millisecond))
	return nil
}
