package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var (
	previewStyle string
	previewWidth int
)

var previewCmd = &cobra.Command{
	Use:   "preview <slug>",
	Short: "Render a post's Markdown in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewStyle, "style", "auto", "Glamour style: auto, dark, light, ascii or notty")
	previewCmd.Flags().IntVar(&previewWidth, "width", 80, "Word wrap width")
}

func runPreview(cmd *cobra.Command, args []string) error {
	entries, err := loadEntries()
	if err != nil {
		return err
	}
	slug := strings.Trim(args[0], "/")
	for _, e := range entries {
		if e.Slug != slug {
			continue
		}

		var md strings.Builder
		fmt.Fprintf(&md, "# %s\n\n", e.Title)
		meta := []string{"*" + e.Date + "*"}
		for _, t := range e.Tags {
			meta = append(meta, "`#"+t+"`")
		}
		if e.Draft {
			meta = append(meta, "**draft**")
		}
		md.WriteString(strings.Join(meta, " ") + "\n\n")
		md.WriteString(e.Body)

		r, err := newRenderer()
		if err != nil {
			return err
		}
		s, err := r.Render(md.String())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), s)
		return err
	}
	return fmt.Errorf("no post with slug %q in the content directory", slug)
}

func newRenderer() (*glamour.TermRenderer, error) {
	style := glamour.WithAutoStyle()
	if previewStyle != "auto" {
		style = glamour.WithStandardStyle(previewStyle)
	}
	return glamour.NewTermRenderer(style, glamour.WithWordWrap(previewWidth))
}
