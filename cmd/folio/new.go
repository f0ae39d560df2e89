package main

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/folioblog/folio/scaffold"
)

var (
	skipTidy  bool
	newParent string
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new folio project",
	Long: `Creates a project directory with a config, a sample post and a main
package that serves the default views.

Examples:
  folio new myblog
  folio new github.com/user/myblog`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVar(&newParent, "dir", ".", "Directory to create the project in")
	newCmd.Flags().BoolVar(&skipTidy, "skip-tidy", false, "Do not run 'go mod tidy' in the new project")
}

func runNew(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	data := scaffold.NewData(args[0], version)

	fmt.Fprintf(out, "Creating new folio project: %s\n\n", data.ProjectName)
	dir, files, err := scaffold.Generate(newParent, data)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintf(out, "  created %s\n", f)
	}

	if !skipTidy {
		// Resolve dependencies and generate go.sum.
		fmt.Fprintln(out, "\nResolving Go dependencies...")
		tidy := exec.Command("go", "mod", "tidy")
		tidy.Dir = dir
		tidy.Stdout = out
		tidy.Stderr = cmd.ErrOrStderr()
		if err := tidy.Run(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nWarning: go mod tidy failed: %v\n", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Run 'cd %s && go mod tidy' manually after fixing.\n", dir)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Done! Next steps:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  cd %s\n", dir)
	fmt.Fprintln(out, "  cp .env.example .env")
	fmt.Fprintln(out, "  go run .")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Write posts in content/blog/, or log in at /admin/ with ADMIN_PASSWORD.")
	return nil
}
