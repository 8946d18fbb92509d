package gen

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var markdownDir string

var MarkdownCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate markdown reference pages for relay",
	Long: `Generate a markdown page for every relay command, by default in the
"docs" directory under the current directory.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Generating relay markdown in", markdownDir, "...")

		if err := WriteMarkdown(cmd.Root(), markdownDir); err != nil {
			return err
		}

		fmt.Println("Done.")
		return nil
	},
}

func init() {
	dirFlag(MarkdownCmd, &markdownDir, "docs/")
}

func WriteMarkdown(root *cobra.Command, dir string) error {
	dir, err := prepareDir(dir)
	if err != nil {
		return err
	}

	root.DisableAutoGenTag = true

	return doc.GenMarkdownTree(root, dir)
}
