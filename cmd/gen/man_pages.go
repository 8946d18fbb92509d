package gen

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/luma/relay/internal/meta"
)

var manDir string

var ManPagesCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages for relay",
	Long: `Generate a man page for every relay command, by default in the "man"
directory under the current directory.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Generating relay man pages in", manDir, "...")

		if err := WriteManPages(cmd.Root(), manDir); err != nil {
			return err
		}

		fmt.Println("Done.")
		return nil
	},
}

func init() {
	dirFlag(ManPagesCmd, &manDir, "man/")
}

// WriteManPages writes section 1 man pages for root and its subcommands.
func WriteManPages(root *cobra.Command, dir string) error {
	dir, err := prepareDir(dir)
	if err != nil {
		return err
	}

	header := &doc.GenManHeader{
		Section: "1",
		Manual:  "Relay Manual",
		Source:  fmt.Sprintf("relay %s", meta.GetInfo().Version),
	}

	root.DisableAutoGenTag = true

	return doc.GenManTree(root, header, dir)
}
