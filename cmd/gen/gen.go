package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// RootCmd groups the generators for relay's own documentation.
var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate relay documentation",
	Long: `Generate documentation for every relay command, either as man pages or
as markdown.`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
	RootCmd.AddCommand(MarkdownCmd)
}

// prepareDir creates dir when missing and returns it with a trailing
// separator.
func prepareDir(dir string) (string, error) {
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}

	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}

		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("Failed to create %s: %w", dir, err)
		}
	}

	return dir, nil
}

func dirFlag(cmd *cobra.Command, target *string, def string) {
	flags := cmd.PersistentFlags()
	flags.StringVar(target, "dir", def, "the directory to write to")

	// For bash-completion
	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}
}
