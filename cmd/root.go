package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/relay/cmd/gen"
	"github.com/luma/relay/internal/meta"
)

var RootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay bridges game consoles connected over websockets",
	Long: `Relay accepts websocket connections from game consoles, identifies the
player behind each one and lets applications run commands and subscribe
to events on them.`,
	SilenceUsage: true,
}

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(meta.GetInfo())
	},
}

func init() {
	RootCmd.AddCommand(StartCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
