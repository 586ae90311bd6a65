package cmd

import (
	"fmt"
	"runtime"

	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command
func NewVersionCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			if version == "" {
				version = "dev"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tkblender version %s (%s, %s/%s)\n",
				version, core.EngineName, runtime.GOOS, runtime.GOARCH)
		},
	}

	return cmd
}
