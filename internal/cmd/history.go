package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/db"
	"github.com/quantmind-br/tkblender/internal/toolkit"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command
func NewHistoryCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent Blender launches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			database, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			launches, err := database.ListLaunches(ctx, limit)
			if err != nil {
				ui.PrintError("failed to list launches: %v", err)
				return fmt.Errorf("list launches: %w", err)
			}

			if jsonOutput {
				if launches == nil {
					launches = []db.Launch{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(launches)
			}

			if len(launches) == 0 {
				ui.PrintInfo("No launches recorded")
				return nil
			}

			printLaunchTable(cmd.OutOrStdout(), launches, log)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of launches to show (0 for all)")

	return cmd
}

// printLaunchTable prints launches with their decoded context
func printLaunchTable(w io.Writer, launches []db.Launch, log *zerolog.Logger) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Date", "Version", "Context", "File", "Launch ID"}),
		tablewriter.WithAlignment(tw.MakeAlign(5, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleLight)),
	)

	for _, l := range launches {
		table.Append(
			l.LaunchedAt.Format("2006-01-02 15:04"),
			ui.ColorizeVersion(l.Version),
			describeContext(l.Context, log),
			orDash(l.FileToOpen),
			truncateID(l.LaunchID),
		)
	}

	table.Render()
}

func describeContext(serialized string, log *zerolog.Logger) string {
	if serialized == "" {
		return "-"
	}
	c, err := toolkit.Deserialize(serialized)
	if err != nil {
		log.Debug().Err(err).Msg("undecodable launch context")
		return "?"
	}
	return c.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateID shortens a uuid to its first group
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
