package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/tkblender/internal/config"
	"github.com/quantmind-br/tkblender/internal/core"
	"github.com/quantmind-br/tkblender/internal/locator"
	"github.com/quantmind-br/tkblender/internal/ui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command
func NewScanCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		jsonOutput bool
		filter     string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List installed Blender versions",
		Long: `Scan the path templates of this platform for Blender executables.
Versions older than the configured minimum are left out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidates := scanCandidates(cmd.Context(), cfg, log, cmd.ErrOrStderr())
			candidates = filterCandidates(filter, candidates)

			if jsonOutput {
				if candidates == nil {
					candidates = []core.SoftwareCandidate{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(candidates)
			}

			if len(candidates) == 0 {
				if filter != "" {
					ui.PrintWarning("No Blender installation matches %q", filter)
				} else {
					ui.PrintWarning("No supported Blender installation found")
				}
				return nil
			}

			printCandidateTable(cmd.OutOrStdout(), candidates)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().StringVar(&filter, "filter", "", "fuzzy filter on path and version")

	return cmd
}

// scanCandidates runs the locator behind a spinner
func scanCandidates(ctx context.Context, cfg *config.Config, log *zerolog.Logger, progress io.Writer) []core.SoftwareCandidate {
	if ctx == nil {
		ctx = context.Background()
	}

	spinner := ui.NewSpinner(progress, "Scanning for Blender...")
	spinner.Tick()
	candidates := locator.New(cfg, log).Scan(ctx)
	_ = spinner.Finish()

	log.Debug().Int("count", len(candidates)).Msg("scan finished")
	return candidates
}

// candidateOptions turns candidates into select options keyed by index
func candidateOptions(candidates []core.SoftwareCandidate) []ui.SelectOption {
	options := make([]ui.SelectOption, len(candidates))
	for i, c := range candidates {
		label := c.DisplayName
		if c.HasVersion() {
			label += " " + c.Version
		}
		options[i] = ui.SelectOption{
			Label:  label,
			Detail: c.ExecutablePath,
			Value:  strconv.Itoa(i),
		}
	}
	return options
}

// filterCandidates keeps the candidates fuzzily matching query, best first
func filterCandidates(query string, candidates []core.SoftwareCandidate) []core.SoftwareCandidate {
	if query == "" {
		return candidates
	}

	matched := ui.FilterOptions(query, candidateOptions(candidates))
	filtered := make([]core.SoftwareCandidate, 0, len(matched))
	for _, opt := range matched {
		i, err := strconv.Atoi(opt.Value)
		if err != nil {
			continue
		}
		filtered = append(filtered, candidates[i])
	}
	return filtered
}

// printCandidateTable prints candidates as a table
func printCandidateTable(w io.Writer, candidates []core.SoftwareCandidate) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Version", "Executable", "Arguments"}),
		tablewriter.WithAlignment(tw.MakeAlign(3, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for _, c := range candidates {
		extra := "-"
		if len(c.Args) > 0 {
			extra = fmt.Sprint(c.Args)
		}
		table.Append(ui.ColorizeVersion(c.Version), c.ExecutablePath, extra)
	}

	table.Render()
}
