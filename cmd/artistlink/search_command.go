package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sydlexius/artistlink/internal/match"
	"github.com/sydlexius/artistlink/internal/provider"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var exclude string

	cmd := &cobra.Command{
		Use:   "search <artist name>",
		Short: "Search every platform and group the results into identities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logManager, logger := ctx.logger(cmd.ErrOrStderr())
			defer logManager.Close() //nolint:errcheck

			svc, err := ctx.service(logger, nil)
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			excluded := provider.ProviderName(strings.ToLower(strings.TrimSpace(exclude)))
			matches, err := svc.FindAcrossPlatforms(cmd.Context(), name, excluded)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, matches)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Match", "Platform", "Candidate", "ID", "Confidence", "URL"},
				matchRows(matches),
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&exclude, "exclude", "", "Platform to leave out of the search")
	return cmd
}

func matchRows(matches []match.UnifiedMatch) [][]string {
	var rows [][]string
	for i, m := range matches {
		first := true
		for _, platform := range m.Platforms() {
			for _, c := range m.Candidates[platform] {
				row := []string{"", "", platform.DisplayName(), c.Name, c.ID, formatConfidence(c.Confidence), c.URL}
				if first {
					row[0] = strconv.Itoa(i + 1)
					row[1] = formatConfidence(m.Confidence)
					first = false
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}

func formatConfidence(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}
