package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sydlexius/artistlink/internal/popularity"
	"github.com/sydlexius/artistlink/internal/provider"
)

func newScoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Compute the unified popularity score of audience metrics read from stdin",
		Long: `Reads a JSON object keyed by platform, for example
  {"spotify":{"popularity":80},"deezer":{"followers":120000,"albums":9}}
and prints the per-platform sub-scores and the unified score.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			var metrics popularity.AudiencePerPlatform
			if err := json.Unmarshal(data, &metrics); err != nil {
				return fmt.Errorf("decoding metrics: %w", err)
			}

			result := scoreResult{SubScores: map[provider.ProviderName]float64{}}
			for name, m := range metrics {
				if !name.Valid() {
					return &provider.ErrValidation{Input: string(name), Reason: "unknown platform"}
				}
				if sub, ok := popularity.SubScore(name, m); ok {
					result.SubScores[name] = sub
				}
			}
			result.Score = popularity.Aggregate(metrics)

			if ctx.jsonOutput() {
				return writeJSON(cmd, result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Platform", "Weight", "Sub-score"},
				result.rows(),
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Popularity: %d\n", result.Score)
			return nil
		},
	}
}

type scoreResult struct {
	Score     int                               `json:"score"`
	SubScores map[provider.ProviderName]float64 `json:"sub_scores"`
}

func (r scoreResult) rows() [][]string {
	names := make([]provider.ProviderName, 0, len(r.SubScores))
	for name := range r.SubScores {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{
			name.DisplayName(),
			strconv.FormatFloat(popularity.Weight(name), 'f', 1, 64),
			strconv.FormatFloat(r.SubScores[name], 'f', 1, 64),
		})
	}
	return rows
}
