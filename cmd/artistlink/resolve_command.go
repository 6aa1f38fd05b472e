package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sydlexius/artistlink/internal/popularity"
	"github.com/sydlexius/artistlink/internal/provider"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Fetch the artist behind a platform profile URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logManager, logger := ctx.logger(cmd.ErrOrStderr())
			defer logManager.Close() //nolint:errcheck

			svc, err := ctx.service(logger, nil)
			if err != nil {
				return err
			}
			rec, err := svc.ResolveURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			score := svc.AggregatePopularity(popularity.AudiencePerPlatform{rec.Platform: rec.Audience})

			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					Artist     *provider.ArtistRecord `json:"artist"`
					Popularity int                    `json:"popularity"`
				}{rec, score})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"},
				artistRows(rec, score),
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func artistRows(rec *provider.ArtistRecord, score int) [][]string {
	rows := [][]string{
		{"Platform", rec.Platform.DisplayName()},
		{"ID", rec.ID},
		{"Name", rec.Name},
		{"URL", rec.ProfileURL()},
		{"Popularity", strconv.Itoa(score)},
	}
	if len(rec.Genres) > 0 {
		rows = append(rows, []string{"Genres", strings.Join(rec.Genres, ", ")})
	}
	if rec.Location != "" {
		rows = append(rows, []string{"Location", rec.Location})
	}
	a := rec.Audience
	for _, s := range []struct {
		label string
		value *int64
	}{
		{"Followers", a.Followers},
		{"Subscribers", a.Subscribers},
		{"Listeners", a.Listeners},
		{"Plays", a.Plays},
		{"Views", a.Views},
		{"Albums", a.Albums},
	} {
		if s.value != nil {
			rows = append(rows, []string{s.label, strconv.FormatInt(*s.value, 10)})
		}
	}
	return rows
}
