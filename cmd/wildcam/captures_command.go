package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"wildcam/internal/capturelog"
)

func newCapturesCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "captures",
		Short: "List recorded captures, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := capturelog.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list captures: %w", err)
			}
			if asJSON {
				if events == nil {
					events = []capturelog.Event{}
				}
				return printJSON(cmd.OutOrStdout(), events)
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No captures recorded")
				return nil
			}
			fmt.Fprintln(out, renderCaptureTable(events))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func renderCaptureTable(events []capturelog.Event) string {
	header := table.Row{"ID", "Time", "Classification", "Confidence", "Temp", "Humidity", "Battery", "Light", "Video"}
	rows := make([]table.Row, 0, len(events))
	for _, evt := range events {
		rows = append(rows, table.Row{
			evt.ID,
			evt.Timestamp,
			evt.Classification,
			formatPercent(evt.Confidence),
			formatOptionalFloat(evt.Temp),
			formatOptionalFloat(evt.Humidity),
			formatOptionalInt(evt.Battery),
			formatOptionalInt(evt.LightState),
			evt.VideoName(),
		})
	}
	return renderTable(header, rows, 1, 4, 5, 6, 7, 8)
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func formatOptionalInt(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
