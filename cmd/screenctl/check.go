package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"screener/internal/app"
	"screener/internal/screening/models"
	pstrings "screener/pkg/platform/strings"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check NAME...",
		Short: "Screen one or more entities",
		Long: `Screen entities against the sanctions registry and trusted web sources.

Each argument is one entity name or registry identifier. Results are cached
exactly as they would be by the HTTP service.

Examples:
  screenctl check "Jane Doe"
  screenctl check "ACME Corp" Q7747 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			cfg, log := loadConfig(cmd)

			entities := pstrings.DedupeAndTrim(args)
			if len(entities) == 0 {
				return fmt.Errorf("no valid entity names given")
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			findings := a.Service.CheckBatch(ctx, entities)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(findings)
			}
			return writeTable(cmd.OutOrStdout(), []string{"ENTITY", "FOUND", "ITEMS", "STATUS", "SUMMARY"}, findingRows(findings))
		},
	}
	cmd.Flags().Bool("json", false, "Print full findings as JSON")
	return cmd
}

func findingRows(findings []*models.AggregatedFinding) [][]string {
	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		found := "no"
		if f.Found {
			found = "yes"
		}
		rows = append(rows, []string{
			f.EntityName,
			found,
			strconv.Itoa(len(f.Results)),
			f.ProcessingStatus,
			f.Summary,
		})
	}
	return rows
}
