package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mixdown/internal/presets"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "presets",
		Short:       "List the available genre presets",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0)
			for _, preset := range presets.All() {
				rows = append(rows, []string{
					preset.Key,
					preset.Name,
					fmt.Sprintf("%d", preset.BPM),
					preset.Style,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Key", "Name", "BPM", "Style"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}
