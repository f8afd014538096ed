package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"galaxysync/internal/importmap"
	"galaxysync/internal/logging"
)

func newMapCommand(ctx *commandContext) *cobra.Command {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Inspect the persisted release-to-game import map",
	}

	mapCmd.AddCommand(newMapListCommand(ctx))
	mapCmd.AddCommand(newMapPathCommand(ctx))

	return mapCmd
}

func newMapListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every mapped release key and its catalog game",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := importmap.Open(cfg.ImportMapPath(), logging.NewNop())

			entries := store.Snapshot()
			keys := make([]string, 0, len(entries))
			for key := range entries {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				entry := entries[key]
				rows = append(rows, []string{
					key,
					strconv.FormatInt(entry.IgdbID, 10),
					stringOrDash(entry.Title),
					stringOrDash(entry.ReleaseDate),
					starsOrDash(entry.Stars),
				})
			}

			fmt.Println(renderTable(
				[]string{"Release Key", "Game ID", "Title", "Release Date", "Stars"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight},
			))
			fmt.Printf("%d mapped releases\n", len(keys))
			return nil
		},
	}
}

func newMapPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the import map file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			fmt.Println(cfg.ImportMapPath())
			return nil
		},
	}
}

func stringOrDash(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

func starsOrDash(value *float64) string {
	if value == nil {
		return "-"
	}
	return strconv.FormatFloat(*value, 'g', -1, 64)
}
