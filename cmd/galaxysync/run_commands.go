package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"galaxysync/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var modes runner.Modes

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Import games and rebuild tag collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, ctx, modes)
		},
	}
	addRunFlags(cmd, &modes)
	return cmd
}

func newGamesCommand(ctx *commandContext) *cobra.Command {
	var modes runner.Modes

	cmd := &cobra.Command{
		Use:   "games",
		Short: "Import games only, leaving collections untouched",
		RunE: func(cmd *cobra.Command, args []string) error {
			modes.GamesOnly = true
			return executeRun(cmd, ctx, modes)
		},
	}
	addRunFlags(cmd, &modes)
	return cmd
}

func newCollectionsCommand(ctx *commandContext) *cobra.Command {
	var modes runner.Modes

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Rebuild tag collections only, importing no games",
		RunE: func(cmd *cobra.Command, args []string) error {
			modes.CollectionsOnly = true
			return executeRun(cmd, ctx, modes)
		},
	}
	cmd.Flags().StringVar(&modes.Search, "search", "", "Only consider releases whose title contains this substring")
	return cmd
}

func addRunFlags(cmd *cobra.Command, modes *runner.Modes) {
	cmd.Flags().StringVar(&modes.Search, "search", "", "Only import releases whose title contains this substring")
	cmd.Flags().IntVar(&modes.Limit, "limit", 0, "Cap the number of library rows considered (0 = unlimited)")
	cmd.Flags().BoolVar(&modes.Force, "force", false, "Re-upload executables and assets for already-mapped releases")
}

func executeRun(cmd *cobra.Command, ctx *commandContext, modes runner.Modes) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.New(cfg, logger).Run(runCtx, modes)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(summary))
	return nil
}
