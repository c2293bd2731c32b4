package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/intake/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "intake: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Intake service operations CLI",
		Long: `intake inspects the report log, dry-runs the validation rules, and launches
the server and archive worker binaries during development.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newReportsCmd(),
		newCheckCmd(),
		newLaunchCmd("serve", "./cmd/server", nil),
		newLaunchCmd("worker", "./cmd/worker", requireArchive),
	)
	return cmd
}

// newLaunchCmd starts a repository binary with go run once the current
// configuration loads and passes check.
func newLaunchCmd(name, pkg string, check func(*config.Config) error) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [args]",
		Short: fmt.Sprintf("Check the configuration and go run %s", pkg),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if check != nil {
				if err := check(cfg); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: public dir %s, report store %s\n", name, cfg.PublicDir, cfg.ReportStore)
			run := exec.CommandContext(cmd.Context(), "go", append([]string{"run", pkg}, args...)...)
			run.Stdin = cmd.InOrStdin()
			run.Stdout = cmd.OutOrStdout()
			run.Stderr = cmd.ErrOrStderr()
			return run.Run()
		},
	}
}

var errArchiveDisabled = errors.New("archive worker needs INTAKE_REDIS_ADDR")

func requireArchive(cfg *config.Config) error {
	if !cfg.ArchiveEnabled() {
		return errArchiveDisabled
	}
	return nil
}
