package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/deps"
	"scribe/internal/preflight"
	"scribe/internal/services/llm"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var checkRemote bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories, and services the configuration needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := deps.Check(cfg)
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				detail := s.Detail
				if detail == "" {
					detail = s.Description
				}
				rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "Available", "Detail"}, rows, nil))

			failed := 0
			printResults := func(title string, results []preflight.Result) {
				for _, line := range renderSectionHeader(title, colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
						failed++
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
			}
			printResults("Directories", preflight.CheckDirectories(cfg))

			if checkRemote {
				remote := preflight.RunRemote(cmd.Context(), cfg, healthCheckerFor(cfg))
				if len(remote) == 0 {
					for _, line := range renderSectionHeader("Services", colorize) {
						fmt.Fprintln(out, line)
					}
					fmt.Fprintln(out, renderStatusLine("Remote services", statusInfo, "Not used by the enricher chain", colorize))
				} else {
					printResults("Services", remote)
				}
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkRemote, "remote", false, "Also contact the LLM provider and the Redis cache")
	return cmd
}

// healthCheckerFor returns a probe for the configured completer, or nil when
// no completer can be built.
func healthCheckerFor(cfg *config.Config) preflight.HealthChecker {
	if !cfg.NeedsLLM() {
		return nil
	}
	completer, err := newCompleter(cfg)
	if err != nil {
		return nil
	}
	if checker, ok := completer.(preflight.HealthChecker); ok {
		return checker
	}
	return pingChecker{completer: completer}
}

type pingChecker struct {
	completer llm.Completer
}

func (p pingChecker) HealthCheck(ctx context.Context) error {
	return llm.Ping(ctx, p.completer)
}
