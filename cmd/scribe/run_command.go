package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/diarize"
	"scribe/internal/events"
	"scribe/internal/fileutil"
	"scribe/internal/history"
	"scribe/internal/job"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/transcript"
)

type runOptions struct {
	language    string
	target      string
	output      string
	enrichers   string
	numSpeakers int
	minSpeakers int
	maxSpeakers int
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <audio>",
		Short: "Process one audio file into an enriched transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Source language (defaults to pipeline.language)")
	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "Translation target language (overrides translation.target_language)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Transcript JSON path (defaults to <output_dir>/<name>.json)")
	cmd.Flags().StringVar(&opts.enrichers, "enrichers", "", "Comma-separated enricher chain (overrides pipeline.enrichers)")
	cmd.Flags().IntVar(&opts.numSpeakers, "speakers", 0, "Exact number of speakers, if known")
	cmd.Flags().IntVar(&opts.minSpeakers, "min-speakers", 0, "Lower bound on the number of speakers")
	cmd.Flags().IntVar(&opts.maxSpeakers, "max-speakers", 0, "Upper bound on the number of speakers")
	return cmd
}

func runJob(cmd *cobra.Command, ctx *commandContext, source string, opts runOptions) error {
	baseCfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfg, err := applyRunOverrides(baseCfg, opts)
	if err != nil {
		return err
	}

	lang := strings.TrimSpace(opts.language)
	if lang == "" {
		lang = cfg.Pipeline.Language
	}
	if lang == "" {
		return errors.New("source language is required: pass --language or set pipeline.language")
	}
	lang, err = language.Normalize(lang)
	if err != nil {
		return err
	}

	speakers := diarize.Options{
		NumSpeakers: opts.numSpeakers,
		MinSpeakers: opts.minSpeakers,
		MaxSpeakers: opts.maxSpeakers,
	}
	if speakers == (diarize.Options{}) {
		speakers = diarize.Options{
			NumSpeakers: cfg.Diarization.NumSpeakers,
			MinSpeakers: cfg.Diarization.MinSpeakers,
			MaxSpeakers: cfg.Diarization.MaxSpeakers,
		}
	}
	if err := speakers.Validate(); err != nil {
		return err
	}

	outputPath, err := resolveOutputPath(cfg, source, opts.output)
	if err != nil {
		return err
	}
	lock := flock.New(filepath.Join(filepath.Dir(outputPath), ".scribe.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another scribe run is writing to %s", filepath.Dir(outputPath))
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := history.Open(runCtx, cfg.HistoryPath())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	bus := events.NewBus()
	events.NewLogHandler(logger).Register(bus)
	recorder := history.NewRecorder(context.WithoutCancel(runCtx), store, logger)
	recorder.Register(bus)
	var timings []events.PipelineStepTimed
	bus.Subscribe(events.KindPipelineStepTimed, func(e events.Event) {
		if timed, ok := e.(events.PipelineStepTimed); ok {
			timings = append(timings, timed)
		}
	})

	st, err := ctx.buildStack(runCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithPublisher(bus),
		pipeline.WithEnrichers(st.enrichers...),
	}
	if strings.TrimSpace(opts.target) != "" {
		pipelineOpts = append(pipelineOpts, pipeline.WithTargetLanguage(cfg.Translation.TargetLanguage))
	}
	orchestrator, err := pipeline.New(st.normalizer, st.transcriber, st.diarizer, pipelineOpts...)
	if err != nil {
		return err
	}

	j, execErr := orchestrator.Execute(runCtx, source, lang, speakers)
	if j == nil {
		return execErr
	}

	resultPath := ""
	if j.Status == job.StatusCompleted && j.Result != nil {
		if err := (transcript.FileRepository{}).Save(outputPath, *j.Result); err != nil {
			return err
		}
		resultPath = outputPath
	}
	if err := store.SaveJob(context.WithoutCancel(runCtx), j, resultPath); err != nil {
		logging.WarnWithContext(logger, "job history not saved", "history_write_failed",
			logging.String(logging.FieldJobID, j.ID.String()),
			logging.Error(err))
	}

	out := cmd.OutOrStdout()
	printRunSummary(out, j, resultPath, timings, shouldColorize(out))

	if j.Status == job.StatusFailed {
		return fmt.Errorf("job %s failed: %s", logging.ShortID(j.ID.String()), j.ErrorMessage)
	}
	return execErr
}

// applyRunOverrides returns a copy of base with command-line overrides
// applied and revalidated.
func applyRunOverrides(base *config.Config, opts runOptions) (*config.Config, error) {
	cfg := *base
	cfg.Pipeline.Enrichers = append([]string(nil), base.Pipeline.Enrichers...)
	if raw := strings.TrimSpace(opts.enrichers); raw != "" {
		var names []string
		for _, name := range strings.Split(raw, ",") {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				names = append(names, name)
			}
		}
		cfg.Pipeline.Enrichers = names
	}
	if target := strings.TrimSpace(opts.target); target != "" {
		normalized, err := language.Normalize(target)
		if err != nil {
			return nil, fmt.Errorf("--target: %w", err)
		}
		cfg.Translation.TargetLanguage = normalized
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveOutputPath(cfg *config.Config, source, output string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		output = filepath.Join(cfg.Paths.OutputDir, fileutil.Stem(source)+".json")
	}
	expanded, err := config.ExpandPath(output)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return expanded, nil
}

func printRunSummary(out io.Writer, j *job.Job, resultPath string, timings []events.PipelineStepTimed, colorize bool) {
	kind := statusOK
	label := "Completed"
	if j.Status == job.StatusFailed {
		kind = statusError
		label = "Failed"
	}
	for _, line := range renderSectionHeader("Job "+logging.ShortID(j.ID.String()), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", kind, label, colorize))
	fmt.Fprintln(out, renderStatusLine("Source", statusInfo, j.SourcePath, colorize))
	fmt.Fprintln(out, renderStatusLine("Language", statusInfo, j.TargetLanguage, colorize))
	if j.Result != nil {
		fmt.Fprintln(out, renderStatusLine("Utterances", statusInfo, strconv.Itoa(j.Result.Len()), colorize))
		fmt.Fprintln(out, renderStatusLine("Speakers", statusInfo, strconv.Itoa(len(j.Result.Speakers())), colorize))
		if lang := j.Result.TargetLanguage(); lang != "" {
			fmt.Fprintln(out, renderStatusLine("Transcript language", statusInfo, language.DisplayName(lang), colorize))
		}
	}
	if resultPath != "" {
		fmt.Fprintln(out, renderStatusLine("Output", statusOK, resultPath, colorize))
	}
	if j.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, fmt.Sprintf("%s (%s)", j.ErrorMessage, j.ErrorKind), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Duration", statusInfo, events.FormatDuration(j.Duration()), colorize))

	if len(timings) == 0 {
		return
	}
	rows := make([][]string, 0, len(timings))
	for _, t := range timings {
		rows = append(rows, []string{t.StepName, events.FormatDuration(t.Duration)})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]string{"Step", "Took"}, rows, []columnAlignment{alignLeft, alignRight}))
}
