package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/config"
	"scribe/internal/language"
	"scribe/internal/transcript"
)

func newShowCommand() *cobra.Command {
	var asJSON bool
	var showNotes bool

	cmd := &cobra.Command{
		Use:         "show <transcript.json>",
		Short:       "Render a saved transcript",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			t, err := (transcript.FileRepository{}).Load(path)
			if err != nil {
				return err
			}
			if asJSON {
				return transcript.Encode(cmd.OutOrStdout(), t)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTranscript(t, showNotes))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the transcript JSON instead of a table")
	cmd.Flags().BoolVar(&showNotes, "notes", false, "Include learner notes")
	return cmd
}

func renderTranscript(t transcript.AudioTranscript, showNotes bool) string {
	utterances := t.Utterances()
	hasTranslation := false
	for _, u := range utterances {
		if _, ok := u.TranslatedText(); ok {
			hasTranslation = true
			break
		}
	}

	headers := []string{"#", "Start", "End", "Speaker", "Text"}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft}
	if hasTranslation {
		headers = append(headers, "Translation")
		aligns = append(aligns, alignLeft)
	}
	if showNotes {
		headers = append(headers, "Notes")
		aligns = append(aligns, alignLeft)
	}

	rows := make([][]string, 0, len(utterances))
	for i, u := range utterances {
		row := []string{
			fmt.Sprintf("%d", i+1),
			formatClock(u.Timestamp().Start().Seconds()),
			formatClock(u.Timestamp().End().Seconds()),
			u.SpeakerID(),
			strings.TrimSpace(u.Text()),
		}
		if hasTranslation {
			translated, _ := u.TranslatedText()
			row = append(row, translated)
		}
		if showNotes {
			notes, _ := u.LearnerNotes()
			row = append(row, notes)
		}
		rows = append(rows, row)
	}

	wraps := []tableOption{wrapColumn(4, 60)}
	for i := 5; i < len(headers); i++ {
		wraps = append(wraps, wrapColumn(i, 50))
	}
	var b strings.Builder
	b.WriteString(renderTable(headers, rows, aligns, wraps...))
	b.WriteString("\n")
	summary := fmt.Sprintf("%d utterances, %d speakers, %s total", t.Len(), len(t.Speakers()), formatClock(t.TotalDuration().Seconds()))
	if lang := t.TargetLanguage(); lang != "" {
		summary += ", " + language.DisplayName(lang)
	}
	b.WriteString(summary + "\n")
	return b.String()
}

// formatClock renders seconds as m:ss.mmm.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	minutes := totalMillis / 60000
	secs := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%d:%02d.%03d", minutes, secs, millis)
}
