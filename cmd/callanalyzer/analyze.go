package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"call-analyzer/pkg/analysis"
	"call-analyzer/pkg/config"
	"call-analyzer/pkg/transcript"
)

type analyzeOptions struct {
	entity    string
	skipModel bool
	output    string
}

func newAnalyzeCommand(logLevel *string) *cobra.Command {
	opts := analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <transcript.json|transcript.yaml>",
		Short: "Analyze a transcript file and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "table" && opts.output != "json" {
				return fmt.Errorf("unsupported output %q (use table or json)", opts.output)
			}

			// Logs go to stderr so the report can be piped
			logger := newLogger(cmd.ErrOrStderr())
			cfg, err := config.Load(logger)
			if err != nil {
				return err
			}
			configureLogger(logger, cfg.Logging, *logLevel)

			t, err := readTranscript(args[0])
			if err != nil {
				return err
			}

			engine := buildEngine(logger, cfg, !opts.skipModel)
			report := engine.Analyze(cmd.Context(), analysis.Request{
				Transcript: t,
				Entity:     opts.entity,
				SkipModel:  opts.skipModel,
			})

			if opts.output == "json" {
				return writeJSON(cmd, report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderReport(report))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.entity, "entity", "", "Model analysis task (\"Profanity Detection\" or \"Privacy and Compliance Violation\")")
	cmd.Flags().BoolVar(&opts.skipModel, "skip-model", false, "Run only the pattern detectors and call-quality metrics")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table or json")

	return cmd
}

func readTranscript(path string) (transcript.Transcript, error) {
	format, err := transcript.FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	return transcript.Decode(f, format)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func joinTerms(terms []string) string {
	return strings.Join(terms, ", ")
}
