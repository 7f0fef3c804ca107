package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"entrysummary/internal/exporter"
	"entrysummary/internal/model"
	"entrysummary/internal/pipeline"
)

type convertFlags struct {
	outDir      string
	concurrency int
	writeJSON   bool
}

func newConvertCommand(root *rootFlags) *cobra.Command {
	flags := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert <result.json>...",
		Short: "Convert extraction result JSON files into xlsx",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]pipeline.Document, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				docs = append(docs, pipeline.Document{Source: model.SourceCLI, Filename: path, JSON: data})
			}
			return runBatch(cmd.Context(), root, flags, docs, false)
		},
	}
	addOutputFlags(cmd, flags)
	return cmd
}

func newExtractCommand(root *rootFlags) *cobra.Command {
	flags := &convertFlags{}
	var runIDs []string
	cmd := &cobra.Command{
		Use:   "extract [form7501.pdf]...",
		Short: "Send PDFs (or fetch existing run ids) through the extraction workflow and convert the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(runIDs) == 0 {
				return errors.New("need at least one PDF or --run-id")
			}
			docs := make([]pipeline.Document, 0, len(args)+len(runIDs))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				docs = append(docs, pipeline.Document{Source: model.SourceCLI, Filename: path, PDF: data})
			}
			for _, id := range runIDs {
				docs = append(docs, pipeline.Document{Source: model.SourceRunID, Filename: "run_" + id, RunID: id})
			}
			return runBatch(cmd.Context(), root, flags, docs, true)
		},
	}
	addOutputFlags(cmd, flags)
	cmd.Flags().StringSliceVar(&runIDs, "run-id", nil, "Fetch the result of an existing workflow run (repeatable)")
	return cmd
}

func addOutputFlags(cmd *cobra.Command, flags *convertFlags) {
	cmd.Flags().StringVarP(&flags.outDir, "out", "o", ".", "Output directory")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "Documents processed in parallel (default from config)")
	cmd.Flags().BoolVar(&flags.writeJSON, "json", false, "Also write the rows as JSON next to each xlsx")
}

func runBatch(ctx context.Context, root *rootFlags, flags *convertFlags, docs []pipeline.Document, needExtractor bool) error {
	opts, client, err := loadOptions(root)
	if err != nil {
		return err
	}
	if needExtractor && !client.Configured() {
		return errors.New("extraction API key not set (A79_API_KEY)")
	}
	if err := os.MkdirAll(flags.outDir, 0755); err != nil {
		return err
	}
	opts.ExportDir = flags.outDir
	if flags.concurrency > 0 {
		opts.MaxConcurrent = flags.concurrency
	}

	var extractor pipeline.Extractor
	if needExtractor {
		extractor = client
	}
	coordinator := pipeline.NewCoordinator(extractor, nil, nil, opts)

	failed := 0
	for _, item := range coordinator.ProcessBatch(ctx, docs) {
		if item.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", item.Document.Filename, item.Err)
			continue
		}
		res := item.Result
		fmt.Printf("✓ %s → %s (%d rows, shape=%s, validation=%s)\n",
			item.Document.Filename, res.ExportPath, len(res.Rows), res.Shape.Shape, res.Validation.Status)
		for _, e := range res.Validation.Errors {
			fmt.Printf("    error: %s\n", e)
		}
		if flags.writeJSON && res.ExportPath != "" {
			if err := writeRowsJSON(res, opts); err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", item.Document.Filename, err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

func writeRowsJSON(res *pipeline.Result, opts pipeline.Options) error {
	path := strings.TrimSuffix(res.ExportPath, filepath.Ext(res.ExportPath)) + ".json"
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exporter.WriteJSON(f, res.Rows, opts.Expander.Schema()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
