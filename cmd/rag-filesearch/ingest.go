// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rag-filesearch/internal/ingest"
	"github.com/pdiddy/rag-filesearch/internal/lifecycle"
	"github.com/pdiddy/rag-filesearch/internal/mapping"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Upload a directory of documents into the File Search store",
	Long: `Ingest uploads every file matching --pattern in --data-dir to the configured
store, creating one if STORE_NAME is not set. Each file is copied to a
temporary file named by its ASCII identifier, uploaded with its original
title as display name, and polled until indexing finishes. Failed files are
reported and skipped; the rest of the batch continues.

--reset deletes the local mapping file first. It does not remove documents
from the remote store; use "store delete" for that.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("data-dir", "./data/wikipedia", "directory of documents to upload")
	ingestCmd.Flags().String("pattern", ingest.DefaultPattern, "glob selecting files in --data-dir")
	ingestCmd.Flags().Bool("reset", false, "delete the local mapping file before uploading")
	ingestCmd.Flags().Bool("skip-existing", false, "skip files already recorded in the mapping file")
	ingestCmd.Flags().Bool("yes", false, "do not ask for confirmation")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	dataDir, _ := cmd.Flags().GetString("data-dir")
	pattern, _ := cmd.Flags().GetString("pattern")
	reset, _ := cmd.Flags().GetBool("reset")
	skipExisting, _ := cmd.Flags().GetBool("skip-existing")
	yes, _ := cmd.Flags().GetBool("yes")

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if reset {
		if err := resetLocalMapping(cmd, cfg, yes); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}

	docs, err := ingest.Discover(dataDir, pattern)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintf(out, "No files matching %s in %s\n", pattern, dataDir)
		return nil
	}

	client := newClient(cfg)
	ref, created, err := lifecycle.New(client, cfg, logger, out).GetOrCreate(ctx, types.StoreRef{Name: cfg.StoreName})
	if err != nil {
		return err
	}
	if created {
		printPersistHint(out, ref)
	}

	m, err := mapping.Load(cfg.MappingFile)
	if err != nil {
		return err
	}

	o := ingest.New(client, cfg, logger, out)
	o.SkipExisting = skipExisting
	if j := openJournal(cfg); j != nil {
		defer j.Close()
		o.Recorder = j
	}

	fmt.Fprintf(out, "Uploading %d files to %s\n\n", len(docs), ref.Name)
	report := o.Ingest(ctx, docs, ref, m)

	if err := mapping.Save(cfg.MappingFile, report.Mapping); err != nil {
		return err
	}
	fmt.Fprintf(out, "Mapping saved: %s (%d files recorded)\n", cfg.MappingFile, len(report.Mapping))
	if report.Succeeded > 0 {
		fmt.Fprintln(out, "Indexing can take a few minutes before new documents show up in answers.")
	}

	if report.Err != nil {
		return report.Err
	}
	if report.HasFailures() {
		return fmt.Errorf("%d file(s) failed to upload", report.Failed)
	}
	return nil
}
