// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/rag-filesearch/internal/confirm"
	"github.com/pdiddy/rag-filesearch/internal/gemini"
	"github.com/pdiddy/rag-filesearch/internal/journal"
	"github.com/pdiddy/rag-filesearch/internal/lifecycle"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

func newClient(cfg types.Config) *gemini.Client {
	return gemini.New(cfg, logger)
}

func newPrompter(cmd *cobra.Command) *confirm.Prompter {
	return confirm.New(cmd.InOrStdin(), cmd.OutOrStdout())
}

// openJournal opens the configured journal. The journal is advisory, so an
// open failure is logged and nil is returned.
func openJournal(cfg types.Config) *journal.Journal {
	if cfg.JournalPath == "" {
		return nil
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Warn("ingest journal unavailable", zap.String("path", cfg.JournalPath), zap.Error(err))
		return nil
	}
	return j
}

func printPersistHint(w io.Writer, ref types.StoreRef) {
	fmt.Fprintf(w, "Created store %s\n", ref.Name)
	fmt.Fprintln(w, "Add this line to your .env so later runs reuse the store:")
	fmt.Fprintf(w, "\n  STORE_NAME=%s\n\n", ref.Name)
}

// printLocalResetNotice states that a local reset leaves the remote store
// untouched.
func printLocalResetNotice(w io.Writer, storeName string) {
	fmt.Fprintln(w, "Note: documents already uploaded are still in the remote store.")
	if storeName != "" {
		fmt.Fprintf(w, "Current store: %s\n", storeName)
	}
	fmt.Fprintln(w, "To remove them, run `rag-filesearch store delete`.")
}

// mappingResetSteps asks yes/no and then for the typed token RESET.
func mappingResetSteps(path string) []confirm.Step {
	return []confirm.Step{
		confirm.YesNo(fmt.Sprintf("Delete the local mapping file %s?", path)),
		confirm.Typed("Remote documents are NOT deleted.", "RESET"),
	}
}

// resetLocalMapping confirms and removes the mapping file.
func resetLocalMapping(cmd *cobra.Command, cfg types.Config, yes bool) error {
	out := cmd.OutOrStdout()
	p := newPrompter(cmd)
	if err := p.RequireDestructive(yes, mappingResetSteps(cfg.MappingFile)...); err != nil {
		return err
	}

	removed, err := lifecycle.ResetLocalMapping(cfg.MappingFile)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(out, "Removed %s\n", cfg.MappingFile)
	} else {
		fmt.Fprintf(out, "No mapping file at %s\n", cfg.MappingFile)
	}
	printLocalResetNotice(out, cfg.StoreName)
	return nil
}
