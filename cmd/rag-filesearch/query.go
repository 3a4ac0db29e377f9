// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rag-filesearch/internal/answer"
	"github.com/pdiddy/rag-filesearch/internal/confirm"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [question...]",
	Short: "Ask a question against the File Search store",
	Long: `Query sends a question to the model with File Search scoped to the
configured store and prints the answer followed by its sources.

Without arguments, query starts an interactive session. Type quit, exit, or
q to leave; "debug on" and "debug off" toggle grounding diagnostics.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().Float64("temperature", types.DefaultTemperature, "sampling temperature in [0, 1]")
	queryCmd.Flags().Bool("debug", false, "log grounding metadata for each answer")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	debug, _ := cmd.Flags().GetBool("debug")

	svc := answer.New(newClient(cfg), cfg, logger)
	svc.Debug = debug
	store := types.StoreRef{Name: cfg.StoreName}
	out := cmd.OutOrStdout()

	if len(args) > 0 {
		return answerOnce(cmd.Context(), out, svc, strings.Join(args, " "), store, temperature)
	}
	return interactiveQuery(cmd.Context(), newPrompter(cmd), out, svc, store, temperature)
}

func answerOnce(ctx context.Context, w io.Writer, svc *answer.Service, q string, store types.StoreRef, temperature float64) error {
	a, err := svc.Answer(ctx, q, store, temperature)
	if err != nil {
		if errors.Is(err, types.ErrNotConfigured) {
			return fmt.Errorf("%w: set STORE_NAME or run `rag-filesearch ingest` first", err)
		}
		return err
	}
	fmt.Fprintln(w, a.Text)
	return nil
}

func interactiveQuery(ctx context.Context, p *confirm.Prompter, w io.Writer, svc *answer.Service, store types.StoreRef, temperature float64) error {
	info := svc.Info(store)
	if info.Status == types.StatusNotConfigured {
		return fmt.Errorf("%w: set STORE_NAME or run `rag-filesearch ingest` first", types.ErrNotConfigured)
	}
	fmt.Fprintf(w, "Store: %s\n", info.StoreName)
	fmt.Fprintln(w, "Type quit, exit, or q to leave. \"debug on\" / \"debug off\" toggles grounding diagnostics.")

	for {
		line, err := p.ReadLine("\nQuestion: ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Fprintln(w, "Bye.")
			return nil
		case "debug on":
			svc.Debug = true
			fmt.Fprintln(w, "Debug mode on.")
			continue
		case "debug off":
			svc.Debug = false
			fmt.Fprintln(w, "Debug mode off.")
			continue
		}

		a, err := svc.Answer(ctx, line, store, temperature)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(w, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "\n%s\n", a.Text)
	}
}
