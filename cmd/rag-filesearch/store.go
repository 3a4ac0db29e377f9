// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rag-filesearch/internal/answer"
	"github.com/pdiddy/rag-filesearch/internal/confirm"
	"github.com/pdiddy/rag-filesearch/internal/lifecycle"
	"github.com/pdiddy/rag-filesearch/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Create, list, inspect, and delete File Search stores",
	Long: `Store manages remote File Search stores. Deleting a store removes every
document in it and cannot be undone; the local mapping file is left as is.`,
}

// --- create subcommand ---

var storeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		displayName, _ := cmd.Flags().GetString("display-name")
		if displayName != "" {
			cfg.DisplayName = displayName
		}
		ref, _, err := lifecycle.New(newClient(cfg), cfg, logger, cmd.OutOrStdout()).GetOrCreate(cmd.Context(), types.StoreRef{})
		if err != nil {
			return err
		}
		printPersistHint(cmd.OutOrStdout(), ref)
		return nil
	},
}

// --- list subcommand ---

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every store visible to the API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		stores, err := lifecycle.New(newClient(cfg), cfg, logger, nil).List(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(stores)
		}
		if len(stores) == 0 {
			fmt.Fprintln(out, "No stores found.")
			return nil
		}

		fmt.Fprintf(out, "  %-60s  %-30s  %8s  %s\n", "Name", "Display name", "Docs", "Created")
		fmt.Fprintln(out, "  "+strings.Repeat("-", 120))
		for _, s := range stores {
			marker := " "
			if s.Name == cfg.StoreName {
				marker = "*"
			}
			created := ""
			if !s.CreateTime.IsZero() {
				created = s.CreateTime.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(out, "%s %-60s  %-30s  %8d  %s\n", marker, s.Name, s.DisplayName, s.ActiveDocumentsCount, created)
		}
		if cfg.StoreName != "" {
			fmt.Fprintln(out, "\n* configured store")
		}
		return nil
	},
}

// --- info subcommand ---

var storeInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the configured store and the files recorded for it",
	Long: `Info shows the configured store and the files the local mapping file says
were uploaded. It reads only local state unless --remote is given, which
also fetches the store's document counts.`,
	Args: cobra.NoArgs,
	RunE: runStoreInfo,
}

func runStoreInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	remote, _ := cmd.Flags().GetBool("remote")
	out := cmd.OutOrStdout()

	info := answer.New(nil, cfg, logger).Info(types.StoreRef{Name: cfg.StoreName})
	fmt.Fprintln(out, "Store")
	fmt.Fprintf(out, "  Name:         %s\n", orNA(info.StoreName))
	fmt.Fprintf(out, "  Display name: %s\n", orNA(info.DisplayName))
	fmt.Fprintf(out, "  Status:       %s\n", info.Status)
	if info.Status == types.StatusNotConfigured {
		fmt.Fprintln(out, "\nNo store configured. Set STORE_NAME or run `rag-filesearch ingest`.")
		return nil
	}

	if remote {
		if err := cfg.Validate(); err != nil {
			return err
		}
		s, err := newClient(cfg).GetStore(cmd.Context(), types.StoreRef{Name: cfg.StoreName})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  Documents:    %d active, %d pending, %d failed\n",
			s.ActiveDocumentsCount, s.PendingDocumentsCount, s.FailedDocumentsCount)
		fmt.Fprintf(out, "  Size:         %.1f KB\n", float64(s.SizeBytes)/1024)
	}

	files, err := lifecycle.ListFiles(cfg.MappingFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nFiles recorded in %s: %d\n", cfg.MappingFile, len(files))
	for i, f := range files {
		if i == 5 {
			fmt.Fprintf(out, "  ... and %d more\n", len(files)-5)
			break
		}
		fmt.Fprintf(out, "  %d. %s\n", i+1, f.Title)
		fmt.Fprintf(out, "     %s (%.1f KB, uploaded %s)\n", f.OriginalFilename, float64(f.FileSize)/1024, f.UploadDate)
	}
	return nil
}

// --- delete subcommand ---

var storeDeleteCmd = &cobra.Command{
	Use:   "delete [store-name]",
	Short: "Delete a store and every document in it",
	Long: `Delete removes every document in the store, then the store itself. The
store defaults to the configured one; with none configured, the available
stores are listed for selection.

Interactive use asks twice: a yes/no question, then typing DELETE. Pass
--yes to skip both, which is required when stdin is not a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStoreDelete,
}

func runStoreDelete(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")
	out := cmd.OutOrStdout()
	client := newClient(cfg)
	mgr := lifecycle.New(client, cfg, logger, out)
	p := newPrompter(cmd)

	target := cfg.StoreName
	if len(args) == 1 {
		target = args[0]
	}
	if target == "" {
		target, err = selectStore(cmd, mgr, p)
		if err != nil {
			return err
		}
	}
	ref := types.StoreRef{Name: target}

	fmt.Fprintf(out, "Store to delete: %s\n", ref.Name)
	fmt.Fprintln(out, "Every document in the store will be deleted. This cannot be undone.")
	if err := p.RequireDestructive(yes,
		confirm.YesNo("Delete this store?"),
		confirm.Typed("Last check.", "DELETE"),
	); err != nil {
		return err
	}

	res := mgr.DeleteCascade(cmd.Context(), ref)
	fmt.Fprintln(out, res.Summary())
	if !res.Deleted {
		return res.Err
	}

	if ref.Name == cfg.StoreName {
		fmt.Fprintln(out, "Remove STORE_NAME from your .env; the store no longer exists.")
	}
	fmt.Fprintf(out, "The local mapping file %s was not changed. Run `rag-filesearch mapping reset` to clear it.\n", cfg.MappingFile)
	return nil
}

func selectStore(cmd *cobra.Command, mgr *lifecycle.Manager, p *confirm.Prompter) (string, error) {
	stores, err := mgr.List(cmd.Context())
	if err != nil {
		return "", err
	}
	if len(stores) == 0 {
		return "", fmt.Errorf("no stores to delete")
	}
	if !p.Interactive {
		return "", fmt.Errorf("%w: name the store to delete", types.ErrNotConfigured)
	}

	options := make([]string, len(stores))
	for i, s := range stores {
		options[i] = fmt.Sprintf("%s (%s)", s.Name, s.DisplayName)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Stores:")
	idx, err := p.Choose("Select a store to delete", options)
	if err != nil {
		return "", err
	}
	if idx < 0 {
		return "", confirm.ErrAborted
	}
	return stores[idx].Name, nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func init() {
	storeCreateCmd.Flags().String("display-name", "", "display name for the new store (default wikipedia-knowledge-base)")
	storeListCmd.Flags().Bool("json", false, "output stores as JSON")
	storeInfoCmd.Flags().Bool("remote", false, "also fetch document counts from the service")
	storeDeleteCmd.Flags().Bool("yes", false, "do not ask for confirmation")

	storeCmd.AddCommand(storeCreateCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeInfoCmd)
	storeCmd.AddCommand(storeDeleteCmd)

	rootCmd.AddCommand(storeCmd)
}
