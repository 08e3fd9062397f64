// Package main provides the sage CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sagevault/sage/cli"
	"github.com/sagevault/sage/confidence"
)

var (
	// Global flags
	provider string
	model    string
	strategy string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "sage",
		Short: "Personal knowledge assistant over your note vault",
		Long: `Sage answers questions grounded in your own notes.

It searches the vault with keyword, semantic, and link-graph retrieval,
reasons over the results, and annotates answers with a confidence level.`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (anthropic, openai, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model override for the chosen provider")
	rootCmd.PersistentFlags().StringVarP(&strategy, "strategy", "s", "", "Retrieval strategy (keyword_only, semantic_only, graph_only, hybrid_current, hybrid_learned)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show reasoning trace and timings")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(calibrateCmd())
	rootCmd.AddCommand(noteCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		Model:    model,
		Strategy: strategy,
		Verbose:  verbose,
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question from your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], options())
		},
	}
}

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation that remembers context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), sessionID, options())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session by ID")
	return cmd
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Rebuild the semantic index from every note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Index(context.Background(), options())
		},
	}
}

func calibrateCmd() *cobra.Command {
	var bins int
	var curve bool

	cmd := &cobra.Command{
		Use:   "calibrate [records.jsonl]",
		Short: "Score confidence calibration from logged outcomes",
		Long: `Reads JSONL records of the form {"type": "technical", "predicted": 0.8, "actual": 1}
and reports Brier score, expected calibration error, and a recommended
warning threshold per answer type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Calibrate(args[0], bins, curve)
		},
	}
	cmd.Flags().IntVar(&bins, "bins", confidence.DefaultECEBins, "Number of equal-width calibration bins")
	cmd.Flags().BoolVar(&curve, "curve", false, "Print the calibration curve")
	return cmd
}

func noteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Work with vault notes directly",
	}

	addCmd := &cobra.Command{
		Use:   "add [title] [content]",
		Short: "Create or update a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NoteAdd(context.Background(), args[0], args[1], options())
		},
	}

	showCmd := &cobra.Command{
		Use:   "show [title]",
		Short: "Print a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NoteShow(context.Background(), args[0], options())
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NoteList(context.Background(), limit, options())
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum notes to list")

	cmd.AddCommand(addCmd, showCmd, listCmd)
	return cmd
}
