package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danharker/lexsem"
	"github.com/danharker/lexsem/obligation"
	"github.com/danharker/lexsem/report"
)

var (
	analyzeTitle     string
	analyzeFamilyKey string
	analyzeBody      string

	diffFromRev string
	diffToRev   string
	diffXLSX    string

	graphRev string

	activateRev   string
	activateFacts string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <doc-id> [file]",
	Short: "Analyze a document revision",
	Long: `Analyze ingests a document (txt or pdf, or an inline --body), runs the
full extraction pipeline and prints the resulting analysis as JSON.
The revision ID is derived from the document bytes, so re-analyzing the
same content is idempotent.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff <doc-id>",
	Short: "Diff the stored identities of two revisions",
	Long: `Diff compares the reference and obligation identity sets persisted for
two revisions of one document. With --xlsx it additionally writes a
review workbook.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <doc-id>",
	Short: "Print the stored obligation graph for a revision",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

// activateCmd represents the activate command
var activateCmd = &cobra.Command{
	Use:   "activate <doc-id>",
	Short: "Evaluate obligation lifecycle state against a fact file",
	Long: `Activate partitions a revision's obligations into active, inactive and
terminated using a JSON fact envelope. Activation happens only on exact
fact-key matches to explicit lifecycle trigger text.`,
	Args: cobra.ExactArgs(1),
	RunE: runActivate,
}

// documentsCmd represents the documents command
var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List registered documents",
	RunE:  runDocuments,
}

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Delete a document with all its revisions and runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeTitle, "title", "", "document title (seeds the citation family key)")
	analyzeCmd.Flags().StringVar(&analyzeFamilyKey, "family-key", "", "explicit citation family key")
	analyzeCmd.Flags().StringVar(&analyzeBody, "body", "", "inline document body instead of a file")

	diffCmd.Flags().StringVar(&diffFromRev, "from", "", "revision ID to diff from (required)")
	diffCmd.Flags().StringVar(&diffToRev, "to", "", "revision ID to diff to (required)")
	diffCmd.Flags().StringVar(&diffXLSX, "xlsx", "", "also write the diff as an xlsx workbook to this path")
	diffCmd.MarkFlagRequired("from")
	diffCmd.MarkFlagRequired("to")

	graphCmd.Flags().StringVar(&graphRev, "rev", "", "revision ID (required)")
	graphCmd.MarkFlagRequired("rev")

	activateCmd.Flags().StringVar(&activateRev, "rev", "", "revision ID (required)")
	activateCmd.Flags().StringVar(&activateFacts, "facts", "", "path to a JSON fact envelope (required)")
	activateCmd.MarkFlagRequired("rev")
	activateCmd.MarkFlagRequired("facts")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	docID := args[0]
	if analyzeBody == "" && len(args) < 2 {
		return fmt.Errorf("either a file argument or --body is required")
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	var opts []lexsem.AnalyzeOption
	if analyzeTitle != "" {
		opts = append(opts, lexsem.WithTitle(analyzeTitle))
	}
	if analyzeFamilyKey != "" {
		opts = append(opts, lexsem.WithFamilyKey(analyzeFamilyKey))
	}

	ctx := context.Background()
	var analysis *lexsem.Analysis
	if analyzeBody != "" {
		analysis, err = eng.AnalyzeText(ctx, docID, analyzeBody, opts...)
	} else {
		analysis, err = eng.Analyze(ctx, docID, args[1], opts...)
	}
	if err != nil {
		return err
	}

	return printJSON(analysis)
}

func runDiff(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	diff, err := eng.DiffRevisions(context.Background(), args[0], diffFromRev, diffToRev)
	if err != nil {
		return err
	}

	if diffXLSX != "" {
		rep := report.DiffReport{
			DocID:      diff.DocID,
			FromRevID:  diff.FromRevID,
			ToRevID:    diff.ToRevID,
			References: diff.References,
			Atoms:      diff.Atoms,
		}
		if err := report.WriteDiffXLSX(diffXLSX, rep); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Workbook written to %s\n", diffXLSX)
	}

	return printJSON(diff)
}

func runGraph(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	payload, err := eng.Graph(context.Background(), args[0], graphRev)
	if err != nil {
		return err
	}
	return printJSON(payload)
}

func runActivate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(activateFacts)
	if err != nil {
		return fmt.Errorf("reading facts: %w", err)
	}
	var facts []obligation.Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		return fmt.Errorf("parsing facts: %w", err)
	}

	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.Activation(context.Background(), args[0], activateRev, facts)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runDocuments(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	docs, err := eng.ListDocuments(context.Background())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents registered.")
		return nil
	}

	for _, d := range docs {
		fmt.Printf("%-24s %-40s %s\n", d.DocID, d.Title, d.FamilyKey)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
