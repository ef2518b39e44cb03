// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperwatch/internal/store"
	"github.com/pdiddy/paperwatch/pkg/types"
)

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Inspect stored papers (list, export, delete)",
	Long: `Papers reads the local database written by crawl and schedule. Use
subcommands to list papers, export them with their previews, or delete one.`,
}

// --- list subcommand ---

var papersListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List stored papers, newest first",
	Long: `List prints stored papers filtered by category, publication date,
download state, or a text query matched against title and abstract.`,
	RunE: runPapersList,
}

func runPapersList(cmd *cobra.Command, args []string) error {
	opts, err := listOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	papers, err := st.ListPapers(cmd.Context(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatPapers(os.Stdout, papers, jsonOutput)
}

func formatPapers(w io.Writer, papers []types.Paper, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return nil
	}

	fmt.Fprintf(w, "%-18s  %-10s  %-56s  %-12s  %s\n",
		"ID", "Published", "Title", "Category", "PDF")
	fmt.Fprintln(w, strings.Repeat("-", 108))

	for _, p := range papers {
		title := truncate(p.Title, 56)
		category := ""
		if len(p.Categories) > 0 {
			category = p.Categories[0]
		}
		pdf := "no"
		if p.HasDocument() {
			pdf = "yes"
		}
		fmt.Fprintf(w, "%-18s  %-10s  %-56s  %-12s  %s\n",
			p.ExternalID, p.PublishedAt.Format(time.DateOnly), title, category, pdf)
	}

	fmt.Fprintf(w, "\n%d papers\n", len(papers))
	return nil
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- export subcommand ---

var papersExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export papers and their previews to YAML or JSON",
	Long: `Export writes the matching papers, each with its stored previews, to
stdout or to --output. It accepts the same filters as list; without a
--limit every matching paper is exported.`,
	RunE: runPapersExport,
}

func runPapersExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	opts, err := listOptsFromFlags(cmd, args)
	if err != nil {
		return err
	}

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w := io.Writer(os.Stdout)
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	n, err := st.Export(cmd.Context(), opts, format, w)
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Printf("Exported %d papers to %s\n", n, output)
	}
	return nil
}

// --- delete subcommand ---

var papersDeleteCmd = &cobra.Command{
	Use:   "delete <external-id>...",
	Short: "Delete papers and their previews from the database",
	Long: `Delete removes the papers with the given arXiv ids along with their
extracted content. Downloaded documents are left on disk unless --files is
set. A deleted paper is stored again by the next crawl that finds it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPapersDelete,
}

func runPapersDelete(cmd *cobra.Command, args []string) error {
	removeFiles, _ := cmd.Flags().GetBool("files")

	_, st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	var missing int
	for _, id := range args {
		p, err := st.Get(ctx, id)
		if err != nil {
			fmt.Printf("not found: %s\n", id)
			missing++
			continue
		}
		if _, err := st.DeletePaper(ctx, id); err != nil {
			return err
		}
		if removeFiles && p.HasDocument() {
			if err := os.Remove(p.LocalDocumentPath); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "removing %s: %v\n", p.LocalDocumentPath, err)
			}
		}
		fmt.Printf("deleted: %s\n", id)
	}
	if missing > 0 {
		return fmt.Errorf("%d paper(s) not found", missing)
	}
	return nil
}

// --- shared helpers ---

func listOptsFromFlags(cmd *cobra.Command, args []string) (store.ListOptions, error) {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	category, _ := cmd.Flags().GetString("category")
	since, _ := cmd.Flags().GetString("since")
	document, _ := cmd.Flags().GetString("document")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := store.ListOptions{
		Category: category,
		Query:    queryText,
		Limit:    limit,
	}
	if since != "" {
		t, err := time.Parse(time.DateOnly, since)
		if err != nil {
			return store.ListOptions{}, fmt.Errorf("--since %q: want YYYY-MM-DD", since)
		}
		opts.Since = t
	}
	switch document {
	case "", "any":
	case "yes":
		opts.Document = store.WithDocument
	case "no":
		opts.Document = store.WithoutDocument
	default:
		return store.ListOptions{}, fmt.Errorf("--document %q: use any, yes, or no", document)
	}
	return opts, nil
}

func addFilterFlags(cmd *cobra.Command, defaultLimit int) {
	cmd.Flags().String("query", "", "text to match in title or abstract")
	cmd.Flags().String("category", "", "filter by category code, e.g. quant-ph")
	cmd.Flags().String("since", "", "only papers published on or after YYYY-MM-DD")
	cmd.Flags().String("document", "any", "filter by download state: any, yes, no")
	cmd.Flags().Int("limit", defaultLimit, "maximum number of papers (negative for no limit)")
}

func init() {
	addFilterFlags(papersListCmd, 50)
	papersListCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(papersExportCmd, 0)
	papersExportCmd.Flags().String("format", store.FormatYAML, "export format: yaml or json")
	papersExportCmd.Flags().String("output", "", "write to this file instead of stdout")

	papersDeleteCmd.Flags().Bool("files", false, "also remove downloaded documents")

	papersCmd.AddCommand(papersListCmd, papersExportCmd, papersDeleteCmd)
	rootCmd.AddCommand(papersCmd)
}
