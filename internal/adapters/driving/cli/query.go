package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mmrag/internal/core/domain"
)

// snippetLength bounds the content shown per retrieved item.
const snippetLength = 160

var (
	queryK       int
	queryJSON    bool
	retrieveK    int
	retrieveJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieves the closest text, table and image chunks and asks the
generation model to answer using only that context. Retrieved images are
passed to the model alongside the text.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Show the chunks closest to a query",
	Long:  `Runs retrieval only and prints the ranked chunks with their scores.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRetrieve,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "results", "k", domain.DefaultResultCount, "number of chunks to retrieve")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	retrieveCmd.Flags().IntVarP(&retrieveK, "results", "k", domain.DefaultResultCount, "number of chunks to retrieve")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(retrieveCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	answer, err := answerService.Answer(cmd.Context(), args[0], queryK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, answer)
	}
	outputAnswer(cmd, answer)
	return nil
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	items, err := retrievalService.Retrieve(cmd.Context(), args[0], retrieveK)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}
	if items == nil {
		items = []domain.RetrievedItem{}
	}

	if retrieveJSON {
		return printJSON(cmd, items)
	}
	outputRetrieved(cmd, items)
	return nil
}

func outputAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)
	if len(answer.Sources) == 0 {
		return
	}

	cmd.Println()
	cmd.Println("Sources:")
	for i, src := range answer.Sources {
		cmd.Printf("  [%d] %s\n", i+1, describeSource(src.DocumentID, src.PageNumber, src.ContentType))
		if src.ImagePath != "" {
			cmd.Printf("      %s\n", src.ImagePath)
		}
	}
}

func outputRetrieved(cmd *cobra.Command, items []domain.RetrievedItem) {
	if len(items) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range items {
		m := items[i].Metadata
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, describeSource(m.Source, m.PageNumber, m.ContentType), items[i].Score)
		if m.ImagePath != "" {
			cmd.Printf("      Image: %s\n", m.ImagePath)
		}
		if snippet := truncate(items[i].Content, snippetLength); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
}

func describeSource(doc string, page int, kind domain.ContentKind) string {
	if page > 0 {
		return fmt.Sprintf("%s, page %d (%s)", doc, page, kind)
	}
	return fmt.Sprintf("%s (%s)", doc, kind)
}

// truncate collapses whitespace and cuts s to at most n runes.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
