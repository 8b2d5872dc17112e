package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rssebambulidde/QueryAI-sub001/internal/config"
	"github.com/rssebambulidde/QueryAI-sub001/internal/index"
	"github.com/rssebambulidde/QueryAI-sub001/internal/output"
	"github.com/rssebambulidde/QueryAI-sub001/internal/pipeline"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
	"github.com/rssebambulidde/QueryAI-sub001/internal/sizing"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	chunksPath   string
	snippetsPath string
	owner        string
	topic        string
	model        string
	prefer       string // "", "documents", "web"
	format       string // "text", "json"
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Assemble a context for a question",
		Long: `Assemble a token-bounded context for a question from a chunks file.

Loads the given chunks into the lexical index, retrieves and ranks the
relevant ones, and prints the context that would be handed to the model.

Examples:
  queryai query --chunks corpus.json "what is photosynthesis"
  queryai query --chunks corpus.json --model gpt-4o "how to configure TLS"
  queryai query --chunks corpus.json --format json "error handling"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runQuery(cmd.Context(), cmd, question, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.chunksPath, "chunks", "c", "", "Path to a JSON chunks file (required)")
	cmd.Flags().StringVar(&opts.snippetsPath, "snippets", "", "Path to a JSON web snippets file")
	cmd.Flags().StringVar(&opts.owner, "owner", "", "Restrict retrieval to one owner")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Restrict retrieval to one topic")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Target model name (overrides config)")
	cmd.Flags().StringVar(&opts.prefer, "prefer", "", "Source preference: documents, web")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("chunks")

	return cmd
}

func runQuery(ctx context.Context, cmd *cobra.Command, question string, opts queryOptions) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	model := cfg.Model
	if opts.model != "" {
		model = opts.model
	}

	chunks, err := loadChunks(opts.chunksPath)
	if err != nil {
		return err
	}

	var snippets []retrieval.ContextItem
	if opts.snippetsPath != "" {
		snippets, err = loadSnippets(opts.snippetsPath)
		if err != nil {
			return err
		}
	}

	p := buildPipeline(cfg, index.New(), nil)
	p.AddChunks(chunks)
	slog.Info("query_started",
		slog.String("query", question),
		slog.Int("chunks", len(chunks)),
		slog.String("model", model))

	assembled, err := p.AssembleContext(ctx, question, retrieval.SearchFilters{
		OwnerID:  opts.owner,
		TopicID:  opts.topic,
		TopK:     cfg.Search.TopK,
		MinScore: cfg.Search.MinScore,
	}, model, pipeline.Options{
		Preference:  sizing.Preference(opts.prefer),
		WebSnippets: snippets,
	})
	if err != nil {
		return err
	}
	slog.Info("query_complete", slog.Int("items", assembled.TotalItems()))

	switch opts.format {
	case "json":
		return formatContextJSON(cmd, assembled)
	default:
		return formatContextText(output.New(cmd.OutOrStdout()), question, assembled)
	}
}

// formatContextText renders the assembled context for humans.
func formatContextText(out *output.Writer, question string, assembled *retrieval.AssembledContext) error {
	if assembled.TotalItems() == 0 {
		out.Status("", fmt.Sprintf("No context assembled for %q", question))
		return nil
	}

	out.Statusf("", "Assembled %d items for %q:", assembled.TotalItems(), question)
	out.Newline()

	for i, item := range assembled.DocumentChunks {
		location := item.DocumentID
		if item.Display.Title != "" {
			location = item.Display.Title
		}
		out.Statusf("", "%d. [doc] %s#%d (score: %.2f)", i+1, location, item.ChunkIndex, item.Score)
		for _, line := range contentSnippet(item.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}

	for i, item := range assembled.WebSnippets {
		location := item.Display.SourceURL
		if item.Display.Title != "" {
			location = item.Display.Title
		}
		out.Statusf("", "%d. [web] %s (score: %.2f)", len(assembled.DocumentChunks)+i+1, location, item.Score)
		for _, line := range contentSnippet(item.Content, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}

	return nil
}

// formatContextJSON renders the assembled context as JSON.
func formatContextJSON(cmd *cobra.Command, assembled *retrieval.AssembledContext) error {
	type jsonItem struct {
		ChunkID    string  `json:"chunk_id,omitempty"`
		DocumentID string  `json:"document_id,omitempty"`
		ChunkIndex int     `json:"chunk_index"`
		Content    string  `json:"content"`
		Score      float64 `json:"score"`
		Source     string  `json:"source"`
		Title      string  `json:"title,omitempty"`
		SourceURL  string  `json:"source_url,omitempty"`
	}

	toJSON := func(items []retrieval.ContextItem) []jsonItem {
		converted := make([]jsonItem, 0, len(items))
		for _, item := range items {
			converted = append(converted, jsonItem{
				ChunkID:    item.ChunkID,
				DocumentID: item.DocumentID,
				ChunkIndex: item.ChunkIndex,
				Content:    item.Content,
				Score:      item.Score,
				Source:     string(item.Source),
				Title:      item.Display.Title,
				SourceURL:  item.Display.SourceURL,
			})
		}
		return converted
	}

	payload := struct {
		DocumentChunks []jsonItem `json:"document_chunks"`
		WebSnippets    []jsonItem `json:"web_snippets"`
	}{
		DocumentChunks: toJSON(assembled.DocumentChunks),
		WebSnippets:    toJSON(assembled.WebSnippets),
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// contentSnippet returns the first n lines of content.
func contentSnippet(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
