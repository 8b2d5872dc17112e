package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rssebambulidde/QueryAI-sub001/internal/budget"
	"github.com/rssebambulidde/QueryAI-sub001/internal/config"
	"github.com/rssebambulidde/QueryAI-sub001/internal/output"
	"github.com/rssebambulidde/QueryAI-sub001/internal/query"
	"github.com/rssebambulidde/QueryAI-sub001/internal/sizing"
)

func newAnalyzeCmd() *cobra.Command {
	var jsonOutput bool
	var model string

	cmd := &cobra.Command{
		Use:   "analyze <question>",
		Short: "Show how a question would be classified and sized",
		Long: `Show the query analysis without retrieving anything: the detected
type and intent, the complexity score, and the context plan that
retrieval would aim for.

Examples:
  queryai analyze "what is photosynthesis"
  queryai analyze --json "how to configure TLS for the gateway"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runAnalyze(cmd, question, model, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output analysis as JSON")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Target model name (overrides config)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, question, model string, jsonOutput bool) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	if model == "" {
		model = cfg.Model
	}

	analyzer := query.NewAnalyzer()
	complexity := analyzer.Analyze(question)

	budgeter := budget.New(cfg.Budget)
	tokenBudget := budgeter.ForModel(model)

	sizer := sizing.New(cfg.Sizing)
	plan := sizer.Plan(complexity, sizing.PreferNone,
		tokenBudget.DocumentTokens+tokenBudget.WebTokens)

	if jsonOutput {
		payload := struct {
			QueryType      string   `json:"query_type"`
			Intent         string   `json:"intent"`
			Length         int      `json:"length"`
			WordCount      int      `json:"word_count"`
			Keywords       []string `json:"keywords"`
			Score          float64  `json:"score"`
			Model          string   `json:"model"`
			ModelLimit     int      `json:"model_limit"`
			DocumentTokens int      `json:"document_tokens"`
			WebTokens      int      `json:"web_tokens"`
			TotalChunks    int      `json:"total_chunks"`
			DocumentCount  int      `json:"document_count"`
			WebCount       int      `json:"web_count"`
		}{
			QueryType:      string(complexity.QueryType),
			Intent:         string(complexity.Intent),
			Length:         complexity.Length,
			WordCount:      complexity.WordCount,
			Keywords:       complexity.Keywords,
			Score:          complexity.Score,
			Model:          model,
			ModelLimit:     tokenBudget.ModelLimit,
			DocumentTokens: tokenBudget.DocumentTokens,
			WebTokens:      tokenBudget.WebTokens,
			TotalChunks:    plan.TotalChunks,
			DocumentCount:  plan.DocumentCount,
			WebCount:       plan.WebCount,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "Query: %q", question)
	out.Status("", fmt.Sprintf("Type: %s, intent: %s, complexity: %.2f",
		complexity.QueryType, complexity.Intent, complexity.Score))
	out.Status("", fmt.Sprintf("Keywords: %s", strings.Join(complexity.Keywords, ", ")))
	out.Newline()
	out.Status("", fmt.Sprintf("Model: %s (window %d tokens)", model, tokenBudget.ModelLimit))
	out.Status("", fmt.Sprintf("Plan: %d chunks (%d documents, %d web), %d document tokens, %d web tokens",
		plan.TotalChunks, plan.DocumentCount, plan.WebCount,
		tokenBudget.DocumentTokens, tokenBudget.WebTokens))
	return nil
}
