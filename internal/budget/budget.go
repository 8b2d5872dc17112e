// Package budget computes per-model token budgets, verifies assembled
// contexts against them, and trims contexts that do not fit.
package budget

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rssebambulidde/QueryAI-sub001/internal/errors"
	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

// DefaultModelLimit is the context window assumed for unknown models.
const DefaultModelLimit = 8192

// windowEntry maps a model-name fragment to a context window size. Entries
// are matched in order, so more specific fragments come first.
type windowEntry struct {
	fragment string
	limit    int
}

var modelWindows = []windowEntry{
	{"gpt-4-turbo", 128000},
	{"gpt-4o", 128000},
	{"gpt-4-32k", 32768},
	{"gpt-4.1", 1000000},
	{"gpt-4", 8192},
	{"gpt-3.5-turbo-16k", 16384},
	{"gpt-3.5", 4096},
	{"o1", 200000},
	{"claude-3", 200000},
	{"claude", 100000},
	{"gemini-1.5", 1000000},
	{"gemini", 32768},
	{"llama-3", 8192},
	{"mistral", 32768},
}

// WindowFor returns the context window for a model name, matching known
// name fragments as substrings. Unknown models get DefaultModelLimit.
func WindowFor(modelName string) int {
	name := strings.ToLower(modelName)
	for _, entry := range modelWindows {
		if strings.Contains(name, entry.fragment) {
			return entry.limit
		}
	}
	return DefaultModelLimit
}

// Config holds budgeting parameters. Zero values fall back to defaults.
type Config struct {
	// ReserveFraction of the model limit held back for the response.
	ReserveFraction float64 `yaml:"reserve_fraction"`

	// OverheadFraction of the model limit held back for message framing.
	OverheadFraction float64 `yaml:"overhead_fraction"`

	// Slice ratios over the post-reserve budget. Renormalized if they sum
	// to more than 1; a sum below 1 leaves the remainder unallocated.
	DocumentRatio float64 `yaml:"document_ratio"`
	WebRatio      float64 `yaml:"web_ratio"`
	SystemRatio   float64 `yaml:"system_ratio"`
	UserRatio     float64 `yaml:"user_ratio"`

	// Strict makes budget violations errors instead of warnings.
	Strict bool `yaml:"strict"`
}

// DefaultConfig returns the stock budgeting parameters.
func DefaultConfig() Config {
	return Config{
		ReserveFraction:  0.15,
		OverheadFraction: 0.05,
		DocumentRatio:    0.50,
		WebRatio:         0.20,
		SystemRatio:      0.05,
		UserRatio:        0.05,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReserveFraction <= 0 || c.ReserveFraction >= 1 {
		c.ReserveFraction = d.ReserveFraction
	}
	if c.OverheadFraction <= 0 || c.OverheadFraction >= 1 {
		c.OverheadFraction = d.OverheadFraction
	}
	if c.DocumentRatio <= 0 {
		c.DocumentRatio = d.DocumentRatio
	}
	if c.WebRatio <= 0 {
		c.WebRatio = d.WebRatio
	}
	if c.SystemRatio <= 0 {
		c.SystemRatio = d.SystemRatio
	}
	if c.UserRatio <= 0 {
		c.UserRatio = d.UserRatio
	}
	return c
}

// TokenBudget is the allocation plan for one request against one model.
type TokenBudget struct {
	Model           string
	ModelLimit      int
	ResponseReserve int
	Overhead        int

	// Remaining is the budget left after reserve and overhead.
	Remaining int

	// Per-slice allocations out of Remaining.
	DocumentTokens int
	WebTokens      int
	SystemTokens   int
	UserTokens     int

	// Warnings collects non-fatal budget violations.
	Warnings []string
}

// Check is the result of verifying a context against a budget.
type Check struct {
	Fits bool

	DocumentUsed int
	WebUsed      int
	SystemUsed   int
	UserUsed     int
	TotalUsed    int

	Warnings []string
}

// Budgeter computes and enforces token budgets. Safe for concurrent use.
type Budgeter struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	counters map[string]Counter
}

// New creates a Budgeter, filling missing config fields with defaults.
func New(cfg Config) *Budgeter {
	return &Budgeter{
		cfg:      cfg.withDefaults(),
		logger:   slog.Default().With("component", "budget"),
		counters: make(map[string]Counter),
	}
}

// CounterFor returns the token counter for a model, creating it once.
func (b *Budgeter) CounterFor(modelName string) Counter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.counters[modelName]; ok {
		return c
	}
	c := NewCounter(modelName)
	b.counters[modelName] = c
	return c
}

// ForModel computes the token budget for a model name.
func (b *Budgeter) ForModel(modelName string) TokenBudget {
	limit := WindowFor(modelName)
	reserve := int(float64(limit) * b.cfg.ReserveFraction)
	overhead := int(float64(limit) * b.cfg.OverheadFraction)
	remaining := limit - reserve - overhead

	docRatio := b.cfg.DocumentRatio
	webRatio := b.cfg.WebRatio
	sysRatio := b.cfg.SystemRatio
	userRatio := b.cfg.UserRatio
	if sum := docRatio + webRatio + sysRatio + userRatio; sum > 1 {
		docRatio /= sum
		webRatio /= sum
		sysRatio /= sum
		userRatio /= sum
	}

	return TokenBudget{
		Model:           modelName,
		ModelLimit:      limit,
		ResponseReserve: reserve,
		Overhead:        overhead,
		Remaining:       remaining,
		DocumentTokens:  int(float64(remaining) * docRatio),
		WebTokens:       int(float64(remaining) * webRatio),
		SystemTokens:    int(float64(remaining) * sysRatio),
		UserTokens:      int(float64(remaining) * userRatio),
	}
}

// CheckBudget recomputes the actual token usage of an assembled context plus
// the prompts and compares it against the budget. Slice overflows are
// warnings; exceeding the total remaining budget is an error in strict mode
// and a warning otherwise. The context fits only when every remainder is
// non-negative.
func (b *Budgeter) CheckBudget(tb TokenBudget, ctx *retrieval.AssembledContext, systemPrompt, userPrompt string) (Check, error) {
	counter := b.CounterFor(tb.Model)

	check := Check{
		DocumentUsed: countItems(counter, ctx.DocumentChunks),
		WebUsed:      countItems(counter, ctx.WebSnippets),
		SystemUsed:   counter.Count(systemPrompt),
		UserUsed:     counter.Count(userPrompt),
	}
	check.TotalUsed = check.DocumentUsed + check.WebUsed + check.SystemUsed + check.UserUsed
	check.Fits = true

	slices := []struct {
		name      string
		used      int
		allocated int
	}{
		{"document", check.DocumentUsed, tb.DocumentTokens},
		{"web", check.WebUsed, tb.WebTokens},
		{"system", check.SystemUsed, tb.SystemTokens},
		{"user", check.UserUsed, tb.UserTokens},
	}
	for _, s := range slices {
		if s.used > s.allocated {
			check.Fits = false
			check.Warnings = append(check.Warnings,
				fmt.Sprintf("%s slice uses %d tokens, allocated %d", s.name, s.used, s.allocated))
		}
	}

	if check.TotalUsed > tb.Remaining {
		check.Fits = false
		msg := fmt.Sprintf("context uses %d tokens, budget remaining %d", check.TotalUsed, tb.Remaining)
		if b.cfg.Strict {
			return check, errors.New(errors.ErrCodeBudgetExceeded, msg, nil)
		}
		check.Warnings = append(check.Warnings, msg)
	}

	if len(check.Warnings) > 0 {
		b.logger.Warn("budget_check_violations",
			slog.String("model", tb.Model),
			slog.Int("violations", len(check.Warnings)))
	}
	return check, nil
}

func countItems(counter Counter, items []retrieval.ContextItem) int {
	total := 0
	for _, item := range items {
		total += counter.Count(item.Content)
	}
	return total
}
