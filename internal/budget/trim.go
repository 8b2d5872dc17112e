package budget

import (
	"log/slog"
	"sort"

	"github.com/rssebambulidde/QueryAI-sub001/internal/retrieval"
)

const (
	// truncationResidual is the minimum leftover slice budget worth filling
	// with a truncated item.
	truncationResidual = 100

	// metadataHeadroom is held back from a truncated item's token cap to
	// cover titles and framing around the content.
	metadataHeadroom = 50

	ellipsis = "..."
)

// Trim cuts an assembled context down to its budget. Each item list is
// sorted by score descending and items are kept whole while they fit the
// slice's remaining tokens. The first item that does not fit is included
// truncated if enough residual budget remains; nothing after it is added.
// Items are never reordered past a higher-scored item and slice allocations
// are never exceeded.
func (b *Budgeter) Trim(ctx *retrieval.AssembledContext, tb TokenBudget) *retrieval.AssembledContext {
	counter := b.CounterFor(tb.Model)

	trimmed := &retrieval.AssembledContext{
		DocumentChunks: trimSlice(counter, ctx.DocumentChunks, tb.DocumentTokens),
		WebSnippets:    trimSlice(counter, ctx.WebSnippets, tb.WebTokens),
	}

	if trimmed.TotalItems() < ctx.TotalItems() {
		b.logger.Debug("context_trimmed",
			slog.String("model", tb.Model),
			slog.Int("before", ctx.TotalItems()),
			slog.Int("after", trimmed.TotalItems()))
	}
	return trimmed
}

func trimSlice(counter Counter, items []retrieval.ContextItem, allocated int) []retrieval.ContextItem {
	if len(items) == 0 || allocated <= 0 {
		return nil
	}

	ordered := make([]retrieval.ContextItem, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	kept := make([]retrieval.ContextItem, 0, len(ordered))
	remaining := allocated
	for _, item := range ordered {
		cost := counter.Count(item.Content)
		if cost <= remaining {
			kept = append(kept, item)
			remaining -= cost
			continue
		}
		if remaining > truncationResidual {
			limit := remaining - metadataHeadroom
			ellipsisCost := counter.Count(ellipsis)
			cut := counter.Truncate(item.Content, limit-ellipsisCost)
			if cut != "" {
				item.Content = cut + ellipsis
				kept = append(kept, item)
			}
		}
		break
	}
	return kept
}
