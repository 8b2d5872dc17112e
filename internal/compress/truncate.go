package compress

import (
	"strings"

	"github.com/rssebambulidde/QueryAI-sub001/internal/budget"
)

// TruncationMode selects which part of the content survives truncation.
type TruncationMode string

const (
	// TruncateStart cuts from the beginning, keeping the tail.
	TruncateStart TruncationMode = "start"

	// TruncateEnd cuts from the end, keeping the head.
	TruncateEnd TruncationMode = "end"

	// TruncateMiddle keeps the head and tail, cutting the middle.
	TruncateMiddle TruncationMode = "middle"

	// TruncateSmart accumulates whole sentences up to the token cap.
	TruncateSmart TruncationMode = "smart"
)

const truncationEllipsis = "..."

// truncate cuts content to at most target tokens using the given mode. The
// result never exceeds the target.
func truncate(counter budget.Counter, content string, target int, mode TruncationMode) string {
	if target <= 0 {
		return ""
	}
	if counter.Count(content) <= target {
		return content
	}

	ellipsisCost := counter.Count(truncationEllipsis)
	keep := target - ellipsisCost
	if keep <= 0 {
		return counter.Truncate(content, target)
	}

	switch mode {
	case TruncateStart:
		return truncationEllipsis + tail(counter, content, keep)
	case TruncateMiddle:
		// Ellipsis joins the two halves, so its cost is paid once.
		half := keep / 2
		if half == 0 {
			return counter.Truncate(content, target)
		}
		return counter.Truncate(content, half) + truncationEllipsis + tail(counter, content, keep-half)
	case TruncateSmart:
		if s := smartTruncate(counter, content, target); s != "" {
			return s
		}
		return counter.Truncate(content, keep) + truncationEllipsis
	default:
		return counter.Truncate(content, keep) + truncationEllipsis
	}
}

// tail returns a suffix of content at most maxTokens long.
func tail(counter budget.Counter, content string, maxTokens int) string {
	// Binary search the cut point in bytes; token counts grow with length.
	lo, hi := 0, len(content)
	for lo < hi {
		mid := (lo + hi) / 2
		if counter.Count(content[mid:]) > maxTokens {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return content[lo:]
}

// smartTruncate keeps whole sentences, in order, while they fit the cap.
// Returns "" when not even the first sentence fits.
func smartTruncate(counter budget.Counter, content string, target int) string {
	var kept strings.Builder
	used := 0
	for _, sentence := range splitSentences(content) {
		cost := counter.Count(sentence)
		if used+cost > target {
			break
		}
		kept.WriteString(sentence)
		used += cost
	}
	return strings.TrimSpace(kept.String())
}

// splitSentences splits content after sentence-ending punctuation. The
// trailing whitespace stays attached so rejoining preserves spacing.
func splitSentences(content string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] != '.' && content[i] != '!' && content[i] != '?' {
			continue
		}
		end := i + 1
		for end < len(content) && (content[end] == ' ' || content[end] == '\n' || content[end] == '\t') {
			end++
		}
		sentences = append(sentences, content[start:end])
		start = end
		i = end - 1
	}
	if start < len(content) {
		sentences = append(sentences, content[start:])
	}
	return sentences
}
