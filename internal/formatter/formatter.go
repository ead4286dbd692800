// Package formatter renders scored ContextItems into the single
// "## Focus Context" block injected into the hot path's output, packing
// greedily against a token budget. Pure and deterministic given its input.
package formatter

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/focusd/focusd/internal/retriever"
)

// DefaultBudget is the formatter's default token budget, per §4.H.
const DefaultBudget = 1500

// kindTag is the literal header token each Kind renders under.
var kindTag = map[retriever.Kind]string{
	retriever.KindFocus:        "Focus",
	retriever.KindConversation: "Conv",
	retriever.KindTask:         "Task",
	retriever.KindCommitment:   "Commitment",
	retriever.KindSkill:        "Skill",
	retriever.KindError:        "Error",
}

// kindOrder is the fixed group order the output renders under.
var kindOrder = []retriever.Kind{
	retriever.KindFocus,
	retriever.KindConversation,
	retriever.KindTask,
	retriever.KindCommitment,
	retriever.KindSkill,
	retriever.KindError,
}

// estimateTokens is the formatter's deliberately conservative ceiling
// estimate: ceil(chars/4).
func estimateTokens(s string) int {
	return int(math.Ceil(float64(len(s)) / 4))
}

func renderAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	age := time.Since(t)
	switch {
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// renderLine implements §4.H.2's single-line form:
// "[<Kind>] <title>[ — <qualifier>][ (<age>)]" plus an optional body line.
func renderLine(item retriever.ContextItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", kindTag[item.Kind], item.Title)
	if qualifier, ok := item.Metadata["qualifier"].(string); ok && qualifier != "" {
		fmt.Fprintf(&b, " — %s", qualifier)
	}
	if age := renderAge(item.Recency); age != "" {
		fmt.Fprintf(&b, " (%s)", age)
	}
	if item.Body != "" {
		b.WriteString("\n")
		b.WriteString(item.Body)
	}
	return b.String()
}

// Format packs items greedily against budget tokens and renders the
// accepted set grouped by kind under fixed headers, in fixed kind order.
// Returns "" if nothing was accepted.
func Format(items []retriever.ContextItem, budget int) string {
	if budget <= 0 {
		budget = DefaultBudget
	}

	sorted := make([]retriever.ContextItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	grouped := map[retriever.Kind][]string{}
	used := 0
	accepted := 0

	for _, item := range sorted {
		line := renderLine(item)
		tokens := estimateTokens(line)
		if used+tokens > budget {
			continue
		}
		used += tokens
		accepted++
		grouped[item.Kind] = append(grouped[item.Kind], line)
	}

	if accepted == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("## Focus Context\n")
	for _, kind := range kindOrder {
		lines, ok := grouped[kind]
		if !ok || len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n", kindTag[kind])
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
