// Package classifier performs fast, lexical-only prompt classification —
// no model calls — producing the Signal the retriever fans out against.
package classifier

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/focusd/focusd/internal/artifact"
	"github.com/focusd/focusd/internal/entitylink"
	"github.com/focusd/focusd/internal/store"
)

// Intent is the coarse classification of what the user is asking for.
type Intent string

const (
	IntentQuestion     Intent = "question"
	IntentCommand      Intent = "command"
	IntentContinuation Intent = "continuation"
	IntentUnknown      Intent = "unknown"
)

// Signal is the classifier's output: everything the retriever needs to
// fan out its branches.
type Signal struct {
	Projects      []string
	People        []string
	Paths         []string
	Keywords      []string
	HasCodeFence  bool
	Intent        Intent
}

type entity struct {
	id      *uuid.UUID
	name    string
	pattern *regexp.Regexp
}

// Classifier holds a prefetched, compiled snapshot of known projects and
// people. It performs no I/O and must not suspend — Refresh is the only
// method that talks to the store. The snapshot changes only when a caller
// invokes Refresh; the Classifier never refreshes itself.
type Classifier struct {
	st *store.Store

	mu            sync.RWMutex
	projects      []entity
	people        []entity
	lastRefreshed time.Time
	ttl           time.Duration
}

// New builds a Classifier against st. ttl is the age after which Stale
// reports the entity snapshot as due for a Refresh.
func New(st *store.Store, ttl time.Duration) *Classifier {
	return &Classifier{st: st, ttl: ttl}
}

// Refresh reloads the active-project and person snapshots and recompiles
// their matchers. Safe to call concurrently with Classify.
func (c *Classifier) Refresh(ctx context.Context) error {
	projects, err := c.st.ListActiveProjects(ctx)
	if err != nil {
		return err
	}
	people, err := c.st.ListPeople(ctx)
	if err != nil {
		return err
	}

	compiledProjects := make([]entity, 0, len(projects)*2)
	for _, p := range projects {
		id := p.ID
		compiledProjects = append(compiledProjects, entity{id: &id, name: p.Slug, pattern: wordBoundary(p.Slug)})
		if p.Name != "" && !strings.EqualFold(p.Name, p.Slug) {
			compiledProjects = append(compiledProjects, entity{id: &id, name: p.Slug, pattern: wordBoundary(p.Name)})
		}
	}

	compiledPeople := make([]entity, 0, len(people))
	for _, p := range people {
		if len(p.Name) < 3 {
			continue
		}
		id := p.ID
		compiledPeople = append(compiledPeople, entity{id: &id, name: p.Name, pattern: wordBoundary(p.Name)})
	}

	c.mu.Lock()
	c.projects = compiledProjects
	c.people = compiledPeople
	c.lastRefreshed = time.Now()
	c.mu.Unlock()
	return nil
}

// Stale reports whether the entity snapshot is older than the configured
// TTL and due for a Refresh.
func (c *Classifier) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.lastRefreshed) > c.ttl
}

var (
	codeFenceRE       = regexp.MustCompile("```")
	leadingVerbRE     = regexp.MustCompile(`(?i)^\s*(fix|add|run|write|create|remove|delete|update|implement|refactor|build|deploy|install|rename|move|revert)\b`)
	continuationRE    = regexp.MustCompile(`(?i)^\s*(continue|keep|again|also|and|next|resume)\b`)
	questionWordRE    = regexp.MustCompile(`(?i)^\s*(what|why|how|when|where|who|which|is|are|can|could|should|does|do)\b`)
)

// Classify runs pure lexical matching over prompt against the current
// entity snapshot, in well under the component's 500ms budget. It is
// CPU-only and never suspends.
func (c *Classifier) Classify(prompt string) Signal {
	var sig Signal
	trimmed := strings.TrimSpace(prompt)
	if len(trimmed) < 3 {
		sig.Intent = IntentUnknown
		return sig
	}

	lower := strings.ToLower(trimmed)
	sig.HasCodeFence = codeFenceRE.MatchString(trimmed)
	sig.Paths = artifact.ExtractFilePathsFromText(trimmed)

	for _, m := range c.MatchProjects(trimmed) {
		if !contains(sig.Projects, m.EntityName) {
			sig.Projects = append(sig.Projects, m.EntityName)
		}
	}
	for _, m := range c.MatchPeople(trimmed) {
		if !contains(sig.People, m.EntityName) {
			sig.People = append(sig.People, m.EntityName)
		}
	}

	sig.Keywords = keywords(lower)
	sig.Intent = detectIntent(trimmed)
	return sig
}

// baseProjectConfidence and basePersonConfidence are the per-occurrence
// confidence increments a single mention contributes; occurrenceConfidence
// scales by mention count and bounds the result at 1.0, per §4.F.2.
const (
	baseProjectConfidence = 0.8
	basePersonConfidence  = 0.7
)

// occurrenceConfidence scales base by the number of times an entity was
// mentioned, bounded at 1.0 — repeated mentions raise confidence, one
// mention alone never exceeds base.
func occurrenceConfidence(base float64, occurrences int) float64 {
	return math.Min(1.0, base*float64(occurrences))
}

// MatchProjects returns every known project slug/name mentioned in text,
// confidence-scored per the matching core shared with the entity linker's
// cold-path entity_extract handler.
func (c *Classifier) MatchProjects(text string) []entitylink.Match {
	lower := strings.ToLower(text)
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []entitylink.Match
	seen := map[string]bool{}
	for _, p := range c.projects {
		occurrences := len(p.pattern.FindAllStringIndex(lower, -1))
		if occurrences == 0 || seen[p.name] {
			continue
		}
		seen[p.name] = true
		out = append(out, entitylink.Match{
			EntityID:   p.id,
			EntityName: p.name,
			Confidence: occurrenceConfidence(baseProjectConfidence, occurrences),
		})
	}
	return out
}

// MatchPeople returns every known person mentioned in text, same scoring
// contract as MatchProjects.
func (c *Classifier) MatchPeople(text string) []entitylink.Match {
	lower := strings.ToLower(text)
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []entitylink.Match
	seen := map[string]bool{}
	for _, p := range c.people {
		occurrences := len(p.pattern.FindAllStringIndex(lower, -1))
		if occurrences == 0 || seen[p.name] {
			continue
		}
		seen[p.name] = true
		out = append(out, entitylink.Match{
			EntityID:   p.id,
			EntityName: p.name,
			Confidence: occurrenceConfidence(basePersonConfidence, occurrences),
		})
	}
	return out
}

// detectIntent applies the leading-token heuristic: a question mark or
// interrogative opener wins, then an imperative verb, then a continuation
// opener, else unknown.
func detectIntent(prompt string) Intent {
	if strings.HasSuffix(strings.TrimSpace(prompt), "?") || questionWordRE.MatchString(prompt) {
		return IntentQuestion
	}
	if leadingVerbRE.MatchString(prompt) {
		return IntentCommand
	}
	if continuationRE.MatchString(prompt) {
		return IntentContinuation
	}
	return IntentUnknown
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "to": true,
	"of": true, "in": true, "on": true, "is": true, "it": true, "for": true,
	"with": true, "this": true, "that": true, "i": true, "you": true,
}

var tokenRE = regexp.MustCompile(`[a-z0-9_-]+`)

// keywords tokenizes and lowercases, dropping stop words and short tokens —
// the resulting set drives the retriever's skill-relevance Jaccard score.
func keywords(lower string) []string {
	tokens := tokenRE.FindAllString(lower, -1)
	seen := map[string]bool{}
	var out []string
	for _, t := range tokens {
		if len(t) < 3 || stopWords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func wordBoundary(pattern string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(strings.ToLower(pattern))
	prefix, suffix := "", ""
	if len(pattern) > 0 {
		if isWordChar(pattern[0]) {
			prefix = `\b`
		}
		if isWordChar(pattern[len(pattern)-1]) {
			suffix = `\b`
		}
	}
	re, err := regexp.Compile(prefix + escaped + suffix)
	if err != nil {
		re = regexp.MustCompile(regexp.QuoteMeta(strings.ToLower(pattern)))
	}
	return re
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
