// Package retriever fans the classifier's Signal out across the Store's
// independent branches — conversations, tasks, commitments, skills,
// errors, and focus — scoring and merging whatever returns within a
// shared wall-clock budget.
package retriever

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/focusd/focusd/internal/classifier"
	"github.com/focusd/focusd/internal/store"
)

// Kind is the literal tag a ContextItem renders under.
type Kind string

const (
	KindConversation Kind = "conversation"
	KindTask         Kind = "task"
	KindCommitment   Kind = "commitment"
	KindSkill        Kind = "skill"
	KindError        Kind = "error"
	KindFocus        Kind = "focus"
)

// ContextItem is one scored candidate surfaced by a retrieval branch.
type ContextItem struct {
	Kind      Kind
	RefID     uuid.UUID
	Title     string
	Body      string
	Score     float64
	Recency   time.Time
	Metadata  map[string]any
}

// DefaultBudget is the retriever's wall-clock budget — branches still
// running at the deadline are cancelled and their partial results
// discarded, per the hot path's never-stale-never-wrong contract.
const DefaultBudget = 1500 * time.Millisecond

const (
	conversationLookback = 14 * 24 * time.Hour
	errorLookback        = 72 * time.Hour
	branchLimit          = 20
)

// Retriever reads from the Store; it holds no mutable state of its own.
type Retriever struct {
	store *store.Store
}

// New builds a Retriever over st.
func New(st *store.Store) *Retriever {
	return &Retriever{store: st}
}

// Retrieve fans classifier.Signal out to every branch concurrently, each
// sharing the same deadline (DefaultBudget unless ctx already carries a
// tighter one). A branch that doesn't finish in time contributes nothing —
// its partial work is discarded, never returned half-formed.
func (r *Retriever) Retrieve(ctx context.Context, sig classifier.Signal, workspacePath string) ([]ContextItem, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultBudget)
	defer cancel()

	branches := []func(context.Context) []ContextItem{
		func(c context.Context) []ContextItem { return r.conversations(c, sig) },
		func(c context.Context) []ContextItem { return r.tasks(c, sig) },
		func(c context.Context) []ContextItem { return r.commitments(c, sig) },
		func(c context.Context) []ContextItem { return r.skills(c, sig) },
		func(c context.Context) []ContextItem { return r.errors(c, sig) },
		func(c context.Context) []ContextItem { return r.focus(c, sig, workspacePath) },
	}

	results := make([][]ContextItem, len(branches))
	var wg sync.WaitGroup
	for i, branch := range branches {
		wg.Add(1)
		go func(idx int, fn func(context.Context) []ContextItem) {
			defer wg.Done()
			done := make(chan []ContextItem, 1)
			go func() { done <- fn(ctx) }()
			select {
			case items := <-done:
				results[idx] = items
			case <-ctx.Done():
			}
		}(i, branch)
	}
	wg.Wait()

	var out []ContextItem
	for _, items := range results {
		out = append(out, items...)
	}
	r.applySprintBoost(ctx, out)
	return out, nil
}

// applySprintBoost multiplies each item's score by its project's effective
// sprint boost, when metadata carries a project_id. Errors reading the
// boost leave the item's score unchanged — a missing boost is never worse
// than a default of 1.0.
func (r *Retriever) applySprintBoost(ctx context.Context, items []ContextItem) {
	now := time.Now()
	cache := map[uuid.UUID]float64{}
	for i := range items {
		pid, ok := items[i].Metadata["project_id"].(uuid.UUID)
		if !ok {
			continue
		}
		boost, cached := cache[pid]
		if !cached {
			var err error
			boost, err = r.store.EffectiveSprintBoost(ctx, pid, now)
			if err != nil {
				boost = 1.0
			}
			cache[pid] = boost
		}
		items[i].Score *= boost
	}
}

func recencyScore(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	ageHours := time.Since(t).Hours()
	return math.Exp(-ageHours / 48)
}

func overlapFraction(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[strings.ToLower(v)] = true
	}
	hits := 0
	for _, v := range a {
		if set[strings.ToLower(v)] {
			hits++
		}
	}
	return float64(hits) / float64(len(a))
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(parts ...string) map[string]bool {
	out := map[string]bool{}
	for _, p := range parts {
		for _, tok := range strings.Fields(strings.ToLower(p)) {
			tok = strings.Trim(tok, ".,:;!?()[]{}\"'")
			if tok != "" {
				out[tok] = true
			}
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// conversations implements §4.G's conversation branch: entity/path overlap
// plus recency over turns touched in the last 14 days.
func (r *Retriever) conversations(ctx context.Context, sig classifier.Signal) []ContextItem {
	if len(sig.Projects) == 0 && len(sig.People) == 0 && len(sig.Paths) == 0 {
		return nil
	}
	since := time.Now().Add(-conversationLookback)
	turns, err := r.store.TurnsMatchingSignal(ctx, sig.Projects, sig.People, sig.Paths, since, branchLimit)
	if err != nil || len(turns) == 0 {
		return nil
	}

	signalEntities := append(append([]string{}, sig.Projects...), sig.People...)

	var out []ContextItem
	for _, t := range turns {
		if ctx.Err() != nil {
			return out
		}
		entityNames, err := r.store.EntityNamesForTurn(ctx, t.ID)
		if err != nil {
			continue
		}
		content, err := r.store.GetTurnContent(ctx, t.ID)
		var filesTouched []string
		if err == nil {
			filesTouched = content.FilesTouched
		}

		entityOverlap := overlapFraction(signalEntities, entityNames)
		pathOverlap := overlapFraction(sig.Paths, filesTouched)
		score := clamp01(0.5*entityOverlap + 0.3*recencyScore(t.EndedAt) + 0.2*pathOverlap)

		title := t.UserMessage
		if t.Title != nil && *t.Title != "" {
			title = *t.Title
		}
		body := ""
		if t.AssistantSummary != nil {
			body = *t.AssistantSummary
		}
		out = append(out, ContextItem{
			Kind:     KindConversation,
			RefID:    t.ID,
			Title:    title,
			Body:     body,
			Score:    score,
			Recency:  t.EndedAt,
			Metadata: map[string]any{"session_id": t.SessionID, "turn_number": t.TurnNumber},
		})
	}
	return out
}

var priorityWeight = map[string]float64{
	"urgent": 1.0,
	"high":   0.75,
	"normal": 0.5,
	"low":    0.25,
}

// tasks implements §4.G's task branch.
func (r *Retriever) tasks(ctx context.Context, sig classifier.Signal) []ContextItem {
	if len(sig.Projects) == 0 {
		return nil
	}
	ids, err := r.store.ProjectIDsBySlugs(ctx, sig.Projects)
	if err != nil || len(ids) == 0 {
		return nil
	}
	projectIDs := make([]string, len(ids))
	for i, id := range ids {
		projectIDs[i] = id.String()
	}

	openTasks, err := r.store.OpenTasksForEntities(ctx, projectIDs, branchLimit)
	if err != nil {
		return nil
	}

	var out []ContextItem
	for _, t := range openTasks {
		weight := priorityWeight[t.Priority]
		pinBonus := 0.0
		if t.UserPinned {
			pinBonus = 0.2
		}
		dueSoon := 0.0
		if t.DueDate != nil {
			days := time.Until(*t.DueDate).Hours() / 24
			dueSoon = math.Max(0, (7-days)/7) * 0.3
		}
		score := clamp01(weight + pinBonus + dueSoon)

		var meta map[string]any
		if t.ProjectID != nil {
			meta = map[string]any{"project_id": *t.ProjectID}
		}
		out = append(out, ContextItem{
			Kind:     KindTask,
			RefID:    t.ID,
			Title:    t.Title,
			Score:    score,
			Metadata: meta,
		})
	}
	return out
}

// commitments implements §4.G's commitment branch, favoring to_me
// direction and near deadlines.
func (r *Retriever) commitments(ctx context.Context, sig classifier.Signal) []ContextItem {
	if len(sig.Projects) == 0 && len(sig.People) == 0 {
		return nil
	}
	projectUUIDs, err := r.store.ProjectIDsBySlugs(ctx, sig.Projects)
	if err != nil {
		return nil
	}
	personUUIDs, err := r.store.PersonIDsByNames(ctx, sig.People)
	if err != nil {
		return nil
	}
	if len(projectUUIDs) == 0 && len(personUUIDs) == 0 {
		return nil
	}

	projectIDs := uuidStrings(projectUUIDs)
	personIDs := uuidStrings(personUUIDs)

	openCommitments, err := r.store.OpenCommitmentsForEntities(ctx, projectIDs, personIDs, branchLimit)
	if err != nil {
		return nil
	}

	var out []ContextItem
	for _, c := range openCommitments {
		score := 0.5
		if c.Direction == store.DirectionToMe {
			score += 0.2
		}
		if c.Deadline != nil {
			days := time.Until(*c.Deadline).Hours() / 24
			score += math.Max(0, (14-days)/14) * 0.3
		}
		var meta map[string]any
		if c.ProjectID != nil {
			meta = map[string]any{"project_id": *c.ProjectID}
		}
		out = append(out, ContextItem{
			Kind:     KindCommitment,
			RefID:    c.ID,
			Title:    c.Description,
			Score:    clamp01(score),
			Recency:  timeOrZero(c.Deadline),
			Metadata: meta,
		})
	}
	return out
}

// skills implements §4.G's skill branch: Jaccard overlap between the
// skill's own tokens and Signal.keywords ∪ Signal.projects.
func (r *Retriever) skills(ctx context.Context, sig classifier.Signal) []ContextItem {
	queryTokens := tokenSet(append(append([]string{}, sig.Keywords...), sig.Projects...)...)
	if len(queryTokens) == 0 {
		return nil
	}
	active, err := r.store.ListActiveSkills(ctx)
	if err != nil {
		return nil
	}

	var out []ContextItem
	for _, sk := range active {
		skillTokens := tokenSet(sk.Name, sk.Description)
		score := jaccard(queryTokens, skillTokens)
		if score <= 0 {
			continue
		}
		out = append(out, ContextItem{
			Kind:  KindSkill,
			RefID: sk.ID,
			Title: sk.Name,
			Body:  sk.Description,
			Score: clamp01(score),
		})
	}
	return out
}

// errors implements §4.G's error branch, preferring the last 72 hours.
func (r *Retriever) errors(ctx context.Context, sig classifier.Signal) []ContextItem {
	entityNames := append(append([]string{}, sig.Projects...), sig.People...)
	if len(entityNames) == 0 && len(sig.Paths) == 0 {
		return nil
	}
	since := time.Now().Add(-errorLookback)
	artifacts, err := r.store.RecentErrorArtifacts(ctx, entityNames, sig.Paths, since, branchLimit)
	if err != nil {
		return nil
	}

	var out []ContextItem
	for _, a := range artifacts {
		out = append(out, ContextItem{
			Kind:     KindError,
			RefID:    a.ID,
			Title:    a.ArtifactValue,
			Score:    0.6,
			Metadata: a.Metadata,
		})
	}
	return out
}

// focus implements §4.K: an explicit project mention in sig takes priority
// over the workspace's historical selected project, since the current
// prompt is a stronger signal than session history. Falls back to
// SelectedProjectForWorkspace only when sig names no known project or the
// named project can't be found.
func (r *Retriever) focus(ctx context.Context, sig classifier.Signal, workspacePath string) []ContextItem {
	for _, slug := range sig.Projects {
		p, err := r.store.GetProjectBySlug(ctx, slug)
		if err != nil {
			continue
		}
		return []ContextItem{focusItem(p)}
	}

	if workspacePath == "" {
		return nil
	}
	p, err := r.store.SelectedProjectForWorkspace(ctx, workspacePath, time.Now().Add(-90*24*time.Hour))
	if err != nil {
		return nil
	}
	return []ContextItem{focusItem(p)}
}

func focusItem(p *store.Project) ContextItem {
	return ContextItem{
		Kind:     KindFocus,
		RefID:    p.ID,
		Title:    p.Name,
		Score:    1.0,
		Recency:  p.LastActivity,
		Metadata: map[string]any{"project_id": p.ID, "slug": p.Slug},
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// SortByScore orders items by descending score, stable — the same order
// the Formatter applies to its own copy of the items.
func SortByScore(items []ContextItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
}
