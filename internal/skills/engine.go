package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	focuserrors "github.com/focusd/focusd/internal/errors"
	"github.com/focusd/focusd/internal/llm"
	"github.com/focusd/focusd/internal/store"
)

// Engine ties scoring, generation, and installation together for the
// skill_extract job handler and for manual/registry skill creation.
type Engine struct {
	store         *store.Store
	analyzer      *Analyzer
	llm           *llm.Service
	installedPath string
}

// New builds an Engine. llmService may be nil, in which case
// auto-generation defers with a retryable error per §4.J.
func New(st *store.Store, llmService *llm.Service, threshold float64, installedPath string) *Engine {
	return &Engine{
		store:         st,
		analyzer:      NewAnalyzer(st, threshold),
		llm:           llmService,
		installedPath: installedPath,
	}
}

// GenerateFromSession implements §4.J's auto-generation phase: score the
// session, and if it qualifies, synthesize and persist a Skill. Returns
// (nil, nil) if the session didn't qualify — that's success, not failure.
func (e *Engine) GenerateFromSession(ctx context.Context, sessionRowID uuid.UUID, confirmationTokens []string) (*store.Skill, error) {
	candidate, err := e.analyzer.Analyze(ctx, sessionRowID, confirmationTokens)
	if err != nil {
		return nil, fmt.Errorf("analyzing session: %w", err)
	}
	if candidate == nil {
		return nil, nil
	}

	if e.llm == nil {
		return nil, focuserrors.NewUnavailable("skill generation model capability not configured", focuserrors.ErrModelDisabled)
	}

	description, procedureText, err := e.llm.SynthesizeSkill(ctx, candidate.SessionTitle, candidate.TurnSummaries)
	if err != nil {
		return nil, fmt.Errorf("synthesizing skill: %w", err)
	}

	name := candidate.SessionTitle
	if name == "" {
		name = "session-" + sessionRowID.String()[:8]
	}

	return e.render(ctx, renderInput{
		name:            name,
		description:     description,
		body:            procedureText,
		triggerKeywords: TriggerKeywordsFrom(nil, candidate.FilesTouched),
		source:          store.SkillSourceAuto,
		sourceSessionID: &sessionRowID,
		scope:           store.ScopePersonal,
		qualityScore:    &candidate.QualityScore,
	})
}

// ManualCreate implements §4.J's manual-creation path: synthesize a SKILL
// document directly from a natural-language description, surfacing any
// model failure to the caller rather than deferring it.
func (e *Engine) ManualCreate(ctx context.Context, name, description string, scope store.SkillScope) (*store.Skill, error) {
	if e.llm == nil {
		return nil, focuserrors.NewUnavailable("skill generation model capability not configured", focuserrors.ErrModelDisabled)
	}

	generatedDescription, body, err := e.llm.SynthesizeSkill(ctx, description, []string{description})
	if err != nil {
		return nil, fmt.Errorf("synthesizing manual skill: %w", err)
	}
	if generatedDescription == "" {
		generatedDescription = description
	}

	return e.render(ctx, renderInput{
		name:        name,
		description: generatedDescription,
		body:        body,
		source:      store.SkillSourceManual,
		scope:       scope,
	})
}

// InstallFromRegistry implements §4.J's registry-installation path:
// clones a remote document to the installed path and records
// source=registry.
func (e *Engine) InstallFromRegistry(ctx context.Context, name, registryURL string, scope store.SkillScope) (*store.Skill, error) {
	content, err := FetchRemote(ctx, registryURL)
	if err != nil {
		return nil, fmt.Errorf("fetching registry skill: %w", err)
	}
	validName, err := ValidateSkillName(name)
	if err != nil {
		return nil, err
	}

	installedAt, err := Install(e.installedPath, validName, content)
	if err != nil {
		return nil, fmt.Errorf("installing registry skill: %w", err)
	}

	sk := &store.Skill{
		Name:          validName,
		Description:   firstLine(content),
		Source:        store.SkillSourceRegistry,
		InstalledPath: installedAt,
		Scope:         scope,
		ContentHash:   ComputeContentHash(content),
		IsActive:      true,
	}
	return e.persist(ctx, sk)
}

type renderInput struct {
	name            string
	description     string
	body            string
	triggerKeywords []string
	source          store.SkillSource
	sourceSessionID *uuid.UUID
	scope           store.SkillScope
	qualityScore    *float64
}

// render builds and persists a SKILL document, treating an unchanged
// content_hash against the same (name, scope) as a no-op per §4.J.
func (e *Engine) render(ctx context.Context, in renderInput) (*store.Skill, error) {
	validName, err := ValidateSkillName(in.name)
	if err != nil {
		return nil, err
	}

	content, err := RenderSkillMD(validName, in.description, in.body, in.triggerKeywords)
	if err != nil {
		return nil, fmt.Errorf("rendering skill document: %w", err)
	}
	hash := ComputeContentHash(content)

	if existing, err := e.store.GetSkillByNameScope(ctx, validName, in.scope); err == nil && existing.ContentHash == hash {
		return existing, nil
	}

	installedAt, err := Install(e.installedPath, validName, content)
	if err != nil {
		return nil, fmt.Errorf("installing skill document: %w", err)
	}

	sk := &store.Skill{
		Name:            validName,
		Description:     in.description,
		Source:          in.source,
		SourceSessionID: in.sourceSessionID,
		InstalledPath:   installedAt,
		Scope:           in.scope,
		QualityScore:    in.qualityScore,
		ContentHash:     hash,
		IsActive:        true,
	}
	return e.persist(ctx, sk)
}

func (e *Engine) persist(ctx context.Context, sk *store.Skill) (*store.Skill, error) {
	id, err := e.store.UpsertSkill(ctx, sk)
	if err != nil {
		return nil, fmt.Errorf("persisting skill: %w", err)
	}
	sk.ID = id
	return sk, nil
}

func firstLine(s string) string {
	line := strings.SplitN(strings.TrimSpace(s), "\n", 2)[0]
	return strings.TrimSpace(line)
}
