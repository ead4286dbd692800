package skills

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// frontmatter is rendered as YAML ahead of a SKILL.md's markdown body,
// mirroring the Agent Skills document format.
type frontmatter struct {
	Name               string   `yaml:"name"`
	Description        string   `yaml:"description"`
	TriggerKeywords    []string `yaml:"triggers,omitempty"`
	DisableModelInvoke bool     `yaml:"disable-model-invocation,omitempty"`
}

var (
	invalidNameCharsRE = regexp.MustCompile(`[^a-z0-9-]`)
	repeatedDashRE     = regexp.MustCompile(`-{2,}`)
)

// ValidateSkillName normalizes name to the Agent Skills convention:
// lowercase, hyphen-separated, at most 64 characters.
func ValidateSkillName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = invalidNameCharsRE.ReplaceAllString(normalized, "-")
	normalized = repeatedDashRE.ReplaceAllString(normalized, "-")
	normalized = strings.Trim(normalized, "-")
	if normalized == "" {
		return "", fmt.Errorf("cannot normalize skill name %q", name)
	}
	if len(normalized) > 64 {
		normalized = strings.TrimRight(normalized[:64], "-")
	}
	return normalized, nil
}

// RenderSkillMD renders a complete SKILL.md document: YAML frontmatter
// followed by the markdown body. The body is rendered once with goldmark
// and an error from that conversion is returned; the body's structure
// (for example, whether it holds a numbered procedure) is not checked.
func RenderSkillMD(name, description, body string, triggerKeywords []string) (string, error) {
	validName, err := ValidateSkillName(name)
	if err != nil {
		return "", err
	}

	fm := frontmatter{Name: validName, Description: description, TriggerKeywords: triggerKeywords}
	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling skill frontmatter: %w", err)
	}

	trimmedBody := strings.TrimSpace(body)
	if err := goldmark.Convert([]byte(trimmedBody), new(strings.Builder)); err != nil {
		return "", fmt.Errorf("generated skill body is not valid markdown: %w", err)
	}

	var out strings.Builder
	out.WriteString("---\n")
	out.Write(fmBytes)
	out.WriteString("---\n\n")
	out.WriteString(trimmedBody)
	out.WriteString("\n")
	return out.String(), nil
}

// BuildProcedure renders an ordered numbered procedure from turn
// summaries, generalized away from session-specific wording being the
// model's job — this just formats whatever steps it's handed.
func BuildProcedure(steps []string) string {
	var b strings.Builder
	for i, step := range steps {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(step))
	}
	return b.String()
}

// TriggerKeywordsFrom derives a skill's trigger keywords from the entities
// and files its source session touched, per §4.J's "top entities+files"
// rule. Capped at 10 to keep the frontmatter list scannable.
func TriggerKeywordsFrom(entities, files []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range append(append([]string{}, entities...), files...) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) >= 10 {
			break
		}
	}
	return out
}

// ComputeContentHash returns the SHA-256 hex digest of a rendered SKILL.md
// document, used to detect a no-op regeneration per §4.J.
func ComputeContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
