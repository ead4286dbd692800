package skills

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSkillName_NormalizesToLowercaseHyphenated(t *testing.T) {
	name, err := ValidateSkillName("  Fix Flaky Retry Test! ")
	require.NoError(t, err)
	assert.Equal(t, "fix-flaky-retry-test", name)
}

func TestValidateSkillName_CollapsesRepeatedDashes(t *testing.T) {
	name, err := ValidateSkillName("a---b")
	require.NoError(t, err)
	assert.Equal(t, "a-b", name)
}

func TestValidateSkillName_EmptyAfterNormalizationErrors(t *testing.T) {
	_, err := ValidateSkillName("!!!")
	assert.Error(t, err)
}

func TestValidateSkillName_TruncatesAt64(t *testing.T) {
	name, err := ValidateSkillName(strings.Repeat("a", 100))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(name), 64)
}

func TestRenderSkillMD_ProducesFrontmatterAndBody(t *testing.T) {
	doc, err := RenderSkillMD("Deploy Service", "Deploys the service.", "## Steps\n1. Build\n2. Push", []string{"deploy"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "---\n"))
	assert.Contains(t, doc, "name: deploy-service")
	assert.Contains(t, doc, "## Steps")
}

func TestRenderSkillMD_InvalidNameFails(t *testing.T) {
	_, err := RenderSkillMD("!!!", "desc", "body", nil)
	assert.Error(t, err)
}

func TestBuildProcedure_NumbersStepsInOrder(t *testing.T) {
	out := BuildProcedure([]string{"open the file", "edit it", "save"})
	assert.Equal(t, "1. open the file\n2. edit it\n3. save\n", out)
}

func TestTriggerKeywordsFrom_DedupesAndCaps(t *testing.T) {
	entities := []string{"focusd", "focusd", "Alice"}
	files := []string{"a.go", "b.go", "c.go", "d.go", "e.go", "f.go", "g.go", "h.go", "i.go"}
	out := TriggerKeywordsFrom(entities, files)
	assert.LessOrEqual(t, len(out), 10)
	assert.Contains(t, out, "focusd")
}

func TestComputeContentHash_IsDeterministicAndHex(t *testing.T) {
	h1 := ComputeContentHash("hello")
	h2 := ComputeContentHash("hello")
	h3 := ComputeContentHash("world")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
