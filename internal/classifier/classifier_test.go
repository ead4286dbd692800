package classifier

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_ShortPromptIsUnknown(t *testing.T) {
	c := &Classifier{}
	sig := c.Classify("hi")
	assert.Equal(t, IntentUnknown, sig.Intent)
	assert.Empty(t, sig.Projects)
}

func TestClassify_Intents(t *testing.T) {
	c := &Classifier{}

	cases := []struct {
		prompt string
		want   Intent
	}{
		{"What does this function return?", IntentQuestion},
		{"is this thread-safe", IntentQuestion},
		{"Fix the flaky retry test", IntentCommand},
		{"continue where we left off", IntentContinuation},
		{"the quick brown fox jumps", IntentUnknown},
	}
	for _, tc := range cases {
		sig := c.Classify(tc.prompt)
		assert.Equal(t, tc.want, sig.Intent, "prompt: %q", tc.prompt)
	}
}

func TestClassify_DetectsCodeFenceAndPaths(t *testing.T) {
	c := &Classifier{}
	sig := c.Classify("can you review src/store/jobs.go and ```go\nfunc f(){}\n```")
	assert.True(t, sig.HasCodeFence)
	assert.Contains(t, sig.Paths, "src/store/jobs.go")
}

func TestClassify_MatchesKnownProjectAndPerson(t *testing.T) {
	projectID := uuid.New()
	personID := uuid.New()
	c := &Classifier{
		projects: []entity{{id: &projectID, name: "focusd", pattern: wordBoundary("focusd")}},
		people:   []entity{{id: &personID, name: "Alice", pattern: wordBoundary("Alice")}},
	}

	sig := c.Classify("can Alice take a look at focusd's job queue?")
	require.Len(t, sig.Projects, 1)
	assert.Equal(t, "focusd", sig.Projects[0])
	require.Len(t, sig.People, 1)
	assert.Equal(t, "Alice", sig.People[0])
}

func TestClassify_DedupesRepeatedMentions(t *testing.T) {
	projectID := uuid.New()
	c := &Classifier{
		projects: []entity{{id: &projectID, name: "focusd", pattern: wordBoundary("focusd")}},
	}
	sig := c.Classify("focusd, focusd, focusd — why does focusd keep retrying?")
	assert.Len(t, sig.Projects, 1)
}

func TestMatchProjects_ConfidenceScalesWithOccurrencesBoundedAtOne(t *testing.T) {
	projectID := uuid.New()
	c := &Classifier{
		projects: []entity{{id: &projectID, name: "focusd", pattern: wordBoundary("focusd")}},
	}

	once := c.MatchProjects("let's ship focusd")
	require.Len(t, once, 1)
	assert.InDelta(t, 0.8, once[0].Confidence, 1e-9)

	twice := c.MatchProjects("focusd needs focusd's job queue fixed")
	require.Len(t, twice, 1)
	assert.InDelta(t, 1.0, twice[0].Confidence, 1e-9)
}

func TestMatchPeople_ConfidenceScalesWithOccurrencesBoundedAtOne(t *testing.T) {
	personID := uuid.New()
	c := &Classifier{
		people: []entity{{id: &personID, name: "Alice", pattern: wordBoundary("Alice")}},
	}

	once := c.MatchPeople("ask Alice")
	require.Len(t, once, 1)
	assert.InDelta(t, 0.7, once[0].Confidence, 1e-9)

	many := c.MatchPeople("Alice, Alice, and Alice again")
	require.Len(t, many, 1)
	assert.InDelta(t, 1.0, many[0].Confidence, 1e-9)
}

func TestClassify_KeywordsDropStopWordsAndShortTokens(t *testing.T) {
	c := &Classifier{}
	sig := c.Classify("Why is the worker retrying this job so many times in a row")
	assert.NotContains(t, sig.Keywords, "the")
	assert.NotContains(t, sig.Keywords, "is")
	assert.Contains(t, sig.Keywords, "worker")
	assert.Contains(t, sig.Keywords, "retrying")
}

func TestWordBoundary_DoesNotMatchSubstringOfLargerWord(t *testing.T) {
	re := wordBoundary("go")
	assert.False(t, re.MatchString("diego wrote this"))
	assert.True(t, re.MatchString("written in go today"))
}

func TestStale_TrueBeforeFirstRefresh(t *testing.T) {
	c := New(nil, 0)
	assert.True(t, c.Stale())
}
