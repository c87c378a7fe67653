package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_MCQ(t *testing.T) {
	p, err := BuildPrompt(MCQ, Values{"subject": "Physics", "topic": "Optics", "difficulty": "hard", "count": 3})
	require.NoError(t, err)

	assert.Contains(t, p, "Generate 3 multiple choice questions about Optics in Physics. Difficulty: hard.")
	assert.Contains(t, p, "exactly 4 options")
	assert.Contains(t, p, "Return ONLY the JSON array")
}

func TestBuildPrompt_Paper(t *testing.T) {
	p, err := BuildPrompt(Paper, Values{"subject": "Maths", "topics": "Algebra"})
	require.NoError(t, err)

	assert.Contains(t, p, "Create a question paper for Maths covering: Algebra.")
	assert.Contains(t, p, "Generate 5 one-mark, 4 two-mark, and 3 five-mark questions.")
	assert.Contains(t, p, `"fiveMarks"`)
}

func TestBuildPrompt_Voice(t *testing.T) {
	p, err := BuildPrompt(VoiceNotes, Values{"text": "Photosynthesis converts light."})
	require.NoError(t, err)

	assert.Contains(t, p, `Content: "Photosynthesis converts light."`)
	assert.Contains(t, p, "5 MCQs based on the content")
}

func TestBuildPrompt_MissingValue(t *testing.T) {
	_, err := BuildPrompt(Paper, Values{"subject": "Maths"})
	assert.Error(t, err)
}
