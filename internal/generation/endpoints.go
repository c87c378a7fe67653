package generation

import (
	"github.com/edugen-platform/edugen/internal/usage"
)

// Endpoint describes one generation route: which inputs it takes, how the
// prompt is built and what shape of JSON the model must return.
type Endpoint struct {
	Name     string
	Kind     usage.Kind
	Rules    []FieldRule
	Template string
	System   string
	Shape    Shape
	// ResponseKey wraps the extracted value as {ResponseKey: value}. When
	// empty the extracted object is the response body.
	ResponseKey string
}

const (
	MaxSubjectLength = 100
	MaxTopicLength   = 200
	MaxTopicsLength  = 500
	MinTextLength    = 10
	MaxTextLength    = 10000
	MinCount         = 1
	MaxCount         = 10
)

var Difficulties = []string{"easy", "medium", "hard"}

var subjectRule = FieldRule{Name: "subject", Label: "Subject", Type: FieldText, Max: MaxSubjectLength}

var MCQ = Endpoint{
	Name: "generate-mcq",
	Kind: usage.KindMCQ,
	Rules: []FieldRule{
		subjectRule,
		{Name: "topic", Label: "Topic", Type: FieldText, Max: MaxTopicLength},
		{Name: "difficulty", Label: "Difficulty", Type: FieldEnum, Options: Difficulties},
		{Name: "count", Label: "Count", Type: FieldInt, Min: MinCount, Max: MaxCount},
	},
	Template:    MCQPromptTemplate,
	System:      "You are an expert educator who creates high-quality MCQ questions. Always respond with valid JSON only.",
	Shape:       ShapeArray,
	ResponseKey: "mcqs",
}

var Paper = Endpoint{
	Name: "generate-paper",
	Kind: usage.KindPaper,
	Rules: []FieldRule{
		subjectRule,
		{Name: "topics", Label: "Topics", Type: FieldText, Max: MaxTopicsLength},
	},
	Template:    PaperPromptTemplate,
	System:      "You are an expert educator. Return valid JSON only.",
	Shape:       ShapeObject,
	ResponseKey: "paper",
}

var VoiceNotes = Endpoint{
	Name: "process-voice-notes",
	Kind: usage.KindVoice,
	Rules: []FieldRule{
		{Name: "text", Label: "Text", RequiredLabel: "Text content", Type: FieldText, Min: MinTextLength, Max: MaxTextLength},
	},
	Template: VoicePromptTemplate,
	System:   "You are an expert note-taker. Return valid JSON only.",
	Shape:    ShapeObject,
}
