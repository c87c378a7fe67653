package generation

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Template names as constants
const (
	MCQPromptTemplate   = "mcq.tmpl"
	PaperPromptTemplate = "paper.tmpl"
	VoicePromptTemplate = "voice.tmpl"
)

var prompts = template.Must(
	template.New("").Option("missingkey=error").ParseFS(templatesFS, "templates/*.tmpl"),
)

// BuildPrompt renders the endpoint's template with sanitized values.
func BuildPrompt(ep Endpoint, values Values) (string, error) {
	var buf strings.Builder
	if err := prompts.ExecuteTemplate(&buf, ep.Template, map[string]any(values)); err != nil {
		return "", fmt.Errorf("rendering %s: %w", ep.Template, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
