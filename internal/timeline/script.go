package timeline

import (
	"fmt"
	"strings"
)

// ScriptContent is the voiceover script attached to a composition. It is
// either a structured hook/body/cta script or free text edited by the user.
type ScriptContent interface {
	Render() string
	isScriptContent()
}

type StructuredScript struct {
	Hook string `yaml:"hook" json:"hook"`
	Body string `yaml:"body" json:"body"`
	CTA  string `yaml:"cta" json:"cta"`
}

func (s StructuredScript) Render() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Hook, s.Body, s.CTA} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (StructuredScript) isScriptContent() {}

type FreeformScript struct {
	EditedText string `yaml:"edited_text" json:"edited_text"`
}

func (s FreeformScript) Render() string {
	return strings.TrimSpace(s.EditedText)
}

func (FreeformScript) isScriptContent() {}

// DecodeScriptContent picks the script variant from a loosely shaped payload.
// A non-empty edited_text wins over the structured fields.
func DecodeScriptContent(raw map[string]any) (ScriptContent, error) {
	if raw == nil {
		return nil, validationError("script content is empty")
	}
	if text := stringField(raw, "edited_text"); text != "" {
		return FreeformScript{EditedText: text}, nil
	}

	s := StructuredScript{
		Hook: stringField(raw, "hook"),
		Body: stringField(raw, "body"),
		CTA:  stringField(raw, "cta"),
	}
	if s.Hook == "" && s.Body == "" && s.CTA == "" {
		return nil, validationError("script content has neither edited_text nor hook/body/cta")
	}
	return s, nil
}

func stringField(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
