package agents

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"default": func(def string, val string) string {
		if strings.TrimSpace(val) == "" {
			return def
		}
		return val
	},
}).ParseFS(promptFS, "prompts/*.tmpl"))

// render executes the named prompt template ("editor_plan.tmpl").
func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
