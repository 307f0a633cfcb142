// Package prompttmpl parses and renders the text/template prompt files that
// are embedded next to their callers.
package prompttmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// MustParse parses src as a template named name and panics on error. Missing
// map keys are errors at render time.
func MustParse(name, src string, funcs template.FuncMap) *template.Template {
	tmpl, err := Parse(name, src, funcs)
	if err != nil {
		panic(err)
	}
	return tmpl
}

func Parse(name, src string, funcs template.FuncMap) (*template.Template, error) {
	tmpl := template.New(name).Option("missingkey=error")
	if len(funcs) > 0 {
		tmpl = tmpl.Funcs(funcs)
	}
	parsed, err := tmpl.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	return parsed, nil
}

// Render executes tmpl and returns the output with surrounding whitespace
// trimmed.
func Render(tmpl *template.Template, data any) (string, error) {
	if tmpl == nil {
		return "", fmt.Errorf("nil prompt template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
