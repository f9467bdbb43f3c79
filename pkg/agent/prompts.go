package agent

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/chipchip/marketing-agent/pkg/agent/prompts"
)

// Prompts holds the parsed templates for every model-backed stage.
type Prompts struct {
	System *template.Template
	SQL    *template.Template
	Answer *template.Template
	Chart  *template.Template
}

// LoadPrompts parses the embedded prompt templates.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}
	var err error
	if p.System, err = loadPrompt("SYSTEM.tmpl"); err != nil {
		return nil, err
	}
	if p.SQL, err = loadPrompt("SQL.tmpl"); err != nil {
		return nil, err
	}
	if p.Answer, err = loadPrompt("ANSWER.tmpl"); err != nil {
		return nil, err
	}
	if p.Chart, err = loadPrompt("CHART.tmpl"); err != nil {
		return nil, err
	}
	return p, nil
}

func loadPrompt(name string) (*template.Template, error) {
	data, err := prompts.FS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return tmpl, nil
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
