// Package prompts holds the prompt templates used by the agent.
package prompts

import "embed"

//go:embed *.tmpl
var FS embed.FS
