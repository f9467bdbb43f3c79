package agent

import (
	"context"

	"github.com/chipchip/marketing-agent/pkg/dataset"
)

type answerPromptData struct {
	Question string
	SQL      string
	Result   string
	NoData   bool
}

// Synthesize asks the model for a prose answer to question given the
// executed SQL and its rendered result.
func (a *Agent) Synthesize(ctx context.Context, question, sql, rendered string) (string, error) {
	prompt, err := render(a.cfg.Prompts.Answer, answerPromptData{
		Question: question,
		SQL:      sql,
		Result:   rendered,
		NoData:   rendered == dataset.NoDataMarker,
	})
	if err != nil {
		return "", err
	}

	answer, err := a.cfg.LLM.Complete(ctx, a.system, prompt)
	if err != nil {
		return "", &ModelError{Stage: StageSynthesize, Err: err}
	}
	return answer, nil
}
