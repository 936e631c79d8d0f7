package render

import (
	"fmt"
	"html/template"

	"github.com/deepgram/pipeview/internal/infrastructure/pipeline"
)

// View is the rendered content of the two output regions plus the error panel.
type View struct {
	Answer template.HTML
	Stages template.HTML
	Error  template.HTML
}

// StageCard is one rendered pipeline stage. Both fields are already escaped.
type StageCard struct {
	Label template.HTML
	Body  template.HTML
}

// Renderer turns pipeline replies into escaped HTML fragments.
type Renderer struct {
	engine *TemplateEngine
}

func NewRenderer(engine *TemplateEngine) *Renderer {
	return &Renderer{engine: engine}
}

// Build renders a successful reply. The answer region shows final_response,
// or error_message as an error card; the stage region is independent.
func (r *Renderer) Build(resp *pipeline.Response) (View, error) {
	var view View
	if resp == nil {
		return view, nil
	}

	var err error
	if final, ok := resp.Final(); ok {
		view.Answer, err = r.engine.Fragment("answer", template.HTML(Escape(final)))
	} else if failure, ok := resp.Failure(); ok {
		view.Answer, err = r.engine.Fragment("answer_error", template.HTML(Escape(failure)))
	}
	if err != nil {
		return View{}, err
	}

	if len(resp.PipelineStages) > 0 {
		view.Stages, err = r.engine.Fragment("stages", StageCards(resp.PipelineStages))
		if err != nil {
			return View{}, err
		}
	}

	return view, nil
}

// Failure renders the inline error panel for a failed request.
func (r *Renderer) Failure(message string) (View, error) {
	panel, err := r.engine.Fragment("error_panel", template.HTML(EscapeValue(message)))
	if err != nil {
		return View{}, err
	}
	return View{Error: panel}, nil
}

// StageCards escapes each stage's label and dump.
func StageCards(stages []pipeline.Stage) []StageCard {
	cards := make([]StageCard, 0, len(stages))
	for i, stage := range stages {
		label := stage.Agent
		if label == "" {
			label = fmt.Sprintf("Stage %d", i+1)
		}
		cards = append(cards, StageCard{
			Label: template.HTML(Escape(label)),
			Body:  template.HTML(Escape(StageDump(stage))),
		})
	}
	return cards
}
