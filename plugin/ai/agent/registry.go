package agent

import (
	"github.com/pkg/errors"

	"github.com/hrygo/divinecanvas/plugin/ai"
)

// Registry maps each agent type to its strategy.
type Registry struct {
	strategies map[AgentType]Strategy
}

// NewRegistry builds the seven strategies. toolAgents lists the artifact
// strategies that run in tool mode; nil keeps the default modes.
func NewRegistry(llm ai.LLMService, toolAgents []string) (*Registry, error) {
	specs := DefaultSpecs()
	ApplyToolModes(specs, toolAgents)

	r := &Registry{
		strategies: make(map[AgentType]Strategy, len(specs)),
	}
	for _, spec := range specs {
		var (
			s   Strategy
			err error
		)
		if spec.Mode == ModeTool {
			s, err = NewToolParrot(spec, llm, NewGenerationTool(spec, llm))
		} else {
			s, err = NewDirectParrot(spec, llm)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build %s strategy", spec.Type)
		}
		r.strategies[spec.Type] = s
	}
	return r, nil
}

// Get returns the strategy for t.
func (r *Registry) Get(t AgentType) (Strategy, error) {
	s, ok := r.strategies[t]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownAgent, "%q", t)
	}
	return s, nil
}
