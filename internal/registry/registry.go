package registry

import (
	"github.com/castforge/castforge/internal/graph"
	"github.com/castforge/castforge/internal/phase"
	"github.com/castforge/castforge/internal/workflow"
)

// For resolves a workflow.Type to its phase catalogue.
func For(t workflow.Type) ([]*phase.Spec, error) {
	switch t {
	case workflow.Standard:
		return Standard(), nil
	case workflow.Enhanced:
		return Enhanced(), nil
	default:
		return nil, &UnknownTypeError{Type: t}
	}
}

// Build resolves t's catalogue and derives its validated dependency graph in
// one step, the form internal/scheduler consumes.
func Build(t workflow.Type) (*graph.Graph, error) {
	specs, err := For(t)
	if err != nil {
		return nil, err
	}
	return graph.Build(specs)
}

// UnknownTypeError reports a workflow.Type with no registered catalogue.
type UnknownTypeError struct {
	Type workflow.Type
}

func (e *UnknownTypeError) Error() string {
	return "registry: unknown workflow type " + string(e.Type)
}
