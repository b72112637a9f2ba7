package normalize

import "github.com/jony/cascade/pkg/cascade/task"

// Normalize runs the full second-pass pipeline: property propagation
// followed by dependency flattening, returning the resulting leaf
// steps. It never mutates ast.
func Normalize(ast *task.TaskAST) ([]*task.Step, error) {
	propagated, err := PropagateProperties(ast)
	if err != nil {
		return nil, err
	}
	return Dependencies(propagated), nil
}
