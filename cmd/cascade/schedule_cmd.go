package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jony/cascade/pkg/cascade/processed"
	"github.com/jony/cascade/pkg/cascade/render"
	"github.com/jony/cascade/pkg/cascade/solve"
	"github.com/jony/cascade/pkg/cascade/task"
)

// runSchedule loads a task document from path and solves it for the
// window described by startExpr/endExpr, writing the result to stdout
// in the requested output form.
func runSchedule(path, startExpr, endExpr, output string) error {
	ast, err := task.LoadFile(path)
	if err != nil {
		return err
	}

	now := time.Now().In(ast.Config.DefaultTZ)
	start, err := parseStartExpr(startExpr, now)
	if err != nil {
		return err
	}
	end, err := parseEndExpr(endExpr, start)
	if err != nil {
		return err
	}

	p, err := processed.FromTaskAST(ast)
	if err != nil {
		return err
	}

	sched, err := solve.Solve(context.Background(), p, start, end, ast.Config.SolverTimeout)
	if err != nil {
		return err
	}

	switch output {
	case "", "rendered":
		render.Text(os.Stdout, sched)
	case "ics":
		render.ICS(os.Stdout, sched)
	case "no":
	default:
		return fmt.Errorf("unknown --output value %q", output)
	}
	return nil
}
