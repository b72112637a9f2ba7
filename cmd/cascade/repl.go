package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/jony/cascade/pkg/cascade/normalize"
	"github.com/jony/cascade/pkg/cascade/processed"
	"github.com/jony/cascade/pkg/cascade/render"
	"github.com/jony/cascade/pkg/cascade/solve"
	"github.com/jony/cascade/pkg/cascade/task"
)

// replSession holds the in-memory state the interactive shell keeps
// across commands: the path and TaskAST of the last imported document
// and the last schedule solved. The processed AST is rebuilt by each
// command that needs it, and no cache of schedules is kept.
// Persisted state is deliberately absent: everything here is rebuilt
// from the imported source text on every `import`.
type replSession struct {
	path string
	ast  *task.TaskAST
	last *solve.Schedule
}

func runREPL() error {
	fmt.Println("cascade repl — type 'help' for commands, 'exit' to quit")
	sess := &replSession{}
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("cascade> ")
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			printREPLHelp()
		case "import":
			if err := replImport(sess, args); err != nil {
				fmt.Println("error:", err)
			}
		case "schedule":
			if err := replSchedule(sess, args); err != nil {
				fmt.Println("error:", err)
			}
		case "dev":
			if err := replDev(sess, args); err != nil {
				fmt.Println("error:", err)
			}
		default:
			fmt.Printf("unknown command %q, type 'help'\n", cmd)
		}
	}
}

func printREPLHelp() {
	fmt.Println("commands:")
	fmt.Println("  import [path]                          load a task document, prompting for a path if omitted")
	fmt.Println("  schedule <start> <end> [--output kind]  solve the current document for a window")
	fmt.Println("  dev {normalize_deps|propagate|processed_ast}  inspect a pipeline stage")
	fmt.Println("  exit")
}

func replImport(sess *replSession, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		input := huh.NewInput().Title("Path to task document").Value(&path)
		if err := input.Run(); err != nil {
			return err
		}
	}

	ast, err := task.LoadFile(path)
	if err != nil {
		return err
	}
	sess.path = path
	sess.ast = ast
	sess.last = nil
	fmt.Printf("imported %s: %d tasks\n", path, len(ast.Tasks))
	return nil
}

func replSchedule(sess *replSession, args []string) error {
	if sess.ast == nil {
		return fmt.Errorf("no document imported; run 'import' first")
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: schedule <start> <end> [--output rendered|ics|no]")
	}

	output := "rendered"
	for i := 2; i < len(args)-1; i++ {
		if args[i] == "--output" {
			output = args[i+1]
		}
	}

	now := time.Now().In(sess.ast.Config.DefaultTZ)
	start, err := parseStartExpr(args[0], now)
	if err != nil {
		return err
	}
	end, err := parseEndExpr(args[1], start)
	if err != nil {
		return err
	}

	p, err := processed.FromTaskAST(sess.ast)
	if err != nil {
		return err
	}
	sched, err := solve.Solve(context.Background(), p, start, end, sess.ast.Config.SolverTimeout)
	if err != nil {
		return err
	}
	sess.last = sched

	switch output {
	case "rendered":
		render.Text(os.Stdout, sched)
	case "ics":
		render.ICS(os.Stdout, sched)
	case "no":
	default:
		return fmt.Errorf("unknown --output value %q", output)
	}
	return nil
}

func replDev(sess *replSession, args []string) error {
	if sess.ast == nil {
		return fmt.Errorf("no document imported; run 'import' first")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: dev {normalize_deps|propagate|processed_ast}")
	}

	switch args[0] {
	case "normalize_deps":
		steps := normalize.Dependencies(sess.ast)
		for _, s := range steps {
			fmt.Printf("%-20s after=%v\n", s.ID, s.Deps.After.Slice())
		}
	case "propagate":
		propagated, err := normalize.PropagateProperties(sess.ast)
		if err != nil {
			return err
		}
		for _, t := range propagated.Tasks {
			c := t.Common()
			fmt.Printf("%-20s priority=%d deadline=%v\n", c.ID, c.Priority, c.Deadline)
		}
	case "processed_ast":
		p, err := processed.FromTaskAST(sess.ast)
		if err != nil {
			return err
		}
		for id, n := range p.Nodes {
			fmt.Printf("%-20s duration=%d slots deps=%v\n", id, n.Duration, n.Deps.Slice())
		}
	default:
		return fmt.Errorf("unknown dev subcommand %q", args[0])
	}
	return nil
}
