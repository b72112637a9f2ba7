package main

import (
	"flag"
	"fmt"
	"os"
)

const logo = "\U0001F4C5"

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "schedule":
		scheduleCmd(os.Args[2:])
	case "repl":
		if err := runREPL(); err != nil {
			fmt.Println("error:", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s cascade v1.0.0\n", logo)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Printf("%s cascade - declarative TODO scheduling\n\n", logo)
	fmt.Println("Usage: cascade <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  schedule --path <file> [--output rendered|ics|no] <start> <end>")
	fmt.Println("  repl      interactive shell: import/schedule/dev")
	fmt.Println("  version   show version")
}

func scheduleCmd(args []string) {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	path := fs.String("path", "", "task document to load")
	output := fs.String("output", "rendered", "rendered|ics|no")
	fs.Parse(args)

	rest := fs.Args()
	if *path == "" || len(rest) < 2 {
		fmt.Println("usage: cascade schedule --path <file> [--output rendered|ics|no] <start> <end>")
		os.Exit(1)
	}

	if err := runSchedule(*path, rest[0], rest[1], *output); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
