package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func binaryName() string {
	if len(os.Args) == 0 {
		return "agentworld"
	}
	name := strings.TrimSpace(filepath.Base(os.Args[0]))
	if name == "" {
		return "agentworld"
	}
	return name
}

func isHelpArg(arg string) bool {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "-h", "--help", "-help", "help":
		return true
	default:
		return false
	}
}

func printRootUsage(w io.Writer) {
	bin := binaryName()
	fmt.Fprintf(w, `%s - agent world chat front-end

Usage:
  %s [command] [options]

Commands:
  chat        Follow the world's streaming responses (default)
  show        Print the stored transcript
  add         Append a message to the transcript
  export      Write the transcript as markdown or HTML
  clear       Delete the stored transcript
  version     Print the version

Config:
  - --config is optional; by default we look for agentworld.yaml in the
    current directory.
  - The world endpoint can also come from AGENTWORLD_URL.

Help:
  %s -h
  %s <command> -h
  %s help <command>
`, bin, bin, bin, bin, bin)
}

func printChatUsage(w io.Writer) {
	bin := binaryName()
	fmt.Fprintf(w, `Usage:
  %s chat [options]

Options:
  --config     path to agentworld.yaml
  --ui         tui | plain (default from config; plain streams previews
               straight to stdout and needs no alternate screen)
  --url        world endpoint, overrides config and AGENTWORLD_URL
  --verbose    also log to stderr (color-gated; log file is unaffected)
`, bin)
}

func printShowUsage(w io.Writer) {
	bin := binaryName()
	fmt.Fprintf(w, `Usage:
  %s show [options]

Options:
  --config     path to agentworld.yaml
  --limit      only print the last N messages (0 = all)
`, bin)
}

func printAddUsage(w io.Writer) {
	bin := binaryName()
	fmt.Fprintf(w, `Usage:
  %s add [options] <text...>

Options:
  --config     path to agentworld.yaml
  --role       message role (default "user")
  --agent      agent name, for messages spoken on an agent's behalf
`, bin)
}

func printExportUsage(w io.Writer) {
	bin := binaryName()
	fmt.Fprintf(w, `Usage:
  %s export [options]

Options:
  --config     path to agentworld.yaml
  --format     md | html (default "md")
  --out        output file (default stdout)
  --title      document title
`, bin)
}

func printClearUsage(w io.Writer) {
	bin := binaryName()
	fmt.Fprintf(w, `Usage:
  %s clear [options]

Options:
  --config     path to agentworld.yaml
`, bin)
}

func printCommandUsage(w io.Writer, command string) {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "chat":
		printChatUsage(w)
	case "show":
		printShowUsage(w)
	case "add":
		printAddUsage(w)
	case "export":
		printExportUsage(w)
	case "clear":
		printClearUsage(w)
	default:
		printRootUsage(w)
	}
}
