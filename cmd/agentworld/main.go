package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"agentworld/internal/appinfo"
	"agentworld/internal/config"
	"agentworld/internal/export"
	"agentworld/internal/store"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		exitOnError(runChat(nil))
		return
	}

	switch args[0] {
	case "chat":
		exitOnError(runChat(args[1:]))
	case "show":
		exitOnError(runShow(args[1:]))
	case "add":
		exitOnError(runAdd(args[1:]))
	case "export":
		exitOnError(runExport(args[1:]))
	case "clear":
		exitOnError(runClear(args[1:]))
	case "version", "--version", "-v":
		fmt.Println(appinfo.Display())
	case "help":
		if len(args) > 1 {
			printCommandUsage(os.Stdout, args[1])
		} else {
			printRootUsage(os.Stdout)
		}
	default:
		if isHelpArg(args[0]) {
			printRootUsage(os.Stdout)
			return
		}
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printRootUsage(os.Stderr)
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStore(cfg config.Config) (*store.Store, error) {
	return store.Open(cfg.DataDir)
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	fs.Usage = func() { printShowUsage(os.Stderr) }
	configPath := fs.String("config", "", "path to agentworld.yaml")
	limit := fs.Int("limit", 0, "only print the last N messages")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	msgs := st.Messages()
	if *limit > 0 && len(msgs) > *limit {
		msgs = msgs[len(msgs)-*limit:]
	}
	if len(msgs) == 0 {
		fmt.Println("(no messages)")
		return nil
	}
	for _, msg := range msgs {
		speaker := strings.TrimSpace(msg.Agent)
		if speaker == "" {
			speaker = msg.Role
		}
		fmt.Printf("[%s] %s: %s\n", msg.CreatedAt.Local().Format("2006-01-02 15:04"), speaker, msg.Content)
	}
	return nil
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	fs.Usage = func() { printAddUsage(os.Stderr) }
	configPath := fs.String("config", "", "path to agentworld.yaml")
	role := fs.String("role", "user", "message role")
	agent := fs.String("agent", "", "agent name")
	fs.Parse(args)

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		printAddUsage(os.Stderr)
		return fmt.Errorf("message text is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	return st.Append(store.Message{Role: *role, Agent: strings.TrimSpace(*agent), Content: text})
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() { printExportUsage(os.Stderr) }
	configPath := fs.String("config", "", "path to agentworld.yaml")
	format := fs.String("format", "md", "md or html")
	outPath := fs.String("out", "", "output file (default stdout)")
	title := fs.String("title", "", "document title")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	var rendered string
	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "md", "markdown":
		rendered = export.Markdown(*title, st.Messages())
	case "html":
		rendered, err = export.HTML(*title, st.Messages())
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown export format: %s (want md or html)", *format)
	}

	if strings.TrimSpace(*outPath) == "" {
		fmt.Print(rendered)
		return nil
	}
	return os.WriteFile(*outPath, []byte(rendered), 0o644)
}

func runClear(args []string) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	fs.Usage = func() { printClearUsage(os.Stderr) }
	configPath := fs.String("config", "", "path to agentworld.yaml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	n := st.Len()
	if err := st.Clear(); err != nil {
		return err
	}
	fmt.Printf("cleared %d messages\n", n)
	return nil
}
