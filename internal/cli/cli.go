// Package cli implements the builder commands. The same dispatcher serves
// one-shot invocations, which open a stored page, change it and save it
// again, and the interactive shell, which keeps one page open and saves
// only on request.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"go-page-builder/internal/session"

	"go.uber.org/zap"
)

// errExit ends the shell loop.
var errExit = errors.New("exit requested")

// Config holds the settings commands fall back to when a flag is not given.
type Config struct {
	ExportDir   string
	AssetsDir   string
	PreviewAddr string
	OpenBrowser bool
	HistoryFile string // Shell history; empty disables it
}

type command struct {
	usage   string
	summary string
	shell   bool // Only meaningful inside the shell
	run     func(ctx context.Context, args []string) error
}

// CLI runs builder commands against one session.
type CLI struct {
	sess   *session.Session
	cfg    Config
	logger *zap.Logger
	out    io.Writer

	// prompt reads one answer for a confirmation question.
	prompt      func(question string) (string, error)
	interactive bool
	commands    map[string]command

	preview *previewServer
}

// New creates a CLI that reads confirmations from in and writes to out.
func New(sess *session.Session, cfg Config, logger *zap.Logger, in io.Reader, out io.Writer) *CLI {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CLI{
		sess:   sess,
		cfg:    cfg,
		logger: logger,
		out:    out,
	}
	reader := bufio.NewReader(in)
	c.prompt = func(question string) (string, error) {
		fmt.Fprint(c.out, question)
		return reader.ReadString('\n')
	}
	c.commands = map[string]command{
		"catalog": {usage: "catalog [-json]", summary: "List the component types and their editable properties", run: c.handleCatalog},
		"new":     {usage: "new [-title t] [-description d] [-author a] [-force]", summary: "Start a new page", run: c.handleNew},
		"list":    {usage: "list", summary: "List stored pages", run: c.handleList},
		"show":    {usage: "show [-page id] [-json] [component-id]", summary: "Show a page or one component's properties", run: c.handleShow},
		"add":     {usage: "add [-page id] [-at n] [-set json] <type>", summary: "Add a component", run: c.handleAdd},
		"remove":  {usage: "remove [-page id] <component-id>", summary: "Remove a component", run: c.handleRemove},
		"move":    {usage: "move [-page id] <component-id> <index>", summary: "Move a component to a new position", run: c.handleMove},
		"set":     {usage: "set [-page id] [-json patch] <component-id> [key=value...]", summary: "Change component properties", run: c.handleSet},
		"meta":    {usage: "meta [-page id] [-title t] [-description d] [-author a]", summary: "Change page metadata", run: c.handleMeta},
		"export":  {usage: "export [-page id] [-dir d] [-assets d]", summary: "Write index.html, styles.css and script.js", run: c.handleExport},
		"preview": {usage: "preview [-page id] [-addr host:port] [-no-browser]", summary: "Serve a live preview of the page", run: c.handlePreview},
		"history": {usage: "history [-page id]", summary: "List the saved revisions of a page", run: c.handleHistory},
		"diff":    {usage: "diff [-page id] [-patch] <from> [to]", summary: "Compare two revisions; 0 or no 'to' means the page as edited", run: c.handleDiff},
		"delete":  {usage: "delete [-force] [-yes] <page-id>", summary: "Delete a stored page and its history", run: c.handleDelete},
		"open":    {usage: "open [-force] <page-id>", summary: "Open a stored page", shell: true, run: c.handleOpen},
		"save":    {usage: "save", summary: "Save the page as a new revision", shell: true, run: c.handleSave},
		"help":    {usage: "help [command]", summary: "Show help", run: c.handleHelp},
		"exit":    {usage: "exit [-force]", summary: "Leave the shell", shell: true, run: c.handleExit},
	}
	c.commands["quit"] = c.commands["exit"]
	return c
}

// Execute runs one command line already split into arguments.
func (c *CLI) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}
	cmd, ok := c.commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s (try 'help')", args[0])
	}
	if cmd.shell && !c.interactive {
		return fmt.Errorf("%s is only available in the shell", args[0])
	}
	if err := cmd.run(ctx, args[1:]); err != nil && !errors.Is(err, flag.ErrHelp) {
		return err
	}
	return nil
}

// Run executes a one-shot invocation. "shell" starts the interactive loop.
func (c *CLI) Run(ctx context.Context, args []string) error {
	defer c.Close()
	if len(args) == 0 {
		c.printUsage()
		return nil
	}
	if args[0] == "shell" {
		return c.Shell(ctx)
	}
	return c.Execute(ctx, args)
}

// Close stops a running preview server.
func (c *CLI) Close() {
	if c.preview != nil {
		c.preview.stop()
		c.preview = nil
	}
}

func (c *CLI) printUsage() {
	fmt.Fprintln(c.out, "Usage: builder-cli <command> [options]")
	fmt.Fprintln(c.out, "Available commands:")
	for _, name := range c.commandNames() {
		cmd := c.commands[name]
		if cmd.shell {
			continue
		}
		fmt.Fprintf(c.out, "  %-60s %s\n", cmd.usage, cmd.summary)
	}
	fmt.Fprintf(c.out, "  %-60s %s\n", "shell", "Start the interactive shell")
}

func (c *CLI) commandNames() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		if name == "quit" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *CLI) handleHelp(_ context.Context, args []string) error {
	if len(args) == 0 {
		if !c.interactive {
			c.printUsage()
			return nil
		}
		for _, name := range c.commandNames() {
			cmd := c.commands[name]
			fmt.Fprintf(c.out, "  %-60s %s\n", cmd.usage, cmd.summary)
		}
		return nil
	}
	cmd, ok := c.commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", args[0])
	}
	fmt.Fprintf(c.out, "Syntax: %s\n%s\n", cmd.usage, cmd.summary)
	return nil
}

// newFlagSet returns a flag set that reports errors instead of exiting, so
// a typo in the shell does not end the session.
func (c *CLI) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.out)
	fs.Usage = func() {
		fmt.Fprintf(c.out, "Usage: %s\n", c.commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}

// askForConfirmation asks a yes/no question. Anything but y or yes is no.
func (c *CLI) askForConfirmation(question string) (bool, error) {
	for {
		answer, err := c.prompt(question + " [y/N]: ")
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			return false, nil
		}
		if err != nil {
			return false, nil
		}
	}
}

// splitArgs splits a shell line into arguments. Single or double quotes
// group words; the other quote character is literal inside them.
func splitArgs(line string) ([]string, error) {
	var (
		args  []string
		cur   strings.Builder
		quote rune
		inArg bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}
