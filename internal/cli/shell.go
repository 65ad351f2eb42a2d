package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go-page-builder/internal/component"

	"github.com/chzyer/readline"
)

// Shell reads commands from the terminal until exit or end of input.
func (c *CLI) Shell(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.promptString(),
		HistoryFile:     c.cfg.HistoryFile,
		AutoComplete:    c.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start shell: %w", err)
	}
	defer rl.Close()

	c.out = rl.Stdout()
	c.prompt = func(question string) (string, error) {
		rl.SetPrompt(question)
		defer rl.SetPrompt(c.promptString())
		return rl.Readline()
	}
	fmt.Fprintln(c.out, "Page builder shell. Type 'help' for commands, 'exit' to leave.")
	return c.loop(ctx, func() (string, error) {
		rl.SetPrompt(c.promptString())
		return rl.Readline()
	})
}

// loop runs lines from next until exit, end of input or ctx ends.
func (c *CLI) loop(ctx context.Context, next func() (string, error)) error {
	c.interactive = true
	defer func() { c.interactive = false }()

	for ctx.Err() == nil {
		line, err := next()
		if errors.Is(err, readline.ErrInterrupt) {
			fmt.Fprintln(c.out, "Use 'exit' or 'quit' to leave the shell.")
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if line = strings.TrimSpace(line); line != "" {
			if done := c.runLine(ctx, line); done {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			if c.sess.Dirty() {
				fmt.Fprintf(c.out, "Warning: unsaved changes to page %s were discarded.\n", c.sess.Page().PageID())
			}
			return nil
		}
	}
	return nil
}

func (c *CLI) runLine(ctx context.Context, line string) (exit bool) {
	args, err := splitArgs(line)
	if err != nil {
		fmt.Fprintln(c.out, "Error:", err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	if err := c.Execute(ctx, args); err != nil {
		if errors.Is(err, errExit) {
			return true
		}
		fmt.Fprintln(c.out, "Error:", err)
	}
	return false
}

// promptString shows the open page and whether it has unsaved changes.
func (c *CLI) promptString() string {
	id := c.sess.Page().PageID()
	if len(id) > 8 {
		id = id[:8]
	}
	mark := ""
	if c.sess.Dirty() {
		mark = "*"
	}
	return fmt.Sprintf("page %s%s> ", id, mark)
}

func (c *CLI) completer() *readline.PrefixCompleter {
	types := func(string) []string {
		names := make([]string, 0, len(component.Types()))
		for _, t := range component.Types() {
			names = append(names, string(t))
		}
		return names
	}
	pages := func(string) []string {
		list, err := c.sess.List(context.Background())
		if err != nil {
			return nil
		}
		ids := make([]string, len(list))
		for i, p := range list {
			ids[i] = p.ID
		}
		return ids
	}
	components := func(string) []string {
		comps := c.sess.Page().Components()
		ids := make([]string, len(comps))
		for i, comp := range comps {
			ids[i] = comp.ID
		}
		return ids
	}

	var items []readline.PrefixCompleterInterface
	var names []readline.PrefixCompleterInterface
	for _, name := range c.commandNames() {
		names = append(names, readline.PcItem(name))
		switch name {
		case "add":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(types)))
		case "open", "delete":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(pages)))
		case "remove", "move", "set", "show":
			items = append(items, readline.PcItem(name, readline.PcItemDynamic(components)))
		case "help":
		default:
			items = append(items, readline.PcItem(name))
		}
	}
	items = append(items, readline.PcItem("help", names...), readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}
