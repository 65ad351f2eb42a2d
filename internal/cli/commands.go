package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"go-page-builder/internal/component"
	"go-page-builder/pkg/fsutils"
)

const defaultExportDir = "dist"

// target makes pageID the page being edited. One-shot commands start on a
// fresh page, so they always load it; the shell keeps its page when the id
// already matches and refuses to discard unsaved work.
func (c *CLI) target(ctx context.Context, pageID string) error {
	if pageID == "" {
		return nil
	}
	if c.interactive && pageID == c.sess.Page().PageID() {
		return nil
	}
	return c.sess.Open(ctx, pageID, false)
}

// requirePage is target for commands that make no sense on a fresh page.
func (c *CLI) requirePage(ctx context.Context, pageID string) error {
	if pageID == "" && !c.interactive {
		return errors.New("-page is required")
	}
	return c.target(ctx, pageID)
}

// commit saves a one-shot change. The shell saves only on 'save'.
func (c *CLI) commit(ctx context.Context) error {
	if c.interactive {
		return nil
	}
	rev, err := c.sess.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved page %s (revision %d).\n", rev.PageID, rev.Number)
	return nil
}

func (c *CLI) handleCatalog(_ context.Context, args []string) error {
	fs := c.newFlagSet("catalog")
	asJSON := fs.Bool("json", false, "Print the catalog as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	catalog := component.Catalog()
	if *asJSON {
		return c.printJSON(catalog)
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, d := range catalog {
		fmt.Fprintf(w, "%s\t%s\t\n", d.Type, d.Label)
		for _, p := range d.Properties {
			kind := string(p.Kind)
			if len(p.Choices) > 0 {
				kind += ": " + strings.Join(p.Choices, "|")
			}
			fmt.Fprintf(w, "    %s\t%s\t\n", p.Key, kind)
		}
	}
	return w.Flush()
}

func (c *CLI) handleNew(ctx context.Context, args []string) error {
	fs := c.newFlagSet("new")
	title := fs.String("title", "", "Page title")
	description := fs.String("description", "", "Page description")
	author := fs.String("author", "", "Page author")
	force := fs.Bool("force", false, "Discard unsaved changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.sess.NewPage(*force); err != nil {
		return err
	}
	if *title != "" || *description != "" || *author != "" {
		c.sess.Page().SetMetadata(*title, *description, *author)
	}
	fmt.Fprintf(c.out, "New page %s.\n", c.sess.Page().PageID())
	return c.commit(ctx)
}

func (c *CLI) handleList(ctx context.Context, args []string) error {
	fs := c.newFlagSet("list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pages, err := c.sess.List(ctx)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		fmt.Fprintln(c.out, "No pages stored.")
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCOMPONENTS\tREVISIONS\tUPDATED\t")
	for _, p := range pages {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t\n", p.ID, p.Title, p.Components, p.Revisions, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func (c *CLI) handleShow(ctx context.Context, args []string) error {
	fs := c.newFlagSet("show")
	pageID := fs.String("page", "", "Stored page id")
	asJSON := fs.Bool("json", false, "Print the page snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.requirePage(ctx, *pageID); err != nil {
		return err
	}
	page := c.sess.Page()

	if fs.NArg() > 0 {
		comp, ok := page.Component(fs.Arg(0))
		if !ok {
			return fmt.Errorf("component %s not found", fs.Arg(0))
		}
		if *asJSON {
			return c.printJSON(comp)
		}
		fmt.Fprintf(c.out, "%s %s at %d\n", comp.Type, comp.ID, page.IndexOf(comp.ID))
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		for _, e := range component.EditableProperties(comp) {
			value, err := json.Marshal(e.Value)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "    %s\t%s\t%s\t\n", e.Key, e.Kind, value)
		}
		return w.Flush()
	}

	if *asJSON {
		data, err := page.Save(true)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, string(data))
		return nil
	}

	meta := page.Metadata()
	state := "never saved"
	if rev, ok := c.sess.LastRevision(); ok {
		state = fmt.Sprintf("revision %d", rev.Number)
	}
	if c.sess.Dirty() {
		state += ", unsaved changes"
	}
	fmt.Fprintf(c.out, "Page %s %q (%s)\n", page.PageID(), meta.Title, state)
	if meta.Author != "" {
		fmt.Fprintf(c.out, "Author: %s\n", meta.Author)
	}
	comps := page.Components()
	if len(comps) == 0 {
		fmt.Fprintln(c.out, "No components.")
		return nil
	}
	selected := c.sess.Selection().Selected()
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for i, comp := range comps {
		mark := " "
		if comp.ID == selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %d\t%s\t%s\t\n", mark, i, comp.ID, comp.Type)
	}
	return w.Flush()
}

func (c *CLI) handleAdd(ctx context.Context, args []string) error {
	fs := c.newFlagSet("add")
	pageID := fs.String("page", "", "Stored page id; a new page is created when empty")
	at := fs.Int("at", -1, "Insert position; negative appends")
	set := fs.String("set", "", "JSON object of initial properties")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("a component type is required")
	}
	t, err := component.ParseType(fs.Arg(0))
	if err != nil {
		return err
	}
	var patch map[string]any
	if *set != "" {
		if err := json.Unmarshal([]byte(*set), &patch); err != nil {
			return fmt.Errorf("-set is not a JSON object: %w", err)
		}
	}
	if err := c.target(ctx, *pageID); err != nil {
		return err
	}

	page := c.sess.Page()
	comp, err := page.Insert(t, *at)
	if err != nil {
		return err
	}
	if len(patch) > 0 {
		if _, err := page.Update(comp.ID, patch); err != nil {
			page.Remove(comp.ID)
			return err
		}
	}
	fmt.Fprintf(c.out, "Added %s %s at %d.\n", comp.Type, comp.ID, page.IndexOf(comp.ID))
	return c.commit(ctx)
}

func (c *CLI) handleRemove(ctx context.Context, args []string) error {
	fs := c.newFlagSet("remove")
	pageID := fs.String("page", "", "Stored page id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("a component id is required")
	}
	if err := c.requirePage(ctx, *pageID); err != nil {
		return err
	}
	id := fs.Arg(0)
	if !c.sess.Page().Remove(id) {
		return fmt.Errorf("component %s not found", id)
	}
	fmt.Fprintf(c.out, "Removed %s.\n", id)
	return c.commit(ctx)
}

func (c *CLI) handleMove(ctx context.Context, args []string) error {
	fs := c.newFlagSet("move")
	pageID := fs.String("page", "", "Stored page id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return errors.New("a component id and an index are required")
	}
	index, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid index %q", fs.Arg(1))
	}
	if err := c.requirePage(ctx, *pageID); err != nil {
		return err
	}
	id := fs.Arg(0)
	page := c.sess.Page()
	if page.IndexOf(id) < 0 {
		return fmt.Errorf("component %s not found", id)
	}
	if !page.Move(id, index) {
		fmt.Fprintf(c.out, "%s is already at %d.\n", id, page.IndexOf(id))
		return nil
	}
	fmt.Fprintf(c.out, "Moved %s to %d.\n", id, page.IndexOf(id))
	return c.commit(ctx)
}

func (c *CLI) handleSet(ctx context.Context, args []string) error {
	fs := c.newFlagSet("set")
	pageID := fs.String("page", "", "Stored page id")
	raw := fs.String("json", "", "JSON object merged into the properties")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("a component id is required")
	}
	patch := map[string]any{}
	if *raw != "" {
		if err := json.Unmarshal([]byte(*raw), &patch); err != nil {
			return fmt.Errorf("-json is not a JSON object: %w", err)
		}
	}
	if err := parseAssignments(patch, fs.Args()[1:]); err != nil {
		return err
	}
	if len(patch) == 0 {
		return errors.New("nothing to set; pass key=value pairs or -json")
	}
	if err := c.requirePage(ctx, *pageID); err != nil {
		return err
	}
	id := fs.Arg(0)
	changed, err := c.sess.Page().Update(id, patch)
	if err != nil {
		return err
	}
	if !changed {
		return fmt.Errorf("component %s not found", id)
	}
	fmt.Fprintf(c.out, "Updated %s.\n", id)
	return c.commit(ctx)
}

// parseAssignments adds key=value (a string) and key:=json (any JSON value)
// pairs to patch. Dotted keys address nested objects, as in style.color=red.
func parseAssignments(patch map[string]any, pairs []string) error {
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" || key == ":" {
			return fmt.Errorf("expected key=value or key:=json, got %q", pair)
		}
		var v any = value
		if strings.HasSuffix(key, ":") {
			key = strings.TrimSuffix(key, ":")
			var decoded any
			if err := json.Unmarshal([]byte(value), &decoded); err != nil {
				return fmt.Errorf("%s: invalid JSON value: %w", key, err)
			}
			v = decoded
		}
		if err := setPath(patch, strings.Split(key, "."), v); err != nil {
			return err
		}
	}
	return nil
}

func setPath(m map[string]any, path []string, v any) error {
	for i, part := range path[:len(path)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			if _, exists := m[part]; exists {
				return fmt.Errorf("%s is not an object", strings.Join(path[:i+1], "."))
			}
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[path[len(path)-1]] = v
	return nil
}

func (c *CLI) handleMeta(ctx context.Context, args []string) error {
	fs := c.newFlagSet("meta")
	pageID := fs.String("page", "", "Stored page id; a new page is created when empty")
	title := fs.String("title", "", "Page title")
	description := fs.String("description", "", "Page description")
	author := fs.String("author", "", "Page author")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.target(ctx, *pageID); err != nil {
		return err
	}
	meta := c.sess.Page().Metadata()
	changed := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			meta.Title, changed = *title, true
		case "description":
			meta.Description, changed = *description, true
		case "author":
			meta.Author, changed = *author, true
		}
	})
	if !changed {
		fmt.Fprintf(c.out, "Title: %s\nDescription: %s\nAuthor: %s\n", meta.Title, meta.Description, meta.Author)
		return nil
	}
	c.sess.Page().SetMetadata(meta.Title, meta.Description, meta.Author)
	fmt.Fprintf(c.out, "Updated metadata of %s.\n", c.sess.Page().PageID())
	return c.commit(ctx)
}

func (c *CLI) handleExport(ctx context.Context, args []string) error {
	fs := c.newFlagSet("export")
	pageID := fs.String("page", "", "Stored page id")
	dir := fs.String("dir", "", "Output directory (default: a directory named after the page inside the export dir)")
	assets := fs.String("assets", c.cfg.AssetsDir, "Directory copied next to the page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.requirePage(ctx, *pageID); err != nil {
		return err
	}
	out := *dir
	if out == "" {
		base := c.cfg.ExportDir
		if base == "" {
			base = defaultExportDir
		}
		page := c.sess.Page()
		out = filepath.Join(base, fsutils.Slugify(page.Metadata().Title, page.PageID()))
	}
	written, err := c.sess.Export(out, *assets)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Fprintf(c.out, "Wrote %s\n", path)
	}
	return nil
}

func (c *CLI) handleHistory(ctx context.Context, args []string) error {
	fs := c.newFlagSet("history")
	pageID := fs.String("page", "", "Stored page id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pageID == "" && !c.interactive {
		return errors.New("-page is required")
	}
	revs, err := c.sess.History(ctx, *pageID)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		fmt.Fprintln(c.out, "No revisions.")
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REVISION\tTITLE\tSAVED\t")
	for _, r := range revs {
		fmt.Fprintf(w, "%d\t%s\t%s\t\n", r.Number, r.Title, r.SavedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func (c *CLI) handleDiff(ctx context.Context, args []string) error {
	fs := c.newFlagSet("diff")
	pageID := fs.String("page", "", "Stored page id")
	patch := fs.Bool("patch", false, "Print a patch instead of the changed runs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errors.New("one or two revision numbers are required")
	}
	numbers := make([]int, 2)
	for i, arg := range fs.Args() {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid revision %q", arg)
		}
		numbers[i] = n
	}
	if err := c.requirePage(ctx, *pageID); err != nil {
		return err
	}
	d, err := c.sess.Diff(ctx, "", numbers[0], numbers[1])
	if err != nil {
		return err
	}
	if d.Equal {
		fmt.Fprintln(c.out, "No differences.")
		return nil
	}
	if *patch {
		fmt.Fprint(c.out, d.Patch)
		return nil
	}
	fmt.Fprintf(c.out, "+%d -%d characters\n", d.Added, d.Removed)
	for _, ch := range d.Changes {
		sign := "+"
		if ch.Type == "removed" {
			sign = "-"
		}
		fmt.Fprintf(c.out, "%s %s\n", sign, strings.TrimSpace(ch.Text))
	}
	return nil
}

func (c *CLI) handleDelete(ctx context.Context, args []string) error {
	fs := c.newFlagSet("delete")
	force := fs.Bool("force", false, "Discard unsaved changes when deleting the open page")
	yes := fs.Bool("yes", false, "Do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("a page id is required")
	}
	id := fs.Arg(0)
	if !*yes {
		ok, err := c.askForConfirmation(fmt.Sprintf("Delete page %s and all its revisions?", id))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(c.out, "Operation cancelled.")
			return nil
		}
	}
	if err := c.sess.Delete(ctx, id, *force); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted page %s.\n", id)
	return nil
}

func (c *CLI) handleOpen(ctx context.Context, args []string) error {
	fs := c.newFlagSet("open")
	force := fs.Bool("force", false, "Discard unsaved changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("a page id is required")
	}
	if err := c.sess.Open(ctx, fs.Arg(0), *force); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Opened %s with %d components.\n", fs.Arg(0), c.sess.Page().Len())
	return nil
}

func (c *CLI) handleSave(ctx context.Context, _ []string) error {
	rev, err := c.sess.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Saved page %s (revision %d).\n", rev.PageID, rev.Number)
	return nil
}

func (c *CLI) handleExit(_ context.Context, args []string) error {
	fs := c.newFlagSet("exit")
	force := fs.Bool("force", false, "Leave even with unsaved changes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.sess.Dirty() && !*force {
		return fmt.Errorf("page %s has unsaved changes; 'save' first or use 'exit -force'", c.sess.Page().PageID())
	}
	return errExit
}

func (c *CLI) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, string(data))
	return nil
}
