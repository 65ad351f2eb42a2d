package generator

import (
	"fmt"
	"path/filepath"

	"go-page-builder/pkg/fsutils"
)

// Exported file names inside an export directory.
const (
	IndexFile  = "index.html"
	StylesFile = "styles.css"
	ScriptFile = "script.js"
	AssetsDir  = "assets"
)

// Export writes doc into dir as index.html (self-contained), styles.css and
// script.js. When assetsDir is set and exists it is copied to dir/assets.
// It returns the paths written.
func Export(doc *Document, dir, assetsDir string) ([]string, error) {
	if doc == nil {
		return nil, fmt.Errorf("nothing to export")
	}
	if err := fsutils.CreateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}

	files := []struct {
		name    string
		content string
	}{
		{IndexFile, doc.Markup},
		{StylesFile, doc.Styles},
		{ScriptFile, doc.Script},
	}
	written := make([]string, 0, len(files)+1)
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := fsutils.WriteToFile(path, []byte(f.content)); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}

	if assetsDir != "" && fsutils.DirExists(assetsDir) {
		dst := filepath.Join(dir, AssetsDir)
		if err := fsutils.CopyDir(assetsDir, dst); err != nil {
			return written, fmt.Errorf("failed to copy assets: %w", err)
		}
		written = append(written, dst)
	}
	return written, nil
}
