package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-page-builder/internal/model"
	"go-page-builder/pkg/fsutils"
)

const historyDir = ".history"

// JSONStore keeps each page as <id>.json under BasePath and its revisions
// as .history/<id>/<n>.json.
type JSONStore struct {
	// BasePath is the directory holding the page files.
	BasePath string

	mu  sync.Mutex
	now func() time.Time
}

type revisionFile struct {
	Revision model.Revision  `json:"revision"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// NewJSONStore creates a JSONStore rooted at basePath, creating the
// directory if needed.
func NewJSONStore(basePath string) (*JSONStore, error) {
	if err := fsutils.CreateDir(basePath); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", basePath, err)
	}
	return &JSONStore{BasePath: basePath, now: time.Now}, nil
}

// GetBasePath returns the directory the store writes to.
func (js *JSONStore) GetBasePath() string {
	return js.BasePath
}

func (js *JSONStore) pagePath(id string) string {
	return filepath.Join(js.BasePath, id+".json")
}

func (js *JSONStore) revisionDir(id string) string {
	return filepath.Join(js.BasePath, historyDir, id)
}

// Save writes the page file and appends a revision file.
func (js *JSONStore) Save(ctx context.Context, s *model.Snapshot) (model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return model.Revision{}, err
	}
	data, err := encodeSnapshot(s)
	if err != nil {
		return model.Revision{}, err
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	numbers, err := js.revisionNumbers(s.PageID)
	if err != nil {
		return model.Revision{}, err
	}
	next := 1
	if len(numbers) > 0 {
		next = numbers[len(numbers)-1] + 1
	}
	rev := model.Revision{
		PageID:  s.PageID,
		Number:  next,
		Title:   s.Metadata.Title,
		SavedAt: js.now().UTC(),
	}
	revData, err := json.MarshalIndent(revisionFile{Revision: rev, Snapshot: data}, "", "  ")
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to marshal revision %d of page %s: %w", next, s.PageID, err)
	}
	revPath := filepath.Join(js.revisionDir(s.PageID), strconv.Itoa(next)+".json")
	if err := fsutils.WriteFileAtomic(revPath, revData); err != nil {
		return model.Revision{}, fmt.Errorf("failed to write revision file %s: %w", revPath, err)
	}

	pretty, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return model.Revision{}, fmt.Errorf("failed to marshal page %s: %w", s.PageID, err)
	}
	if err := fsutils.WriteFileAtomic(js.pagePath(s.PageID), pretty); err != nil {
		return model.Revision{}, fmt.Errorf("failed to write page file %s: %w", js.pagePath(s.PageID), err)
	}
	return rev, nil
}

// Load reads the page file for pageID.
func (js *JSONStore) Load(ctx context.Context, pageID string) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	js.mu.Lock()
	defer js.mu.Unlock()
	return js.load(pageID)
}

func (js *JSONStore) load(pageID string) (*model.Snapshot, error) {
	data, err := os.ReadFile(js.pagePath(pageID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
		}
		return nil, fmt.Errorf("failed to read page file %s: %w", js.pagePath(pageID), err)
	}
	return decodeSnapshot(pageID, data)
}

// pageIDs scans BasePath for page files.
func (js *JSONStore) pageIDs() ([]string, error) {
	entries, err := os.ReadDir(js.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read storage directory %s: %w", js.BasePath, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if id := strings.TrimSuffix(e.Name(), ".json"); ValidPageID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// List loads every page file and summarizes it.
func (js *JSONStore) List(ctx context.Context) ([]model.PageSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	ids, err := js.pageIDs()
	if err != nil {
		return nil, err
	}
	out := make([]model.PageSummary, 0, len(ids))
	for _, id := range ids {
		s, err := js.load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load page %s during List: %w", id, err)
		}
		numbers, err := js.revisionNumbers(id)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Summarize(s, len(numbers)))
	}
	sortSummaries(out)
	return out, nil
}

// Delete removes the page file and its history.
func (js *JSONStore) Delete(ctx context.Context, pageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkPageID(pageID); err != nil {
		return err
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	if err := os.Remove(js.pagePath(pageID)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
		}
		return fmt.Errorf("failed to delete page file %s: %w", js.pagePath(pageID), err)
	}
	if err := os.RemoveAll(js.revisionDir(pageID)); err != nil {
		return fmt.Errorf("failed to delete history of page %s: %w", pageID, err)
	}
	return nil
}

func (js *JSONStore) revisionNumbers(pageID string) ([]int, error) {
	entries, err := os.ReadDir(js.revisionDir(pageID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history of page %s: %w", pageID, err)
	}
	var numbers []int
	for _, e := range entries {
		n, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil || e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (js *JSONStore) readRevision(pageID string, n int) (*revisionFile, error) {
	path := filepath.Join(js.revisionDir(pageID), strconv.Itoa(n)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("page %s revision %d: %w", pageID, n, ErrRevisionNotFound)
		}
		return nil, fmt.Errorf("failed to read revision file %s: %w", path, err)
	}
	var rf revisionFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal revision file %s: %w", path, err)
	}
	return &rf, nil
}

// ListRevisions reads the revision headers of a page.
func (js *JSONStore) ListRevisions(ctx context.Context, pageID string) ([]model.Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	if !fsutils.FileExists(js.pagePath(pageID)) {
		return nil, fmt.Errorf("page %s: %w", pageID, ErrPageNotFound)
	}
	numbers, err := js.revisionNumbers(pageID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Revision, 0, len(numbers))
	for _, n := range numbers {
		rf, err := js.readRevision(pageID, n)
		if err != nil {
			return nil, err
		}
		out = append(out, rf.Revision)
	}
	return out, nil
}

// LoadRevision reads one revision of a page.
func (js *JSONStore) LoadRevision(ctx context.Context, pageID string, number int) (*model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}
	js.mu.Lock()
	defer js.mu.Unlock()

	rf, err := js.readRevision(pageID, number)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(pageID, rf.Snapshot)
}

// Close is a no-op; the store holds no open resources.
func (js *JSONStore) Close() error { return nil }

func sortSummaries(out []model.PageSummary) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
