package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go-page-builder/internal/component"
	"go-page-builder/internal/generator"
	"go-page-builder/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/justinas/nosurf"
	"go.uber.org/zap"
)

// pageState is the editor's view of the session.
type pageState struct {
	Page     *model.Snapshot `json:"page"`
	Dirty    bool            `json:"dirty"`
	Selected string          `json:"selected"`
	Revision *model.Revision `json:"revision,omitempty"`
}

type componentDetail struct {
	Component *component.Component `json:"component"`
	Index     int                  `json:"index"`
	Editable  []component.Editable `json:"editable"`
}

type forceRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"token": nosurf.Token(r)})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, component.Catalog())
}

// --- Page ---

func (s *Server) state() pageState {
	st := pageState{
		Page:     s.session.Page().Snapshot(),
		Dirty:    s.session.Dirty(),
		Selected: s.session.Selection().Reconcile(),
	}
	if rev, ok := s.session.LastRevision(); ok {
		st.Revision = &rev
	}
	return st
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := generator.ToSnapshotJSON(s.session.Page(), true)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleLoadSnapshot replaces the page with an uploaded snapshot. Unsaved
// edits need ?force=true.
func (s *Server) handleLoadSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.Import(data, r.URL.Query().Get("force") == "true"); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	doc, err := s.session.Document()
	if err != nil {
		s.writeErr(w, err)
		return
	}
	outline, err := generator.Inspect(doc.Markup)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outline": outline, "warnings": doc.Warnings})
}

func (s *Server) handleSetMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Author      string `json:"author"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.session.Page().SetMetadata(req.Title, req.Description, req.Author)
	writeJSON(w, http.StatusOK, s.session.Page().Metadata())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		s.session.Selection().Clear()
	} else if !s.session.Selection().Select(req.ID) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("component %s not found", req.ID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": s.session.Selection().Selected()})
}

func (s *Server) handleNewPage(w http.ResponseWriter, r *http.Request) {
	var req forceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.NewPage(req.Force); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Page().Clear()
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	rev, err := s.session.Save(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.ExportDir == "" {
		writeError(w, http.StatusNotFound, "export directory not configured")
		return
	}
	written, err := s.session.Export(s.cfg.ExportDir, s.cfg.AssetsDir)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": written})
}

// --- Components ---

func (s *Server) detail(id string) (componentDetail, bool) {
	c, ok := s.session.Page().Component(id)
	if !ok {
		return componentDetail{}, false
	}
	return componentDetail{
		Component: c,
		Index:     s.session.Page().IndexOf(id),
		Editable:  component.EditableProperties(c),
	}, true
}

func (s *Server) handleListComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Page().Components())
}

// handleAddComponent creates a component of the requested type, appended
// unless a position is given.
func (s *Server) handleAddComponent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string `json:"type"`
		Position *int   `json:"position"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := component.ParseType(req.Type)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	position := -1
	if req.Position != nil {
		position = *req.Position
	}
	c, err := s.session.Page().Insert(t, position)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	d, _ := s.detail(c.ID)
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleGetComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, ok := s.detail(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("component %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch map[string]any
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := s.session.Page().Update(id, patch)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("component %s not found", id))
		return
	}
	d, _ := s.detail(id)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRemoveComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.session.Page().Remove(id) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("component %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveComponent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Index int `json:"index"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.session.Page().IndexOf(id) < 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("component %s not found", id))
		return
	}
	moved := s.session.Page().Move(id, req.Index)
	writeJSON(w, http.StatusOK, map[string]any{
		"moved": moved,
		"index": s.session.Page().IndexOf(id),
	})
}

// --- Stored pages ---

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.session.List(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handleOpenPage(w http.ResponseWriter, r *http.Request) {
	var req forceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.Open(r.Context(), chi.URLParam(r, "pageID"), req.Force); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"
	if err := s.session.Delete(r.Context(), chi.URLParam(r, "pageID"), force); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.session.History(r.Context(), chi.URLParam(r, "pageID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revs)
}

func (s *Server) handleRestoreRevision(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "revision number must be a positive integer")
		return
	}
	var req forceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.Restore(r.Context(), chi.URLParam(r, "pageID"), n, req.Force); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

// handleDiff compares ?from and ?to revisions; 0 or a missing value means
// the page as currently edited.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	from, err1 := revisionParam(r, "from")
	to, err2 := revisionParam(r, "to")
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "from and to must be revision numbers")
		return
	}
	res, err := s.session.Diff(r.Context(), chi.URLParam(r, "pageID"), from, to)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func revisionParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

// --- Preview and export ---

func (s *Server) document(ctx context.Context) (*generator.Document, error) {
	doc, err := s.session.Document()
	if err != nil {
		return nil, err
	}
	for _, warning := range doc.Warnings {
		s.logger.Warn("preview warning", zap.String("warning", warning), zap.String("request_id", requestID(ctx)))
	}
	return doc, nil
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	markup := doc.Markup
	if r.URL.Query().Get("live") != "0" {
		if markup, err = injectLiveReload(doc.Markup); err != nil {
			s.writeErr(w, err)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, markup)
}

func (s *Server) handleExportFile(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	var body, contentType string
	switch chi.URLParam(r, "file") {
	case generator.IndexFile:
		body, contentType = doc.Markup, "text/html; charset=utf-8"
	case generator.StylesFile:
		body, contentType = doc.Styles, "text/css; charset=utf-8"
	case generator.ScriptFile:
		body, contentType = doc.Script, "application/javascript; charset=utf-8"
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	io.WriteString(w, body)
}
