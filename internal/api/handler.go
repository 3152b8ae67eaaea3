package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/gonkalabs/codeblur/internal/classify"
	"github.com/gonkalabs/codeblur/internal/fingerprint"
	"github.com/gonkalabs/codeblur/internal/reveal"
	"github.com/gonkalabs/codeblur/internal/session"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 8 << 20

// entry serializes access to one session.
type entry struct {
	mu   sync.Mutex
	s    *session.Session
	used time.Time
}

// Handler implements all HTTP endpoints.
type Handler struct {
	base session.Config
	ttl  time.Duration

	mu       sync.RWMutex
	sessions map[string]*entry

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a Handler. New sessions start from base. When ttl > 0,
// sessions idle for longer than ttl are dropped by a background sweeper
// that runs until Close.
func New(base session.Config, ttl time.Duration) *Handler {
	h := &Handler{
		base:     base,
		ttl:      ttl,
		sessions: make(map[string]*entry),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go h.sweep()
	} else {
		close(h.done)
	}
	return h
}

// Close stops the sweeper.
func (h *Handler) Close() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// Register mounts routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /v1/sanitize", h.sanitize)
	mux.HandleFunc("POST /v1/scan", h.scan)

	mux.HandleFunc("POST /v1/sessions", h.createSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.deleteSession)
	mux.HandleFunc("GET /v1/sessions/{id}/state", h.withSession(h.getState))
	mux.HandleFunc("PUT /v1/sessions/{id}/state", h.withSession(h.putState))
	mux.HandleFunc("GET /v1/sessions/{id}/mappings", h.withSession(h.mappings))
	mux.HandleFunc("POST /v1/sessions/{id}/apply", h.withSession(h.apply))
	mux.HandleFunc("POST /v1/sessions/{id}/reveal", h.withSession(h.revealText))
	mux.HandleFunc("POST /v1/sessions/{id}/reveal/stream", h.withSession(h.revealStream))
	mux.HandleFunc("POST /v1/sessions/{id}/strings", h.withSession(h.stringsOnly))
	mux.HandleFunc("POST /v1/sessions/{id}/paste", h.withSession(h.paste))
	mux.HandleFunc("POST /v1/sessions/{id}/pin", h.withSession(h.pin))
	mux.HandleFunc("POST /v1/sessions/{id}/percent", h.withSession(h.percent))
	mux.HandleFunc("POST /v1/sessions/{id}/clear", h.withSession(h.clear))
	mux.HandleFunc("POST /v1/sessions/{id}/undo", h.withSession(h.undo))
}

// ---------- sessions ----------

type createRequest struct {
	Style           string `json:"style"`
	NumberThreshold *int   `json:"number_threshold"`
	FullStrings     *bool  `json:"full_strings"`
}

type sessionInfo struct {
	ID        string `json:"id"`
	Style     string `json:"style"`
	NextLevel string `json:"next_level"`
	Mappings  int    `json:"mappings"`
	UndoDepth int    `json:"undo_depth"`
}

func info(id string, s *session.Session) sessionInfo {
	return sessionInfo{
		ID:        id,
		Style:     s.Style(),
		NextLevel: s.NextLevel(),
		Mappings:  s.Registry().Len(),
		UndoDepth: s.UndoDepth(),
	}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &req) {
			return
		}
	}

	s := session.New(h.base)
	if req.Style != "" {
		if err := s.SetStyle(req.Style); err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	opts := s.Options()
	if req.NumberThreshold != nil {
		opts.NumberThreshold = *req.NumberThreshold
	}
	if req.FullStrings != nil {
		opts.FullStringObfuscation = *req.FullStrings
	}
	s.SetOptions(opts)

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = &entry{s: s, used: time.Now()}
	n := len(h.sessions)
	h.mu.Unlock()

	slog.Info("api: session created", "id", id, "style", s.Style(), "sessions", n)
	writeJSON(w, http.StatusCreated, info(id, s))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.mu.Lock()
	_, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, id string, s *session.Session)

// withSession resolves the {id} path value and holds the session lock for
// the duration of fn.
func (h *Handler) withSession(fn sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		h.mu.RLock()
		e, ok := h.sessions[id]
		h.mu.RUnlock()
		if !ok {
			writeErr(w, http.StatusNotFound, "unknown session")
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		e.used = time.Now()
		fn(w, r, id, e.s)
	}
}

func (h *Handler) sweep() {
	defer close(h.done)
	t := time.NewTicker(h.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-h.stop:
			return
		case now := <-t.C:
			h.expire(now)
		}
	}
}

// expire drops sessions idle since before now-ttl.
func (h *Handler) expire(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, e := range h.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.used) > h.ttl {
			delete(h.sessions, id)
			n++
		}
		e.mu.Unlock()
	}
	if n > 0 {
		slog.Info("api: expired idle sessions", "count", n, "remaining", len(h.sessions))
	}
	return n
}

// ---------- endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type textRequest struct {
	Text  string `json:"text"`
	Level string `json:"level,omitempty"`
	All   bool   `json:"all,omitempty"`
	Word  string `json:"word,omitempty"`
}

type textResponse struct {
	Text      string `json:"text"`
	Level     string `json:"level,omitempty"`
	NextLevel string `json:"next_level"`
	Percent   int    `json:"percent"`
	Mappings  int    `json:"mappings"`
}

func respond(w http.ResponseWriter, s *session.Session, text, level string) {
	writeJSON(w, http.StatusOK, textResponse{
		Text:      text,
		Level:     level,
		NextLevel: s.NextLevel(),
		Percent:   s.Percent(text),
		Mappings:  s.Registry().Len(),
	})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, id string, s *session.Session) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	var (
		out, level string
		err        error
	)
	if req.Level == "" {
		out, level, err = s.ApplyNext(req.Text)
	} else {
		level = req.Level
		out, err = s.Apply(level, req.Text)
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, session.ErrUnknownLevel) {
			status = http.StatusBadRequest
		}
		slog.Warn("api: apply failed", "id", id, "level", level, "err", err)
		writeErr(w, status, err.Error())
		return
	}
	respond(w, s, out, level)
}

func (h *Handler) revealText(w http.ResponseWriter, r *http.Request, id string, s *session.Session) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if req.All {
		res, err := s.RevealAll(req.Text)
		if err != nil {
			writeErr(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	out, err := s.Reveal(req.Text)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respond(w, s, out, "")
}

// revealStream reveals a raw text body as it arrives and flushes each
// revealed chunk to the client.
func (h *Handler) revealStream(w http.ResponseWriter, r *http.Request, id string, s *session.Session) {
	defer r.Body.Close()
	src := reveal.NewReader(http.MaxBytesReader(w, r.Body, MaxBodyBytes), s.Registry())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, ok := w.(http.Flusher)
	if !ok {
		slog.Warn("response writer does not support flushing")
	}

	buf := make([]byte, 4096)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				slog.Error("api: client write error", "id", id, "err", writeErr)
				return
			}
			if ok {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				slog.Error("api: reveal stream read error", "id", id, "err", readErr)
			}
			return
		}
	}
}

func (h *Handler) stringsOnly(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, s, s.StringsOnly(req.Text), "")
}

func (h *Handler) paste(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.Paste(req.Text)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respond(w, s, out, "")
}

func (h *Handler) pin(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := s.Pin(req.Text, req.Word)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, session.ErrNotIdentifier) {
			status = http.StatusBadRequest
		}
		writeErr(w, status, err.Error())
		return
	}
	respond(w, s, out, "")
}

func (h *Handler) percent(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"percent": s.Percent(req.Text)})
}

func (h *Handler) clear(w http.ResponseWriter, _ *http.Request, id string, s *session.Session) {
	s.Clear()
	writeJSON(w, http.StatusOK, info(id, s))
}

func (h *Handler) undo(w http.ResponseWriter, _ *http.Request, _ string, s *session.Session) {
	text, err := s.Undo()
	if errors.Is(err, session.ErrNothingToUndo) {
		writeErr(w, http.StatusConflict, err.Error())
		return
	}
	respond(w, s, text, "")
}

func (h *Handler) mappings(w http.ResponseWriter, _ *http.Request, _ string, s *session.Session) {
	writeJSON(w, http.StatusOK, s.Registry().Entries())
}

// getState returns the persistence record. The ETag is the xxhash of the
// encoded record, so polling clients get 304 until something changes.
func (h *Handler) getState(w http.ResponseWriter, r *http.Request, _ string, s *session.Session) {
	body, err := json.Marshal(s)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(body))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// putState replaces the session state with a record. Malformed records
// leave an empty session rather than failing.
func (h *Handler) putState(w http.ResponseWriter, r *http.Request, id string, s *session.Session) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	s.Load(body)
	writeJSON(w, http.StatusOK, info(id, s))
}

type sanitizeRequest struct {
	Text   string `json:"text"`
	Report bool   `json:"report"`
}

type sanitizeResponse struct {
	Text   string              `json:"text"`
	Stats  fingerprint.Stats   `json:"stats"`
	Report *fingerprint.Report `json:"report,omitempty"`
}

func (h *Handler) sanitize(w http.ResponseWriter, r *http.Request) {
	var req sanitizeRequest
	if !decode(w, r, &req) {
		return
	}
	resp := sanitizeResponse{}
	if req.Report {
		rep := fingerprint.Analyze(req.Text)
		resp.Report = &rep
	}
	resp.Text, resp.Stats = fingerprint.Sanitize(req.Text, fingerprint.DefaultOptions())
	writeJSON(w, http.StatusOK, resp)
}

type spanJSON struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Detector string `json:"detector"`
	Category string `json:"category,omitempty"`
	Text     string `json:"text"`
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	spans, err := classify.Scan(req.Text)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out := make([]spanJSON, 0, len(spans))
	for _, sp := range spans {
		out = append(out, spanJSON{
			Start:    sp.Start,
			End:      sp.End,
			Detector: sp.Detector,
			Category: string(sp.Category),
			Text:     sp.Text,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ---------- helpers ----------

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
