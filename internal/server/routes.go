package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"anima/internal/entity"
)

func (s *Server) handleBoot(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "full"
	}
	task := r.URL.Query().Get("task")

	text, err := s.engine.Boot(mode, task)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"context": text})
}

func (s *Server) handleTrackTool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string  `json:"name"`
		Cost float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if err := s.engine.TrackTool(req.Name, req.Cost); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrackPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string  `json:"name"`
		Cost float64 `json:"cost"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if err := s.engine.TrackPrompt(req.Name, req.Cost); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrackFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}
	if err := s.engine.RecordFileChange(req.Path); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	pulse, err := s.engine.Heartbeat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pulse": pulse})
}

func (s *Server) handleAckReflex(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.AckReflex(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- entities ---

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	typ := entity.Type(r.URL.Query().Get("type"))
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": s.engine.Entities.List(typ),
	})
}

func (s *Server) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string            `json:"name"`
		Type      string            `json:"type"`
		Attrs     map[string]string `json:"attrs"`
		Relations []string          `json:"relations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	e, err := s.engine.Entities.Add(req.Name, entity.Type(req.Type), req.Attrs, req.Relations)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	e := s.engine.Entities.Query(name)
	if e == nil {
		writeError(w, http.StatusNotFound, "no entity named "+name)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRemoveEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.engine.Entities.Remove(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleLinkEntity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req struct {
		Relation  string `json:"relation"`
		Sentiment string `json:"sentiment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Relation != "" {
		if err := s.engine.Entities.Link(name, req.Relation); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}
	if req.Sentiment != "" {
		if err := s.engine.Entities.SetSentiment(name, req.Sentiment); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- genome ---

func (s *Server) handleGenomeStatus(w http.ResponseWriter, r *http.Request) {
	devs, err := s.engine.Genome.Verify()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	type devJSON struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	out := make([]devJSON, 0, len(devs))
	for _, d := range devs {
		out = append(out, devJSON{d.Name, d.Kind})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clean":      len(out) == 0,
		"deviations": out,
	})
}

func (s *Server) handleGenomeAccept(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Genome.AcceptBaseline(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "baseline accepted"})
}

func (s *Server) handleGenomeRestore(w http.ResponseWriter, r *http.Request) {
	restored, err := s.engine.Genome.Restore()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"restored": restored})
}

// --- evolution ---

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	snap, err := s.evolve.Analyze()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	res, err := s.evolve.Trigger()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- stash ---

func (s *Server) handleStashList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.stash.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (s *Server) handleStashGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, ok, err := s.stash.Get(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no stash key "+key)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (s *Server) handleStashSet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.stash.Set(key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStashDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.stash.Delete(key); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
