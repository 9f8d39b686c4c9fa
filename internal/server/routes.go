package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hobbotdev/hobbot/internal/engine"
	"github.com/hobbotdev/hobbot/internal/store"
)

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Digest  string   `json:"digest"`
		Author  string   `json:"author"`
		Submolt string   `json:"submolt"`
		Topics  []string `json:"topics"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	block := s.engine.BuildContext(req.Digest, req.Author, req.Submolt, req.Topics)

	w.Header().Set("Content-Type", "application/json")
	if block == "" {
		json.NewEncoder(w).Encode(map[string]any{"context": nil})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"context": block})
}

func (s *Server) handleKnowledge(w http.ResponseWriter, r *http.Request) {
	ktype := r.URL.Query().Get("type")
	if !store.ValidKnowledgeType(ktype) {
		http.Error(w, `{"error":"unknown knowledge type"}`, http.StatusBadRequest)
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	recs, err := s.db.GetKnowledgeByType(store.KnowledgeType(ktype), store.DefaultMinConfidence, limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type entry struct {
		Key           string  `json:"key"`
		Content       string  `json:"content"`
		Confidence    float64 `json:"confidence"`
		EvidenceCount int     `json:"evidence_count"`
	}
	out := make([]entry, 0, len(recs))
	for _, rec := range recs {
		out = append(out, entry{rec.Key, rec.Content, rec.Confidence, rec.EvidenceCount})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"type": ktype, "records": out})
}

func (s *Server) handleReflections(w http.ResponseWriter, r *http.Request) {
	limit := 4
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	refs, err := s.db.GetRecentReflections(limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"reflections": refs})
}

func (s *Server) handleCycleStart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.cycle = engine.NewCycleEvents()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

func (s *Server) handleCycleCounter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Counter string `json:"counter"`
		Delta   int    `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		req.Delta = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycle == nil {
		http.Error(w, `{"error":"no cycle in progress"}`, http.StatusConflict)
		return
	}

	switch req.Counter {
	case "discovered":
		s.cycle.PostsDiscovered += req.Delta
	case "engaged":
		s.cycle.PostsEngaged += req.Delta
	case "cataloged":
		s.cycle.PostsCataloged += req.Delta
	case "failed":
		s.cycle.PostsFailed += req.Delta
	case "replies":
		s.cycle.RepliesSent += req.Delta
	default:
		http.Error(w, `{"error":"unknown counter"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleCycleNotable(w http.ResponseWriter, r *http.Request) {
	var n engine.NotableInteraction
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycle == nil {
		http.Error(w, `{"error":"no cycle in progress"}`, http.StatusConflict)
		return
	}
	s.cycle.RecordNotable(n)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleCycleComplete snapshots the collector, clears it, and runs the
// reflection pipeline. A synthesis failure surfaces as 502 — the caller must
// not mistake a skipped reflection for a successful one.
func (s *Server) handleCycleComplete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.cycle == nil {
		s.mu.Unlock()
		http.Error(w, `{"error":"no cycle in progress"}`, http.StatusConflict)
		return
	}
	events := s.cycle.Snapshot()
	s.cycle = nil
	s.mu.Unlock()

	ref, err := s.engine.Reflect(r.Context(), events)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":           "reflected",
		"learning_summary": ref.LearningSummary,
		"estimated_cost":   ref.EstimatedCost,
	})
}
