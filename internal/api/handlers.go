package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
)

const defaultListLimit = 100

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultListLimit
	}
	return n
}

// handleHealth returns service health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"bus_running": s.orch.Running(),
		"queue_len":   s.orch.QueueLen(),
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

// handleActivity returns recent activity log entries, oldest first.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	entries := s.orch.ActivityLog(limitParam(r))
	respondJSON(w, http.StatusOK, map[string]any{
		"activity": entries,
		"count":    len(entries),
	})
}

// handleMessages returns the router's recent message log.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs := s.msgRouter.MessageLog(limitParam(r))
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"count":    len(msgs),
	})
}

// handleCoordinatorReports returns status reports collected by the coordinator.
func (s *Server) handleCoordinatorReports(w http.ResponseWriter, r *http.Request) {
	reports := s.msgRouter.Coordinator().Reports(limitParam(r))
	respondJSON(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// handleSwarms lists registered swarm invokers and active gateways.
func (s *Server) handleSwarms(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"swarms":   s.registry.List(),
		"gateways": s.msgRouter.Gateways(),
	})
}

// handleResults returns stored consensus results, newest first.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.Recent(r.Context(), r.URL.Query().Get("case_id"), limitParam(r))
	if err != nil {
		s.logger.Error("listing results failed", "error", err)
		respondError(w, statusForError(err), "listing results failed")
		return
	}
	if results == nil {
		results = []*core.ConsensusResult{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

type publishEventRequest struct {
	Type    string         `json:"event_type"`
	CaseID  string         `json:"case_id"`
	Source  string         `json:"source"`
	Payload map[string]any `json:"payload"`
}

// handlePublishEvent validates and enqueues a system event.
func (s *Server) handlePublishEvent(w http.ResponseWriter, r *http.Request) {
	var req publishEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	eventType := core.EventType(req.Type)
	if !eventType.Valid() {
		respondError(w, http.StatusUnprocessableEntity, "unknown event type: "+req.Type)
		return
	}
	if req.CaseID == "" {
		respondError(w, http.StatusUnprocessableEntity, "case_id is required")
		return
	}
	if req.Source == "" {
		req.Source = "api"
	}

	ev := core.NewSystemEvent(eventType, req.CaseID, req.Source, req.Payload)
	s.orch.Publish(ev)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"event_id": ev.ID,
		"queued":   true,
	})
}

type pipelineRunRequest struct {
	CaseID  string         `json:"case_id"`
	Payload map[string]any `json:"payload"`
}

// handlePipelineRun triggers a full pipeline run. The trigger is published
// as a batch-ingestion event so the run executes on the bus consumer, in
// FIFO order with event-triggered runs, and is joined on shutdown.
func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	var req pipelineRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CaseID == "" {
		respondError(w, http.StatusUnprocessableEntity, "case_id is required")
		return
	}

	ev := core.NewSystemEvent(core.EventBatchIngestionComplete, req.CaseID, "api", req.Payload)
	s.orch.Publish(ev)

	respondJSON(w, http.StatusAccepted, map[string]any{
		"case_id":    req.CaseID,
		"trigger_id": ev.ID,
		"queued":     true,
	})
}
