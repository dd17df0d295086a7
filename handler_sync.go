package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	syncsvc "dwp/internal/sync"
)

// Shared sync orchestrator over the global db. Rebuilt lazily so tests that
// swap the db get a fresh instance.
var syncOrch *syncsvc.Orchestrator
var syncOrchDB = db

func getSyncOrchestrator() *syncsvc.Orchestrator {
	if syncOrch == nil || syncOrchDB != db {
		syncOrch = syncsvc.New(db)
		syncOrchDB = db
	}
	return syncOrch
}

func syncActor(r *http.Request) syncsvc.Actor {
	userID, _ := r.Context().Value(ctxUserID).(int)
	username, _ := r.Context().Value(ctxUsername).(string)
	role, _ := r.Context().Value(ctxRole).(string)
	if username == "" {
		username = getUsername(r)
	}
	return syncsvc.Actor{ID: strconv.Itoa(userID), Username: username, Role: role}
}

type syncRequest struct {
	Action   string                 `json:"action"`
	EntityID string                 `json:"entityId"`
	Data     map[string]interface{} `json:"data"`
}

func handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeBody(r, &req); err != nil {
		jsonErr(w, "invalid body", 400)
		return
	}

	actor := syncActor(r)
	result, err := getSyncOrchestrator().Run(r.Context(), syncsvc.Action(req.Action),
		syncsvc.Request{EntityID: req.EntityID, Data: req.Data}, actor)
	if err != nil {
		switch {
		case errors.Is(err, syncsvc.ErrInvalidAction):
			jsonErr(w, "Invalid action", 400)
		case errors.Is(err, syncsvc.ErrNotFound):
			jsonErr(w, "Requirement not found", 404)
		case errors.Is(err, syncsvc.ErrAlreadyLinked):
			jsonErr(w, "Already linked to a CRM project", 400)
		default:
			w.WriteHeader(500)
			json.NewEncoder(w).Encode(map[string]string{"error": "Sync failed", "details": err.Error()})
		}
		return
	}

	logAudit(db, actor.Username, AuditActionSync, "sync", req.EntityID, req.Action)
	broadcast("sync", "update", req.Action)
	jsonResp(w, result)
}

func handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	orch := getSyncOrchestrator()
	available, alreadySynced, err := orch.Availability(r.Context())
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	history, err := orch.Events().History(r.Context(), 20)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	jsonResp(w, map[string]interface{}{
		"availableToSync": available,
		"alreadySynced":   alreadySynced,
		"history":         history,
	})
}
