// Package sync implements the CRM <-> Doors & Windows module synchronization
// service: resolving unlinked CRM records, transforming them into module
// requirements/contacts, pushing requirements back to the CRM, and recording
// an immutable event trail.
package sync

import (
	"context"
	"database/sql"
	"errors"
)

// Sentinel errors mapped to HTTP statuses at the handler boundary.
var (
	ErrInvalidAction = errors.New("invalid action")
	ErrNotFound      = errors.New("requirement not found")
	ErrAlreadyLinked = errors.New("already linked to a CRM project")
)

// Actor identifies who is running a sync operation. It is passed explicitly
// into every orchestrator call; the sync core never reads request state.
type Actor struct {
	ID       string
	Username string
	Role     string
}

// Action is one of the discrete sync operations.
type Action string

const (
	ActionSyncProjects Action = "sync_projects"
	ActionSyncLeads    Action = "sync_leads"
	ActionSyncContacts Action = "sync_contacts"
	ActionPushToCRM    Action = "push_to_crm"
	ActionStatus       Action = "status"
)

// Request carries the optional per-action inputs from the HTTP body.
type Request struct {
	EntityID string
	Data     map[string]interface{}
}

// RecordError reports a single failed record within a batch.
type RecordError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BatchResults are the per-batch counters returned by the sync_* actions.
type BatchResults struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Errors  []RecordError `json:"errors"`
}

// PushedProject describes the CRM project created by push_to_crm.
type PushedProject struct {
	ID            string `json:"id"`
	ProjectNumber string `json:"project_number"`
}

// Result is the outcome of one orchestrator invocation. Only the fields
// relevant to the executed action are populated.
type Result struct {
	Message  string                 `json:"message"`
	Results  *BatchResults          `json:"results,omitempty"`
	Unsynced int                    `json:"unsynced,omitempty"`
	Project  *PushedProject         `json:"project,omitempty"`
	Status   map[string]interface{} `json:"status,omitempty"`
}

// Orchestrator runs sync actions against the shared database. Each
// invocation is Idle -> Resolving -> Transforming -> Logging -> Idle within
// one request; no state survives between calls.
type Orchestrator struct {
	db     *sql.DB
	events *EventLog
}

// New creates an Orchestrator over db.
func New(db *sql.DB) *Orchestrator {
	return &Orchestrator{db: db, events: NewEventLog(db)}
}

// Events exposes the orchestrator's event log for read-side queries.
func (o *Orchestrator) Events() *EventLog { return o.events }

type actionFunc func(o *Orchestrator, ctx context.Context, req Request, actor Actor) (*Result, error)

// actions is the closed dispatch table; adding a sync kind means adding an
// entry here, not another string comparison.
var actions = map[Action]actionFunc{
	ActionSyncProjects: (*Orchestrator).syncProjects,
	ActionSyncLeads:    (*Orchestrator).syncLeads,
	ActionSyncContacts: (*Orchestrator).syncContacts,
	ActionPushToCRM:    (*Orchestrator).pushToCRM,
	ActionStatus:       (*Orchestrator).statusReport,
}

// Run dispatches a sync action. Unknown actions fail with ErrInvalidAction.
func (o *Orchestrator) Run(ctx context.Context, action Action, req Request, actor Actor) (*Result, error) {
	fn, ok := actions[action]
	if !ok {
		return nil, ErrInvalidAction
	}
	return fn(o, ctx, req, actor)
}
