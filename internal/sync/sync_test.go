package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupSyncDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { testDB.Close() })

	schema := []string{
		`CREATE TABLE projects (
			id TEXT PRIMARY KEY, project_number TEXT DEFAULT '', name TEXT NOT NULL,
			description TEXT DEFAULT '', status TEXT DEFAULT 'planning',
			priority TEXT DEFAULT 'medium', client_id TEXT DEFAULT '', lead_id TEXT DEFAULT '',
			client_name TEXT DEFAULT '', client_email TEXT DEFAULT '', client_phone TEXT DEFAULT '',
			site_address TEXT DEFAULT '', address TEXT DEFAULT '',
			budget REAL DEFAULT 0, value REAL DEFAULT 0,
			module_source TEXT DEFAULT '', linked_requirement TEXT DEFAULT '',
			assigned_to TEXT DEFAULT '', created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE leads (
			id TEXT PRIMARY KEY, title TEXT DEFAULT '', name TEXT DEFAULT '',
			contact_name TEXT DEFAULT '', email TEXT DEFAULT '', phone TEXT DEFAULT '',
			mobile TEXT DEFAULT '', address TEXT DEFAULT '', status TEXT DEFAULT 'new',
			priority TEXT DEFAULT 'medium', value REAL DEFAULT 0, budget REAL DEFAULT 0,
			assigned_to TEXT DEFAULT '', created_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE contacts (
			id TEXT PRIMARY KEY, name TEXT NOT NULL, email TEXT DEFAULT '',
			phone TEXT DEFAULT '', mobile TEXT DEFAULT '', company TEXT DEFAULT '',
			designation TEXT DEFAULT '', address TEXT DEFAULT '', type TEXT DEFAULT 'customer',
			tags TEXT DEFAULT '[]', is_active INTEGER DEFAULT 1,
			created_by TEXT DEFAULT '', created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE requirements (
			id TEXT PRIMARY KEY, requirement_number TEXT UNIQUE NOT NULL, title TEXT NOT NULL,
			project_id TEXT DEFAULT '', lead_id TEXT DEFAULT '', account_id TEXT DEFAULT '',
			customer_name TEXT DEFAULT '', customer_email TEXT DEFAULT '',
			customer_phone TEXT DEFAULT '', customer_address TEXT DEFAULT '',
			estimated_budget REAL DEFAULT 0, timeline TEXT DEFAULT 'flexible',
			status TEXT DEFAULT 'new', stage TEXT DEFAULT '', priority TEXT DEFAULT 'medium',
			source TEXT DEFAULT 'manual', synced_from_type TEXT DEFAULT '',
			synced_from_id TEXT DEFAULT '', synced_from_at DATETIME, crm_synced_at DATETIME,
			assigned_to TEXT DEFAULT '', is_active INTEGER DEFAULT 1,
			created_by TEXT DEFAULT '', created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX idx_requirements_synced_from
			ON requirements(synced_from_type, synced_from_id)
			WHERE synced_from_id != ''`,
		`CREATE TABLE requirement_status_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT, requirement_id TEXT NOT NULL,
			status TEXT NOT NULL, notes TEXT DEFAULT '', changed_by TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE dw_contacts (
			id TEXT PRIMARY KEY, crm_contact_id TEXT UNIQUE NOT NULL, name TEXT NOT NULL,
			email TEXT DEFAULT '', phone TEXT DEFAULT '', company TEXT DEFAULT '',
			designation TEXT DEFAULT '', address TEXT DEFAULT '', type TEXT DEFAULT 'customer',
			tags TEXT DEFAULT '[]', last_synced_at DATETIME, is_active INTEGER DEFAULT 1,
			created_by TEXT DEFAULT '', created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE dw_events (
			id TEXT PRIMARY KEY, type TEXT NOT NULL, entity_type TEXT DEFAULT '',
			entity_id TEXT DEFAULT '', data TEXT DEFAULT '{}', user_id TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE sequences (name TEXT PRIMARY KEY, next INTEGER NOT NULL)`,
	}
	for _, stmt := range schema {
		if _, err := testDB.Exec(stmt); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}
	return testDB
}

func insertSyncProject(t *testing.T, db *sql.DB, id, name, status string, budget float64, createdAt string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO projects (id, name, status, budget, created_at)
		VALUES (?, ?, ?, ?, ?)`, id, name, status, budget, createdAt)
	if err != nil {
		t.Fatalf("Failed to insert project: %v", err)
	}
}

func insertSyncLead(t *testing.T, db *sql.DB, id string, cols map[string]interface{}) {
	t.Helper()
	names := []string{"id"}
	vals := []interface{}{id}
	marks := []string{"?"}
	for k, v := range cols {
		names = append(names, k)
		vals = append(vals, v)
		marks = append(marks, "?")
	}
	q := fmt.Sprintf("INSERT INTO leads (%s) VALUES (%s)",
		strings.Join(names, ","), strings.Join(marks, ","))
	if _, err := db.Exec(q, vals...); err != nil {
		t.Fatalf("Failed to insert lead: %v", err)
	}
}

var testActor = Actor{ID: "1", Username: "admin", Role: "admin"}

func TestRunRejectsUnknownAction(t *testing.T) {
	o := New(setupSyncDB(t))
	_, err := o.Run(context.Background(), Action("reticulate_splines"), Request{}, testActor)
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("Expected ErrInvalidAction, got %v", err)
	}
}

func TestSyncProjectsCreatesRequirement(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncProject(t, db, "p1", "Villa Renovation", "planning", 500000, "2026-01-02 10:00:00")

	result, err := o.Run(context.Background(), ActionSyncProjects, Request{}, testActor)
	if err != nil {
		t.Fatalf("sync_projects failed: %v", err)
	}
	if result.Results.Created != 1 {
		t.Fatalf("Expected 1 created, got %d", result.Results.Created)
	}
	if len(result.Results.Errors) != 0 {
		t.Fatalf("Expected no errors, got %v", result.Results.Errors)
	}
	if result.Message != "Synced 1 projects" {
		t.Errorf("Unexpected message: %q", result.Message)
	}

	var num, projectID, status, source, fromType, fromID, timeline string
	var budget float64
	err = db.QueryRow(`SELECT requirement_number, project_id, status, source,
		synced_from_type, synced_from_id, timeline, estimated_budget
		FROM requirements`).
		Scan(&num, &projectID, &status, &source, &fromType, &fromID, &timeline, &budget)
	if err != nil {
		t.Fatalf("Expected one requirement: %v", err)
	}
	year := time.Now().Format("2006")
	if want := "FRQ-" + year + "-00001"; num != want {
		t.Errorf("Expected requirement number %s, got %s", want, num)
	}
	if projectID != "p1" {
		t.Errorf("Expected project_id p1, got %s", projectID)
	}
	if status != "new" || source != "crm_sync" || timeline != "flexible" {
		t.Errorf("Unexpected defaults: status=%s source=%s timeline=%s", status, source, timeline)
	}
	if fromType != "project" || fromID != "p1" {
		t.Errorf("Unexpected provenance: %s/%s", fromType, fromID)
	}
	if budget != 500000 {
		t.Errorf("Expected budget 500000, got %v", budget)
	}

	// Initial status history row written with provenance note
	var note, histStatus string
	err = db.QueryRow("SELECT status, notes FROM requirement_status_history").Scan(&histStatus, &note)
	if err != nil {
		t.Fatalf("Expected status history row: %v", err)
	}
	if histStatus != "new" || note != "Auto-created from CRM Project: Villa Renovation" {
		t.Errorf("Unexpected history entry: %s / %s", histStatus, note)
	}

	// Event recorded with batch counters
	var evType, data string
	err = db.QueryRow("SELECT type, data FROM dw_events").Scan(&evType, &data)
	if err != nil {
		t.Fatalf("Expected one event: %v", err)
	}
	if evType != "sync.projects" {
		t.Errorf("Expected sync.projects event, got %s", evType)
	}
	var payload struct {
		Results BatchResults `json:"results"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("Event data not JSON: %v", err)
	}
	if payload.Results.Created != 1 {
		t.Errorf("Expected event results.created 1, got %d", payload.Results.Created)
	}
}

func TestSyncProjectsIsIdempotent(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncProject(t, db, "p1", "Villa", "planning", 1000, "2026-01-02 10:00:00")

	if _, err := o.Run(context.Background(), ActionSyncProjects, Request{}, testActor); err != nil {
		t.Fatalf("first run: %v", err)
	}
	result, err := o.Run(context.Background(), ActionSyncProjects, Request{}, testActor)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if result.Results.Created != 0 || result.Unsynced != 0 {
		t.Errorf("Expected nothing to sync, got created=%d unsynced=%d",
			result.Results.Created, result.Unsynced)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM requirements").Scan(&count)
	if count != 1 {
		t.Errorf("Expected 1 requirement after two runs, got %d", count)
	}
}

func TestSyncProjectsSkipsTerminalStatuses(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncProject(t, db, "p1", "Done", "completed", 0, "2026-01-01 10:00:00")
	insertSyncProject(t, db, "p2", "Dead", "cancelled", 0, "2026-01-02 10:00:00")
	insertSyncProject(t, db, "p3", "Live", "active", 0, "2026-01-03 10:00:00")

	result, err := o.Run(context.Background(), ActionSyncProjects, Request{}, testActor)
	if err != nil {
		t.Fatalf("sync_projects failed: %v", err)
	}
	if result.Results.Created != 1 {
		t.Fatalf("Expected only the active project synced, got %d", result.Results.Created)
	}
	var fromID string
	db.QueryRow("SELECT synced_from_id FROM requirements").Scan(&fromID)
	if fromID != "p3" {
		t.Errorf("Expected p3 synced, got %s", fromID)
	}
}

func TestSequenceNumbersIncrement(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncProject(t, db, "p1", "First", "planning", 0, "2026-01-01 10:00:00")
	insertSyncProject(t, db, "p2", "Second", "planning", 0, "2026-01-02 10:00:00")

	if _, err := o.Run(context.Background(), ActionSyncProjects, Request{}, testActor); err != nil {
		t.Fatalf("sync_projects failed: %v", err)
	}

	rows, err := db.Query("SELECT requirement_number FROM requirements ORDER BY requirement_number")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var nums []string
	for rows.Next() {
		var n string
		rows.Scan(&n)
		nums = append(nums, n)
	}
	year := time.Now().Format("2006")
	want := []string{"FRQ-" + year + "-00001", "FRQ-" + year + "-00002"}
	if len(nums) != 2 || nums[0] != want[0] || nums[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, nums)
	}
}

func TestDuplicateLinkRejectedByIndex(t *testing.T) {
	db := setupSyncDB(t)

	insert := `INSERT INTO requirements (id, requirement_number, title, synced_from_type, synced_from_id)
		VALUES (?, ?, 'x', ?, ?)`
	if _, err := db.Exec(insert, "r1", "FRQ-2026-00001", "project", "p1"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := db.Exec(insert, "r2", "FRQ-2026-00002", "project", "p1"); err == nil {
		t.Fatal("Expected unique index to reject duplicate source link")
	}
	// Manual requirements carry no source link and are exempt
	if _, err := db.Exec(insert, "r3", "FRQ-2026-00003", "", ""); err != nil {
		t.Fatalf("manual insert: %v", err)
	}
	if _, err := db.Exec(insert, "r4", "FRQ-2026-00004", "", ""); err != nil {
		t.Fatalf("second manual insert: %v", err)
	}
}

func TestSyncProjectsContinuesPastFailingRecord(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncProject(t, db, "p1", "Villa", "planning", 100, "2026-01-01 10:00:00")
	insertSyncProject(t, db, "p2", "Office", "planning", 200, "2026-01-02 10:00:00")
	insertSyncProject(t, db, "p3", "Warehouse", "planning", 300, "2026-01-03 10:00:00")

	// Make the middle record's insert fail so the batch has to recover.
	_, err := db.Exec(`CREATE TRIGGER reject_p2 BEFORE INSERT ON requirements
		WHEN NEW.synced_from_id = 'p2'
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	result, err := o.Run(context.Background(), ActionSyncProjects, Request{}, testActor)
	if err != nil {
		t.Fatalf("sync_projects failed: %v", err)
	}
	if result.Results.Created != 2 {
		t.Errorf("Expected 2 created, got %d", result.Results.Created)
	}
	if len(result.Results.Errors) != 1 {
		t.Fatalf("Expected 1 record error, got %v", result.Results.Errors)
	}
	if result.Results.Errors[0].ID != "p2" {
		t.Errorf("Expected error keyed by p2, got %q", result.Results.Errors[0].ID)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM requirements").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 requirements persisted, got %d", count)
	}
	var p2Linked int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM requirements WHERE synced_from_id = 'p2'").Scan(&p2Linked); err != nil {
		t.Fatal(err)
	}
	if p2Linked != 0 {
		t.Error("Expected the failed record's transaction to roll back")
	}
}

func TestSyncLeadsFieldFallbacks(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncLead(t, db, "l1", map[string]interface{}{
		"contact_name": "Ravi Kumar",
		"mobile":       "9876543210",
		"budget":       75000.0,
		"status":       "qualified",
		"created_at":   "2026-01-05 09:00:00",
	})

	result, err := o.Run(context.Background(), ActionSyncLeads, Request{}, testActor)
	if err != nil {
		t.Fatalf("sync_leads failed: %v", err)
	}
	if result.Results.Created != 1 {
		t.Fatalf("Expected 1 created, got %d", result.Results.Created)
	}

	var title, custName, custPhone, leadID, fromType string
	var budget float64
	err = db.QueryRow(`SELECT title, customer_name, customer_phone, lead_id,
		synced_from_type, estimated_budget FROM requirements`).
		Scan(&title, &custName, &custPhone, &leadID, &fromType, &budget)
	if err != nil {
		t.Fatalf("Expected one requirement: %v", err)
	}
	if custName != "Ravi Kumar" {
		t.Errorf("Expected contact_name fallback, got %q", custName)
	}
	if custPhone != "9876543210" {
		t.Errorf("Expected mobile fallback, got %q", custPhone)
	}
	if budget != 75000 {
		t.Errorf("Expected budget fallback 75000, got %v", budget)
	}
	if leadID != "l1" || fromType != "lead" {
		t.Errorf("Unexpected provenance: lead_id=%s type=%s", leadID, fromType)
	}
	if title != "Lead - " {
		// title falls back to "Lead - <name>"; name is empty here
		t.Errorf("Unexpected title: %q", title)
	}
}

func TestSyncLeadsSkipsConvertedAndLost(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncLead(t, db, "l1", map[string]interface{}{"name": "A", "status": "converted"})
	insertSyncLead(t, db, "l2", map[string]interface{}{"name": "B", "status": "lost"})
	insertSyncLead(t, db, "l3", map[string]interface{}{"name": "C", "status": "new"})

	result, err := o.Run(context.Background(), ActionSyncLeads, Request{}, testActor)
	if err != nil {
		t.Fatalf("sync_leads failed: %v", err)
	}
	if result.Results.Created != 1 {
		t.Errorf("Expected 1 created, got %d", result.Results.Created)
	}
}

func TestSyncContactsCreateThenUpdate(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	if _, err := db.Exec(`INSERT INTO contacts (id, name, email, mobile, is_active)
		VALUES ('c1', 'Asha', 'asha@example.com', '5550001', 1)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO contacts (id, name, is_active) VALUES ('c2', 'Inactive', 0)`); err != nil {
		t.Fatal(err)
	}

	result, err := o.Run(context.Background(), ActionSyncContacts, Request{}, testActor)
	if err != nil {
		t.Fatalf("sync_contacts failed: %v", err)
	}
	if result.Results.Created != 1 || result.Results.Updated != 0 {
		t.Fatalf("Expected 1 created, got created=%d updated=%d",
			result.Results.Created, result.Results.Updated)
	}

	var phone string
	db.QueryRow("SELECT phone FROM dw_contacts WHERE crm_contact_id='c1'").Scan(&phone)
	if phone != "5550001" {
		t.Errorf("Expected mobile fallback into phone, got %q", phone)
	}

	// Source changed; re-run refreshes the copy instead of duplicating it
	db.Exec("UPDATE contacts SET phone='5559999' WHERE id='c1'")
	result, err = o.Run(context.Background(), ActionSyncContacts, Request{}, testActor)
	if err != nil {
		t.Fatalf("second sync_contacts failed: %v", err)
	}
	if result.Results.Created != 0 || result.Results.Updated != 1 {
		t.Fatalf("Expected 1 updated, got created=%d updated=%d",
			result.Results.Created, result.Results.Updated)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM dw_contacts").Scan(&count)
	if count != 1 {
		t.Errorf("Expected 1 module contact, got %d", count)
	}
	db.QueryRow("SELECT phone FROM dw_contacts WHERE crm_contact_id='c1'").Scan(&phone)
	if phone != "5559999" {
		t.Errorf("Expected refreshed phone, got %q", phone)
	}
}

func TestPushToCRM(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	_, err := db.Exec(`INSERT INTO requirements
		(id, requirement_number, title, customer_name, estimated_budget, priority)
		VALUES ('r1', 'FRQ-2026-00001', 'Sliding Doors', 'Asha', 120000, 'high')`)
	if err != nil {
		t.Fatal(err)
	}

	result, err := o.Run(context.Background(), ActionPushToCRM, Request{EntityID: "r1"}, testActor)
	if err != nil {
		t.Fatalf("push_to_crm failed: %v", err)
	}
	if result.Project == nil {
		t.Fatal("Expected pushed project info")
	}
	year := time.Now().Format("2006")
	if want := "PRJ-" + year + "-00001"; result.Project.ProjectNumber != want {
		t.Errorf("Expected project number %s, got %s", want, result.Project.ProjectNumber)
	}

	var name, moduleSource, linked string
	var budget float64
	err = db.QueryRow(`SELECT name, module_source, linked_requirement, budget FROM projects`).
		Scan(&name, &moduleSource, &linked, &budget)
	if err != nil {
		t.Fatalf("Expected one project: %v", err)
	}
	if name != "Sliding Doors" || moduleSource != "doors_windows" || linked != "r1" || budget != 120000 {
		t.Errorf("Unexpected project: name=%s source=%s linked=%s budget=%v",
			name, moduleSource, linked, budget)
	}

	var projectID string
	var crmSyncedAt sql.NullString
	db.QueryRow("SELECT project_id, crm_synced_at FROM requirements WHERE id='r1'").
		Scan(&projectID, &crmSyncedAt)
	if projectID != result.Project.ID {
		t.Errorf("Requirement not linked back: %s != %s", projectID, result.Project.ID)
	}
	if !crmSyncedAt.Valid || crmSyncedAt.String == "" {
		t.Error("Expected crm_synced_at to be set")
	}

	// Repeat push is rejected
	_, err = o.Run(context.Background(), ActionPushToCRM, Request{EntityID: "r1"}, testActor)
	if !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("Expected ErrAlreadyLinked, got %v", err)
	}
}

func TestPushToCRMUnknownRequirement(t *testing.T) {
	o := New(setupSyncDB(t))
	_, err := o.Run(context.Background(), ActionPushToCRM, Request{EntityID: "nope"}, testActor)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestAvailabilitySubtractsLinkedRecords(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncProject(t, db, "p1", "Linked", "planning", 0, "2026-01-01 10:00:00")
	insertSyncProject(t, db, "p2", "Open", "planning", 0, "2026-01-02 10:00:00")
	insertSyncProject(t, db, "p3", "Done", "completed", 0, "2026-01-03 10:00:00")
	insertSyncLead(t, db, "l1", map[string]interface{}{"name": "L", "status": "new"})
	_, err := db.Exec(`INSERT INTO requirements (id, requirement_number, title, source,
		synced_from_type, synced_from_id) VALUES ('r1', 'FRQ-2026-00001', 'x', 'crm_sync', 'project', 'p1')`)
	if err != nil {
		t.Fatal(err)
	}

	available, alreadySynced, err := o.Availability(context.Background())
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if available["projects"] != 1 {
		t.Errorf("Expected 1 available project (eligible and unlinked), got %d", available["projects"])
	}
	if available["leads"] != 1 {
		t.Errorf("Expected 1 available lead, got %d", available["leads"])
	}
	if alreadySynced != 1 {
		t.Errorf("Expected 1 already synced, got %d", alreadySynced)
	}
}

func TestStatusReportAction(t *testing.T) {
	db := setupSyncDB(t)
	o := New(db)
	insertSyncProject(t, db, "p1", "Villa", "planning", 0, "2026-01-01 10:00:00")
	if _, err := o.Run(context.Background(), ActionSyncProjects, Request{}, testActor); err != nil {
		t.Fatal(err)
	}

	result, err := o.Run(context.Background(), ActionStatus, Request{}, testActor)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if result.Status == nil {
		t.Fatal("Expected status payload")
	}
	dw, ok := result.Status["doorsWindows"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected doorsWindows block, got %T", result.Status["doorsWindows"])
	}
	if dw["syncedRequirements"] != 1 {
		t.Errorf("Expected 1 synced requirement, got %v", dw["syncedRequirements"])
	}
	if result.Status["lastSync"] == nil {
		t.Error("Expected lastSync after a batch run")
	}
}

func TestEventHistoryNewestFirst(t *testing.T) {
	db := setupSyncDB(t)
	events := NewEventLog(db)
	for i := 0; i < 3; i++ {
		_, err := db.Exec(`INSERT INTO dw_events (id, type, data, created_at)
			VALUES (?, 'sync.projects', '{}', ?)`,
			fmt.Sprintf("e%d", i), fmt.Sprintf("2026-01-0%d 10:00:00", i+1))
		if err != nil {
			t.Fatal(err)
		}
	}

	history, err := events.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected limit of 2, got %d", len(history))
	}
	if history[0].ID != "e2" || history[1].ID != "e1" {
		t.Errorf("Expected newest first, got %s, %s", history[0].ID, history[1].ID)
	}

	last, err := events.LastSync(context.Background())
	if err != nil {
		t.Fatalf("LastSync failed: %v", err)
	}
	if last == nil || last.ID != "e2" {
		t.Errorf("Expected e2 as last sync, got %+v", last)
	}
}

func TestEventHistoryListsBatchSyncsOnly(t *testing.T) {
	db := setupSyncDB(t)
	events := NewEventLog(db)
	rows := []struct{ id, typ string }{
		{"e1", "sync.projects"},
		{"e2", "requirement.pushed_to_crm"},
		{"e3", "sync.contacts"},
	}
	for i, r := range rows {
		_, err := db.Exec(`INSERT INTO dw_events (id, type, data, created_at)
			VALUES (?, ?, '{}', ?)`,
			r.id, r.typ, fmt.Sprintf("2026-02-0%d 10:00:00", i+1))
		if err != nil {
			t.Fatal(err)
		}
	}

	history, err := events.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 batch events, got %d", len(history))
	}
	if history[0].ID != "e3" || history[1].ID != "e1" {
		t.Errorf("Expected e3, e1; got %s, %s", history[0].ID, history[1].ID)
	}
}
