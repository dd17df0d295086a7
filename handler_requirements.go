package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	syncsvc "dwp/internal/sync"
)

// productionStages is the fabrication pipeline, in order. A requirement
// advances one stage at a time.
var productionStages = []string{"cutting", "machining", "assembly", "glazing", "qc", "packing", "ready"}

func stageIndex(stage string) int {
	for i, s := range productionStages {
		if s == stage {
			return i
		}
	}
	return -1
}

const requirementCols = `id,requirement_number,title,COALESCE(project_id,''),COALESCE(lead_id,''),
	COALESCE(account_id,''),COALESCE(customer_name,''),COALESCE(customer_email,''),
	COALESCE(customer_phone,''),COALESCE(customer_address,''),COALESCE(estimated_budget,0),
	COALESCE(timeline,''),status,COALESCE(stage,''),COALESCE(priority,''),COALESCE(source,''),
	COALESCE(synced_from_type,''),COALESCE(synced_from_id,''),COALESCE(synced_from_at,''),
	COALESCE(crm_synced_at,''),COALESCE(assigned_to,''),is_active,
	COALESCE(created_by,''),created_at,updated_at`

func scanRequirement(row interface{ Scan(...interface{}) error }) (Requirement, error) {
	var q Requirement
	err := row.Scan(&q.ID, &q.RequirementNumber, &q.Title, &q.ProjectID, &q.LeadID,
		&q.AccountID, &q.CustomerName, &q.CustomerEmail, &q.CustomerPhone,
		&q.CustomerAddress, &q.EstimatedBudget, &q.Timeline, &q.Status, &q.Stage,
		&q.Priority, &q.Source, &q.SyncedFromType, &q.SyncedFromID, &q.SyncedFromAt,
		&q.CRMSyncedAt, &q.AssignedTo, &q.IsActive, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func loadStatusHistory(id string) ([]StatusHistoryEntry, error) {
	rows, err := db.Query(`SELECT id,requirement_id,status,COALESCE(notes,''),
		COALESCE(changed_by,''),created_at
		FROM requirement_status_history WHERE requirement_id=? ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []StatusHistoryEntry{}
	for rows.Next() {
		var e StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.RequirementID, &e.Status, &e.Notes, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func handleListRequirements(w http.ResponseWriter, r *http.Request) {
	var conditions []string
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, status)
	}
	if stage := r.URL.Query().Get("stage"); stage != "" {
		conditions = append(conditions, "stage = ?")
		args = append(args, stage)
	}
	if source := r.URL.Query().Get("source"); source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, source)
	}
	query := "SELECT " + requirementCols + " FROM requirements"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Requirement{}
	for rows.Next() {
		q, err := scanRequirement(rows)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		items = append(items, q)
	}
	jsonResp(w, items)
}

func handleGetRequirement(w http.ResponseWriter, r *http.Request, id string) {
	q, err := scanRequirement(db.QueryRow("SELECT "+requirementCols+" FROM requirements WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	q.StatusHistory, err = loadStatusHistory(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	jsonResp(w, q)
}

func handleCreateRequirement(w http.ResponseWriter, r *http.Request) {
	var q Requirement
	if err := decodeBody(r, &q); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "title", q.Title)
	validateEnum(ve, "status", q.Status, validRequirementStatuses)
	validateEnum(ve, "priority", q.Priority, validPriorities)
	validateEmail(ve, "customer_email", q.CustomerEmail)
	validateNonNegativeFloat(ve, "estimated_budget", q.EstimatedBudget)
	validateForeignKey(ve, "project_id", "projects", q.ProjectID)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	username := getUsername(r)
	if q.Status == "" { q.Status = "new" }
	if q.Priority == "" { q.Priority = "medium" }
	if q.Timeline == "" { q.Timeline = "flexible" }
	q.ID = uuid.NewString()
	q.Source = "manual"
	q.IsActive = true
	now := time.Now().Format("2006-01-02 15:04:05")
	q.CreatedBy = username
	q.CreatedAt, q.UpdatedAt = now, now

	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	q.RequirementNumber, err = syncsvc.NextSequence(tx, "FRQ")
	if err != nil { jsonErr(w, err.Error(), 500); return }

	_, err = tx.Exec(`INSERT INTO requirements
		(id,requirement_number,title,project_id,lead_id,account_id,
		 customer_name,customer_email,customer_phone,customer_address,
		 estimated_budget,timeline,status,priority,source,
		 assigned_to,is_active,created_by,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1,?,?,?)`,
		q.ID, q.RequirementNumber, q.Title, q.ProjectID, q.LeadID, q.AccountID,
		q.CustomerName, q.CustomerEmail, q.CustomerPhone, q.CustomerAddress,
		q.EstimatedBudget, q.Timeline, q.Status, q.Priority, q.Source,
		q.AssignedTo, username, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	_, err = tx.Exec(`INSERT INTO requirement_status_history
		(requirement_id,status,notes,changed_by,created_at) VALUES (?,?,?,?,?)`,
		q.ID, q.Status, "Created manually", username, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(db, username, "created", "requirement", q.ID, "Created "+q.RequirementNumber)
	broadcast("requirement", "create", q.ID)
	jsonResp(w, q)
}

func handleUpdateRequirement(w http.ResponseWriter, r *http.Request, id string) {
	before, err := scanRequirement(db.QueryRow("SELECT "+requirementCols+" FROM requirements WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var q Requirement
	if err := decodeBody(r, &q); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "title", q.Title)
	validateEnum(ve, "priority", q.Priority, validPriorities)
	validateEmail(ve, "customer_email", q.CustomerEmail)
	validateNonNegativeFloat(ve, "estimated_budget", q.EstimatedBudget)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	// Status changes go through the status endpoint so history stays complete.
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.Exec(`UPDATE requirements SET title=?,customer_name=?,customer_email=?,
		customer_phone=?,customer_address=?,estimated_budget=?,timeline=?,priority=?,
		assigned_to=?,updated_at=? WHERE id=?`,
		q.Title, q.CustomerName, q.CustomerEmail, q.CustomerPhone, q.CustomerAddress,
		q.EstimatedBudget, q.Timeline, q.Priority, q.AssignedTo, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	LogUpdateWithDiff(db, r, "requirement", id, before, q)
	broadcast("requirement", "update", id)
	handleGetRequirement(w, r, id)
}

func handleDeleteRequirement(w http.ResponseWriter, r *http.Request, id string) {
	now := time.Now().Format("2006-01-02 15:04:05")
	res, err := db.Exec("UPDATE requirements SET is_active=0, updated_at=? WHERE id=?", now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(db, getUsername(r), "deleted", "requirement", id, "Deactivated requirement "+id)
	broadcast("requirement", "delete", id)
	jsonResp(w, map[string]string{"status": "deactivated"})
}

type statusChangeRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func handleRequirementStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req statusChangeRequest
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "status", req.Status)
	validateEnum(ve, "status", req.Status, validRequirementStatuses)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	var current string
	if err := db.QueryRow("SELECT status FROM requirements WHERE id=?", id).Scan(&current); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if current == req.Status { jsonErr(w, "status unchanged", 400); return }

	username := getUsername(r)
	now := time.Now().Format("2006-01-02 15:04:05")
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE requirements SET status=?, updated_at=? WHERE id=?", req.Status, now, id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if _, err := tx.Exec(`INSERT INTO requirement_status_history
		(requirement_id,status,notes,changed_by,created_at) VALUES (?,?,?,?,?)`,
		id, req.Status, req.Notes, username, now); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(db, username, "updated", "requirement", id, "Status "+current+" -> "+req.Status)
	broadcast("requirement", "update", id)
	handleGetRequirement(w, r, id)
}

type stageAdvanceRequest struct {
	Stage string `json:"stage"`
	Notes string `json:"notes"`
}

// handleRequirementStage moves a requirement to the next production stage.
// Skipping ahead or moving backwards is rejected.
func handleRequirementStage(w http.ResponseWriter, r *http.Request, id string) {
	var req stageAdvanceRequest
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }

	target := stageIndex(req.Stage)
	if target == -1 {
		jsonErr(w, "unknown stage: "+req.Stage, 400)
		return
	}

	var current, status string
	if err := db.QueryRow("SELECT COALESCE(stage,''), status FROM requirements WHERE id=?", id).Scan(&current, &status); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	if status != "in_production" {
		jsonErr(w, "requirement is not in production", 400)
		return
	}

	expected := 0
	if current != "" {
		expected = stageIndex(current) + 1
	}
	if target != expected {
		jsonErr(w, "stage must advance one step at a time", 400)
		return
	}

	username := getUsername(r)
	now := time.Now().Format("2006-01-02 15:04:05")
	tx, err := db.Begin()
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE requirements SET stage=?, updated_at=? WHERE id=?", req.Stage, now, id); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if _, err := tx.Exec(`INSERT INTO requirement_status_history
		(requirement_id,status,notes,changed_by,created_at) VALUES (?,?,?,?,?)`,
		id, status, "Production stage: "+req.Stage, username, now); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	if err := tx.Commit(); err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(db, username, "updated", "requirement", id, "Stage -> "+req.Stage)
	broadcast("requirement", "update", id)
	handleGetRequirement(w, r, id)
}

func handleRequirementHistory(w http.ResponseWriter, r *http.Request, id string) {
	var exists string
	if err := db.QueryRow("SELECT id FROM requirements WHERE id=?", id).Scan(&exists); err != nil {
		jsonErr(w, "not found", 404)
		return
	}
	entries, err := loadStatusHistory(id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	jsonResp(w, entries)
}

func handleProductionStages(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, productionStages)
}
