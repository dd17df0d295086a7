package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dwp/internal/audit"
)

// Audit action constant aliases.
const (
	AuditActionCreate = audit.ActionCreate
	AuditActionUpdate = audit.ActionUpdate
	AuditActionDelete = audit.ActionDelete
	AuditActionView   = audit.ActionView
	AuditActionSync   = audit.ActionSync
	AuditActionLogin  = audit.ActionLogin
	AuditActionLogout = audit.ActionLogout
)

type AuditEntry = audit.AuditEntry

// Audit log entries older than this are eligible for cleanup.
const auditRetentionDays = 365

// Wrapper functions delegating to internal/audit, injecting global db and wsHub.
func logAudit(db *sql.DB, username, action, module, recordID, summary string) {
	audit.LogAudit(db, wsHub, username, action, module, recordID, summary)
}

func getUsername(r *http.Request) string {
	return audit.GetUsername(db, r)
}

func LogSimpleAudit(dbConn *sql.DB, r *http.Request, action, module, recordID, summary string) {
	audit.LogSimpleAudit(dbConn, wsHub, r, action, module, recordID, summary)
}

func LogUpdateWithDiff(dbConn *sql.DB, r *http.Request, module, recordID string, before, after interface{}) {
	audit.LogUpdateWithDiff(dbConn, wsHub, r, module, recordID, before, after)
}

func CleanupOldAuditLogs(dbConn *sql.DB, retentionDays int) (int64, error) {
	return audit.CleanupOldAuditLogs(dbConn, retentionDays)
}

func handleAuditCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := CleanupOldAuditLogs(db, auditRetentionDays)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	LogSimpleAudit(db, r, "cleanup", "audit_log", "retention",
		fmt.Sprintf("Cleaned up %d old audit logs (retention: %d days)", deleted, auditRetentionDays))

	jsonResp(w, map[string]interface{}{
		"deleted": deleted,
		"message": fmt.Sprintf("Deleted %d audit log entries older than %d days", deleted, auditRetentionDays),
	})
}

func handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	module := r.URL.Query().Get("module")
	user := r.URL.Query().Get("user")
	search := r.URL.Query().Get("search")

	var args []interface{}
	var conditions []string
	if module != "" {
		conditions = append(conditions, "module = ?")
		args = append(args, module)
	}
	if user != "" {
		conditions = append(conditions, "username = ?")
		args = append(args, user)
	}
	if search != "" {
		conditions = append(conditions, "(summary LIKE ? OR action LIKE ? OR record_id LIKE ?)")
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}

	query := `SELECT id, COALESCE(user_id,0), COALESCE(username,''), action,
		COALESCE(module,''), COALESCE(record_id,''), COALESCE(summary,''),
		COALESCE(before_value,''), COALESCE(after_value,''),
		COALESCE(ip_address,''), COALESCE(user_agent,''), created_at
		FROM audit_log` + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		jsonErr(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &e.Module,
			&e.RecordID, &e.Summary, &e.BeforeValue, &e.AfterValue,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		entries = append(entries, e)
	}

	jsonRespMeta(w, entries, total, page, limit)
}
