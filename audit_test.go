package main

import (
	"net/http/httptest"
	"testing"
	"time"
)

func insertAuditEntry(t *testing.T, recordID, createdAt string) {
	t.Helper()
	_, err := db.Exec(`INSERT INTO audit_log (username, action, module, record_id, summary, created_at)
		VALUES ('test', 'CREATE', 'project', ?, 'entry', ?)`, recordID, createdAt)
	if err != nil {
		t.Fatalf("Failed to insert audit entry: %v", err)
	}
}

func TestCleanupOldAuditLogs(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	oldDate := time.Now().AddDate(0, 0, -400).Format("2006-01-02 15:04:05")
	recentDate := time.Now().Format("2006-01-02 15:04:05")
	insertAuditEntry(t, "OLD-001", oldDate)
	insertAuditEntry(t, "NEW-001", recentDate)

	deleted, err := CleanupOldAuditLogs(db, 365)
	if err != nil {
		t.Fatalf("Failed to cleanup logs: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted entry, got %d", deleted)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE record_id = 'OLD-001'").Scan(&count)
	if count != 0 {
		t.Error("Old entry should have been deleted")
	}
	db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE record_id = 'NEW-001'").Scan(&count)
	if count != 1 {
		t.Error("Recent entry should still exist")
	}
}

func TestAuditCleanupEndpoint(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	token := loginAdmin(t, db)
	oldDate := time.Now().AddDate(0, 0, -400).Format("2006-01-02 15:04:05")
	insertAuditEntry(t, "OLD-001", oldDate)

	req := authedRequest("POST", "/api/v1/audit/cleanup", nil, token)
	w := httptest.NewRecorder()
	handleAuditCleanup(w, req)
	assertStatus(t, w, 200)

	resp := decodeAPIResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected object data, got %T", resp.Data)
	}
	if data["deleted"] != float64(1) {
		t.Errorf("Expected 1 deleted, got %v", data["deleted"])
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM audit_log WHERE record_id = 'OLD-001'").Scan(&count)
	if count != 0 {
		t.Error("Old entry should have been deleted")
	}
}

func TestAuditCleanupRequiresAdmin(t *testing.T) {
	oldDB := db
	db = setupTestDB(t)
	defer func() { db.Close(); db = oldDB }()

	token := loginUser(t, db, "sales")
	handler := requireAuth(requireRBAC(okHandler()))

	req := authedRequest("POST", "/api/v1/audit/cleanup", nil, token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assertStatus(t, w, 403)
}
