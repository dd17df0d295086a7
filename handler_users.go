package main

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type UserFull struct {
	ID          int    `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

type CreateUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func handleListUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query(`SELECT id, username, COALESCE(display_name,''), role, active, created_at
		FROM users ORDER BY username`)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []UserFull{}
	for rows.Next() {
		var u UserFull
		if err := rows.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			jsonErr(w, err.Error(), 500)
			return
		}
		items = append(items, u)
	}
	jsonResp(w, items)
}

func handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "username", req.Username)
	requireField(ve, "password", req.Password)
	validateEnum(ve, "role", req.Role, []string{"admin", "user", "readonly"})
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	if req.Role == "" { req.Role = "user" }
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	res, err := db.Exec("INSERT INTO users (username, password_hash, display_name, role) VALUES (?,?,?,?)",
		req.Username, string(hash), req.DisplayName, req.Role)
	if err != nil { jsonErr(w, "username already exists", 409); return }
	id, _ := res.LastInsertId()

	logAudit(db, getUsername(r), "created", "user", req.Username, "Created user "+req.Username)
	jsonResp(w, UserFull{ID: int(id), Username: req.Username, DisplayName: req.DisplayName, Role: req.Role, Active: true})
}

func handleUpdateUser(w http.ResponseWriter, r *http.Request, idStr string) {
	var req struct {
		DisplayName string `json:"display_name"`
		Role        string `json:"role"`
		Active      *bool  `json:"active"`
	}
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	validateEnum(ve, "role", req.Role, []string{"admin", "user", "readonly"})
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	active := 1
	if req.Active != nil && !*req.Active {
		active = 0
	}
	res, err := db.Exec("UPDATE users SET display_name=?, role=?, active=? WHERE id=?",
		req.DisplayName, req.Role, active, idStr)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	// Deactivation kills existing sessions
	if active == 0 {
		db.Exec("DELETE FROM sessions WHERE user_id=?", idStr)
	}

	logAudit(db, getUsername(r), "updated", "user", idStr, "Updated user "+idStr)
	jsonResp(w, map[string]string{"status": "ok"})
}

func handleResetPassword(w http.ResponseWriter, r *http.Request, idStr string) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil { jsonErr(w, "invalid body", 400); return }
	if req.Password == "" { jsonErr(w, "password is required", 400); return }

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	res, err := db.Exec("UPDATE users SET password_hash=? WHERE id=?", string(hash), idStr)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	db.Exec("DELETE FROM sessions WHERE user_id=?", idStr)

	logAudit(db, getUsername(r), "updated", "user", idStr, "Reset password for user "+idStr)
	jsonResp(w, map[string]string{"status": "ok"})
}
