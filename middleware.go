package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const (
	ctxUserID   contextKey = "userID"
	ctxUsername contextKey = "username"
	ctxRole     contextKey = "role"
)

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Exempt paths
		if path == "/" ||
			strings.HasPrefix(path, "/assets/") ||
			path == "/auth/login" ||
			path == "/auth/logout" ||
			path == "/auth/me" ||
			path == "/api/v1/health" {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie("dwp_session")
		if err != nil {
			if !strings.HasPrefix(path, "/api/") {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(401)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		var userID int
		var username, role string
		var active int
		err = db.QueryRow(`SELECT s.user_id, u.username, u.role, u.active FROM sessions s JOIN users u ON s.user_id = u.id
			WHERE s.token = ? AND s.expires_at > CURRENT_TIMESTAMP`, cookie.Value).Scan(&userID, &username, &role, &active)
		if err != nil {
			if !strings.HasPrefix(path, "/api/") {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(401)
			json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "code": "UNAUTHORIZED"})
			return
		}

		if active == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(403)
			json.NewEncoder(w).Encode(map[string]string{"error": "Account deactivated", "code": "FORBIDDEN"})
			return
		}

		// Sliding window: extend session expiry on each authenticated request
		newExpiry := time.Now().Add(24 * time.Hour)
		db.Exec("UPDATE sessions SET expires_at = ? WHERE token = ?",
			newExpiry.Format("2006-01-02 15:04:05"), cookie.Value)

		http.SetCookie(w, &http.Cookie{
			Name:     "dwp_session",
			Value:    cookie.Value,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Expires:  newExpiry,
		})

		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		ctx = context.WithValue(ctx, ctxUsername, username)
		ctx = context.WithValue(ctx, ctxRole, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isAdminOnly returns true if the API path (after /api/v1/) is restricted to admin role.
func isAdminOnly(apiPath string) bool {
	if apiPath == "audit/cleanup" {
		return true
	}
	seg := strings.SplitN(apiPath, "/", 2)[0]
	switch seg {
	case "users":
		return true
	}
	return false
}

// requireRBAC enforces role-based access control on /api/v1/ routes.
func requireRBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !strings.HasPrefix(path, "/api/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		role, _ := r.Context().Value(ctxRole).(string)
		if role == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Admin: full access
		if role == "admin" {
			next.ServeHTTP(w, r)
			return
		}

		method := r.Method
		apiPath := strings.TrimPrefix(path, "/api/v1/")
		apiPath = strings.TrimSuffix(apiPath, "/")

		// Readonly: GET only
		if role == "readonly" {
			if method != "GET" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(403)
				json.NewEncoder(w).Encode(map[string]string{"error": "Read-only access", "code": "FORBIDDEN"})
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if role == "user" && isAdminOnly(apiPath) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(403)
			json.NewEncoder(w).Encode(map[string]string{"error": "Admin access required", "code": "FORBIDDEN"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
