package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
)

var companyName string
var companyEmail string

func main() {
	configPath := flag.String("config", "dwp.yaml", "Path to YAML config file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("Config load failed:", err)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	companyName = cfg.CompanyName
	companyEmail = cfg.CompanyEmail

	if err := initDB(cfg.DBPath); err != nil {
		log.Fatal("DB init failed:", err)
	}
	seedDB()

	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "static/index.html")
	})

	// Auth routes
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogin(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			handleLogout(w, r)
		} else {
			http.Error(w, "Method not allowed", 405)
		}
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		handleMe(w, r)
	})

	// WebSocket
	mux.HandleFunc("/ws", handleWebSocket)

	// API routes - using a simple router
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/")
		path = strings.TrimSuffix(path, "/")
		parts := strings.Split(path, "/")

		switch {
		// Health
		case path == "health" && r.Method == "GET":
			handleHealth(w, r)

		// Dashboard
		case path == "dashboard" && r.Method == "GET":
			handleDashboard(w, r)

		// CRM projects
		case parts[0] == "projects" && len(parts) == 1 && r.Method == "GET":
			handleListProjects(w, r)
		case parts[0] == "projects" && len(parts) == 1 && r.Method == "POST":
			handleCreateProject(w, r)
		case parts[0] == "projects" && len(parts) == 2 && r.Method == "GET":
			handleGetProject(w, r, parts[1])
		case parts[0] == "projects" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateProject(w, r, parts[1])
		case parts[0] == "projects" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteProject(w, r, parts[1])

		// CRM leads
		case parts[0] == "leads" && len(parts) == 1 && r.Method == "GET":
			handleListLeads(w, r)
		case parts[0] == "leads" && len(parts) == 1 && r.Method == "POST":
			handleCreateLead(w, r)
		case parts[0] == "leads" && len(parts) == 2 && r.Method == "GET":
			handleGetLead(w, r, parts[1])
		case parts[0] == "leads" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateLead(w, r, parts[1])
		case parts[0] == "leads" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteLead(w, r, parts[1])

		// CRM contacts
		case parts[0] == "contacts" && len(parts) == 1 && r.Method == "GET":
			handleListContacts(w, r)
		case parts[0] == "contacts" && len(parts) == 1 && r.Method == "POST":
			handleCreateContact(w, r)
		case parts[0] == "contacts" && len(parts) == 2 && r.Method == "GET":
			handleGetContact(w, r, parts[1])
		case parts[0] == "contacts" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateContact(w, r, parts[1])
		case parts[0] == "contacts" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteContact(w, r, parts[1])

		// Doors & Windows requirements
		case parts[0] == "requirements" && len(parts) == 1 && r.Method == "GET":
			handleListRequirements(w, r)
		case parts[0] == "requirements" && len(parts) == 1 && r.Method == "POST":
			handleCreateRequirement(w, r)
		case path == "requirements/stages" && r.Method == "GET":
			handleProductionStages(w, r)
		case parts[0] == "requirements" && len(parts) == 2 && r.Method == "GET":
			handleGetRequirement(w, r, parts[1])
		case parts[0] == "requirements" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateRequirement(w, r, parts[1])
		case parts[0] == "requirements" && len(parts) == 2 && r.Method == "DELETE":
			handleDeleteRequirement(w, r, parts[1])
		case parts[0] == "requirements" && len(parts) == 3 && parts[2] == "status" && r.Method == "POST":
			handleRequirementStatus(w, r, parts[1])
		case parts[0] == "requirements" && len(parts) == 3 && parts[2] == "stage" && r.Method == "POST":
			handleRequirementStage(w, r, parts[1])
		case parts[0] == "requirements" && len(parts) == 3 && parts[2] == "history" && r.Method == "GET":
			handleRequirementHistory(w, r, parts[1])

		// Module-side contacts and sync
		case path == "dw/contacts" && r.Method == "GET":
			handleListDWContacts(w, r)
		case parts[0] == "dw" && len(parts) == 3 && parts[1] == "contacts" && r.Method == "GET":
			handleGetDWContact(w, r, parts[2])
		case path == "dw/sync" && r.Method == "POST":
			handleSync(w, r)
		case path == "dw/sync" && r.Method == "GET":
			handleSyncStatus(w, r)

		// Audit log
		case parts[0] == "audit" && len(parts) == 1 && r.Method == "GET":
			handleAuditLog(w, r)
		case path == "audit/cleanup" && r.Method == "POST":
			handleAuditCleanup(w, r)

		// Users
		case parts[0] == "users" && len(parts) == 1 && r.Method == "GET":
			handleListUsers(w, r)
		case parts[0] == "users" && len(parts) == 1 && r.Method == "POST":
			handleCreateUser(w, r)
		case parts[0] == "users" && len(parts) == 2 && r.Method == "PUT":
			handleUpdateUser(w, r, parts[1])
		case parts[0] == "users" && len(parts) == 3 && parts[2] == "password" && r.Method == "PUT":
			handleResetPassword(w, r, parts[1])

		default:
			json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("DWP server starting on http://localhost%s", addr)
	log.Fatal(http.ListenAndServe(addr, logging(requireAuth(requireRBAC(mux)))))
}

func jsonResp(w http.ResponseWriter, data interface{}) {
	json.NewEncoder(w).Encode(APIResponse{Data: data})
}

func jsonRespMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	json.NewEncoder(w).Encode(APIResponse{Data: data, Meta: &Meta{Total: total, Page: page, Limit: limit}})
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func decodeBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
