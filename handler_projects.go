package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const projectCols = `id,COALESCE(project_number,''),name,COALESCE(description,''),status,
	COALESCE(priority,''),COALESCE(client_id,''),COALESCE(lead_id,''),
	COALESCE(client_name,''),COALESCE(client_email,''),COALESCE(client_phone,''),
	COALESCE(site_address,''),COALESCE(address,''),COALESCE(budget,0),COALESCE(value,0),
	COALESCE(module_source,''),COALESCE(linked_requirement,''),COALESCE(assigned_to,''),
	COALESCE(created_by,''),created_at,updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.ProjectNumber, &p.Name, &p.Description, &p.Status,
		&p.Priority, &p.ClientID, &p.LeadID, &p.ClientName, &p.ClientEmail,
		&p.ClientPhone, &p.SiteAddress, &p.Address, &p.Budget, &p.Value,
		&p.ModuleSource, &p.LinkedRequirement, &p.AssignedTo,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func handleListProjects(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + projectCols + " FROM projects"
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		items = append(items, p)
	}
	jsonResp(w, items)
}

func handleGetProject(w http.ResponseWriter, r *http.Request, id string) {
	p, err := scanProject(db.QueryRow("SELECT "+projectCols+" FROM projects WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, p)
}

func handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p Project
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "name", p.Name)
	validateEnum(ve, "status", p.Status, validProjectStatuses)
	validateEnum(ve, "priority", p.Priority, validPriorities)
	validateEmail(ve, "client_email", p.ClientEmail)
	validateNonNegativeFloat(ve, "budget", p.Budget)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	p.ID = uuid.NewString()
	if p.Status == "" { p.Status = "planning" }
	if p.Priority == "" { p.Priority = "medium" }
	now := time.Now().Format("2006-01-02 15:04:05")
	p.CreatedBy = getUsername(r)
	p.CreatedAt, p.UpdatedAt = now, now

	_, err := db.Exec(`INSERT INTO projects (id,project_number,name,description,status,priority,
		client_id,lead_id,client_name,client_email,client_phone,site_address,address,
		budget,value,module_source,linked_requirement,assigned_to,created_by,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.ProjectNumber, p.Name, p.Description, p.Status, p.Priority,
		p.ClientID, p.LeadID, p.ClientName, p.ClientEmail, p.ClientPhone,
		p.SiteAddress, p.Address, p.Budget, p.Value, p.ModuleSource,
		p.LinkedRequirement, p.AssignedTo, p.CreatedBy, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(db, p.CreatedBy, "created", "project", p.ID, "Created project "+p.Name)
	broadcast("project", "create", p.ID)
	jsonResp(w, p)
}

func handleUpdateProject(w http.ResponseWriter, r *http.Request, id string) {
	before, err := scanProject(db.QueryRow("SELECT "+projectCols+" FROM projects WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var p Project
	if err := decodeBody(r, &p); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "name", p.Name)
	validateEnum(ve, "status", p.Status, validProjectStatuses)
	validateEnum(ve, "priority", p.Priority, validPriorities)
	validateEmail(ve, "client_email", p.ClientEmail)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.Exec(`UPDATE projects SET name=?,description=?,status=?,priority=?,
		client_id=?,lead_id=?,client_name=?,client_email=?,client_phone=?,
		site_address=?,address=?,budget=?,value=?,assigned_to=?,updated_at=? WHERE id=?`,
		p.Name, p.Description, p.Status, p.Priority,
		p.ClientID, p.LeadID, p.ClientName, p.ClientEmail, p.ClientPhone,
		p.SiteAddress, p.Address, p.Budget, p.Value, p.AssignedTo, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	LogUpdateWithDiff(db, r, "project", id, before, p)
	broadcast("project", "update", id)
	handleGetProject(w, r, id)
}

func handleDeleteProject(w http.ResponseWriter, r *http.Request, id string) {
	var linked string
	db.QueryRow("SELECT id FROM requirements WHERE project_id=?", id).Scan(&linked)
	if linked != "" { jsonErr(w, "project has a linked requirement", 409); return }

	res, err := db.Exec("DELETE FROM projects WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(db, getUsername(r), "deleted", "project", id, "Deleted project "+id)
	broadcast("project", "delete", id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
