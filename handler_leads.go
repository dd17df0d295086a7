package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const leadCols = `id,COALESCE(title,''),COALESCE(name,''),COALESCE(contact_name,''),
	COALESCE(email,''),COALESCE(phone,''),COALESCE(mobile,''),COALESCE(address,''),
	status,COALESCE(priority,''),COALESCE(value,0),COALESCE(budget,0),
	COALESCE(assigned_to,''),COALESCE(created_by,''),created_at,updated_at`

func scanLead(row interface{ Scan(...interface{}) error }) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.Title, &l.Name, &l.ContactName, &l.Email, &l.Phone,
		&l.Mobile, &l.Address, &l.Status, &l.Priority, &l.Value, &l.Budget,
		&l.AssignedTo, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func handleListLeads(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + leadCols + " FROM leads"
	var args []interface{}
	if status := r.URL.Query().Get("status"); status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		items = append(items, l)
	}
	jsonResp(w, items)
}

func handleGetLead(w http.ResponseWriter, r *http.Request, id string) {
	l, err := scanLead(db.QueryRow("SELECT "+leadCols+" FROM leads WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, l)
}

func handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var l Lead
	if err := decodeBody(r, &l); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "name", l.Name)
	validateEnum(ve, "status", l.Status, validLeadStatuses)
	validateEnum(ve, "priority", l.Priority, validPriorities)
	validateEmail(ve, "email", l.Email)
	validateNonNegativeFloat(ve, "value", l.Value)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	l.ID = uuid.NewString()
	if l.Status == "" { l.Status = "new" }
	if l.Priority == "" { l.Priority = "medium" }
	now := time.Now().Format("2006-01-02 15:04:05")
	l.CreatedBy = getUsername(r)
	l.CreatedAt, l.UpdatedAt = now, now

	_, err := db.Exec(`INSERT INTO leads (id,title,name,contact_name,email,phone,mobile,address,
		status,priority,value,budget,assigned_to,created_by,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.Title, l.Name, l.ContactName, l.Email, l.Phone, l.Mobile, l.Address,
		l.Status, l.Priority, l.Value, l.Budget, l.AssignedTo, l.CreatedBy, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(db, l.CreatedBy, "created", "lead", l.ID, "Created lead "+l.Name)
	broadcast("lead", "create", l.ID)
	jsonResp(w, l)
}

func handleUpdateLead(w http.ResponseWriter, r *http.Request, id string) {
	before, err := scanLead(db.QueryRow("SELECT "+leadCols+" FROM leads WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var l Lead
	if err := decodeBody(r, &l); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "name", l.Name)
	validateEnum(ve, "status", l.Status, validLeadStatuses)
	validateEnum(ve, "priority", l.Priority, validPriorities)
	validateEmail(ve, "email", l.Email)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.Exec(`UPDATE leads SET title=?,name=?,contact_name=?,email=?,phone=?,mobile=?,
		address=?,status=?,priority=?,value=?,budget=?,assigned_to=?,updated_at=? WHERE id=?`,
		l.Title, l.Name, l.ContactName, l.Email, l.Phone, l.Mobile,
		l.Address, l.Status, l.Priority, l.Value, l.Budget, l.AssignedTo, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	LogUpdateWithDiff(db, r, "lead", id, before, l)
	broadcast("lead", "update", id)
	handleGetLead(w, r, id)
}

func handleDeleteLead(w http.ResponseWriter, r *http.Request, id string) {
	res, err := db.Exec("DELETE FROM leads WHERE id=?", id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(db, getUsername(r), "deleted", "lead", id, "Deleted lead "+id)
	broadcast("lead", "delete", id)
	jsonResp(w, map[string]string{"status": "deleted"})
}
