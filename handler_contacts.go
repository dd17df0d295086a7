package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const contactCols = `id,name,COALESCE(email,''),COALESCE(phone,''),COALESCE(mobile,''),
	COALESCE(company,''),COALESCE(designation,''),COALESCE(address,''),
	COALESCE(type,''),COALESCE(tags,'[]'),is_active,
	COALESCE(created_by,''),created_at,updated_at`

func scanContact(row interface{ Scan(...interface{}) error }) (Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Mobile, &c.Company,
		&c.Designation, &c.Address, &c.Type, &c.Tags, &c.IsActive,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func handleListContacts(w http.ResponseWriter, r *http.Request) {
	query := "SELECT " + contactCols + " FROM contacts"
	var args []interface{}
	if t := r.URL.Query().Get("type"); t != "" {
		query += " WHERE type = ?"
		args = append(args, t)
	}
	query += " ORDER BY name"

	rows, err := db.Query(query, args...)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		items = append(items, c)
	}
	jsonResp(w, items)
}

func handleGetContact(w http.ResponseWriter, r *http.Request, id string) {
	c, err := scanContact(db.QueryRow("SELECT "+contactCols+" FROM contacts WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, c)
}

func handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var c Contact
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "name", c.Name)
	validateEnum(ve, "type", c.Type, validContactTypes)
	validateEmail(ve, "email", c.Email)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	c.ID = uuid.NewString()
	if c.Type == "" { c.Type = "customer" }
	if c.Tags == "" { c.Tags = "[]" }
	c.IsActive = true
	now := time.Now().Format("2006-01-02 15:04:05")
	c.CreatedBy = getUsername(r)
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := db.Exec(`INSERT INTO contacts (id,name,email,phone,mobile,company,designation,
		address,type,tags,is_active,created_by,created_at,updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,1,?,?,?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Mobile, c.Company, c.Designation,
		c.Address, c.Type, c.Tags, c.CreatedBy, now, now)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	logAudit(db, c.CreatedBy, "created", "contact", c.ID, "Created contact "+c.Name)
	broadcast("contact", "create", c.ID)
	jsonResp(w, c)
}

func handleUpdateContact(w http.ResponseWriter, r *http.Request, id string) {
	before, err := scanContact(db.QueryRow("SELECT "+contactCols+" FROM contacts WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }

	var c Contact
	if err := decodeBody(r, &c); err != nil { jsonErr(w, "invalid body", 400); return }

	ve := &ValidationErrors{}
	requireField(ve, "name", c.Name)
	validateEnum(ve, "type", c.Type, validContactTypes)
	validateEmail(ve, "email", c.Email)
	if ve.HasErrors() { jsonErr(w, ve.Error(), 400); return }

	active := 0
	if c.IsActive { active = 1 }
	now := time.Now().Format("2006-01-02 15:04:05")
	_, err = db.Exec(`UPDATE contacts SET name=?,email=?,phone=?,mobile=?,company=?,
		designation=?,address=?,type=?,tags=?,is_active=?,updated_at=? WHERE id=?`,
		c.Name, c.Email, c.Phone, c.Mobile, c.Company,
		c.Designation, c.Address, c.Type, c.Tags, active, now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }

	LogUpdateWithDiff(db, r, "contact", id, before, c)
	broadcast("contact", "update", id)
	handleGetContact(w, r, id)
}

// handleDeleteContact deactivates rather than removes; synced module copies
// keep their back-reference intact.
func handleDeleteContact(w http.ResponseWriter, r *http.Request, id string) {
	now := time.Now().Format("2006-01-02 15:04:05")
	res, err := db.Exec("UPDATE contacts SET is_active=0, updated_at=? WHERE id=?", now, id)
	if err != nil { jsonErr(w, err.Error(), 500); return }
	if n, _ := res.RowsAffected(); n == 0 { jsonErr(w, "not found", 404); return }

	logAudit(db, getUsername(r), "deleted", "contact", id, "Deactivated contact "+id)
	broadcast("contact", "delete", id)
	jsonResp(w, map[string]string{"status": "deactivated"})
}
