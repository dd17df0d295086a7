package main

import "net/http"

const dwContactCols = `id,crm_contact_id,name,COALESCE(email,''),COALESCE(phone,''),
	COALESCE(company,''),COALESCE(designation,''),COALESCE(address,''),
	COALESCE(type,''),COALESCE(tags,'[]'),COALESCE(last_synced_at,''),is_active,
	COALESCE(created_by,''),created_at,updated_at`

func scanDWContact(row interface{ Scan(...interface{}) error }) (DWContact, error) {
	var c DWContact
	err := row.Scan(&c.ID, &c.CRMContactID, &c.Name, &c.Email, &c.Phone, &c.Company,
		&c.Designation, &c.Address, &c.Type, &c.Tags, &c.LastSyncedAt, &c.IsActive,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Module contacts are maintained by sync; the API only reads them.
func handleListDWContacts(w http.ResponseWriter, r *http.Request) {
	rows, err := db.Query("SELECT " + dwContactCols + " FROM dw_contacts ORDER BY name")
	if err != nil { jsonErr(w, err.Error(), 500); return }
	defer rows.Close()
	items := []DWContact{}
	for rows.Next() {
		c, err := scanDWContact(rows)
		if err != nil { jsonErr(w, err.Error(), 500); return }
		items = append(items, c)
	}
	jsonResp(w, items)
}

func handleGetDWContact(w http.ResponseWriter, r *http.Request, id string) {
	c, err := scanDWContact(db.QueryRow("SELECT "+dwContactCols+" FROM dw_contacts WHERE id=?", id))
	if err != nil { jsonErr(w, "not found", 404); return }
	jsonResp(w, c)
}
