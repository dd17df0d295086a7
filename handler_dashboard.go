package main

import "net/http"

type DashboardData struct {
	Projects     map[string]int `json:"projects"`
	Leads        map[string]int `json:"leads"`
	Requirements map[string]int `json:"requirements"`
	Stages       map[string]int `json:"stages"`
	Contacts     int            `json:"contacts"`
	DWContacts   int            `json:"dw_contacts"`
}

func countsByColumn(table, column string) (map[string]int, error) {
	rows, err := db.Query("SELECT " + column + ", COUNT(*) FROM " + table +
		" WHERE " + column + " != '' GROUP BY " + column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := DashboardData{}
	var err error
	if d.Projects, err = countsByColumn("projects", "status"); err != nil { jsonErr(w, err.Error(), 500); return }
	if d.Leads, err = countsByColumn("leads", "status"); err != nil { jsonErr(w, err.Error(), 500); return }
	if d.Requirements, err = countsByColumn("requirements", "status"); err != nil { jsonErr(w, err.Error(), 500); return }
	if d.Stages, err = countsByColumn("requirements", "stage"); err != nil { jsonErr(w, err.Error(), 500); return }

	db.QueryRow("SELECT COUNT(*) FROM contacts WHERE is_active = 1").Scan(&d.Contacts)
	db.QueryRow("SELECT COUNT(*) FROM dw_contacts").Scan(&d.DWContacts)

	jsonResp(w, d)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := db.Ping(); err != nil {
		jsonErr(w, "database unavailable", 503)
		return
	}
	jsonResp(w, map[string]string{"status": "ok", "company": companyName, "contact": companyEmail})
}
