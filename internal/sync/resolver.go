package sync

import (
	"context"
	"fmt"
	"strings"

	"dwp/internal/models"
)

// Terminal statuses excluded from sync eligibility.
var (
	projectTerminalStatuses = []string{"completed", "cancelled"}
	leadTerminalStatuses    = []string{"converted", "lost"}
)

// statusList renders statuses as a quoted SQL IN list.
func statusList(statuses []string) string {
	quoted := make([]string, len(statuses))
	for i, s := range statuses {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ",")
}

// unlinkedProjects returns CRM projects that have no requirement linked via
// the back-reference and are not in a terminal status. Ordering is
// deterministic so repeated runs number records the same way.
func (o *Orchestrator) unlinkedProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT id, COALESCE(project_number,''), name,
		COALESCE(description,''), status, COALESCE(priority,''),
		COALESCE(client_id,''), COALESCE(lead_id,''),
		COALESCE(client_name,''), COALESCE(client_email,''), COALESCE(client_phone,''),
		COALESCE(site_address,''), COALESCE(address,''),
		COALESCE(budget,0), COALESCE(value,0), COALESCE(assigned_to,''), created_at
		FROM projects
		WHERE status NOT IN (`+statusList(projectTerminalStatuses)+`)
		AND id NOT IN (SELECT synced_from_id FROM requirements
			WHERE synced_from_type = 'project' AND synced_from_id != '')
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("resolve unlinked projects: %w", err)
	}
	defer rows.Close()

	var items []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.ProjectNumber, &p.Name, &p.Description, &p.Status,
			&p.Priority, &p.ClientID, &p.LeadID, &p.ClientName, &p.ClientEmail,
			&p.ClientPhone, &p.SiteAddress, &p.Address, &p.Budget, &p.Value,
			&p.AssignedTo, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// unlinkedLeads returns CRM leads with no linked requirement, excluding
// converted and lost leads.
func (o *Orchestrator) unlinkedLeads(ctx context.Context) ([]models.Lead, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT id, COALESCE(title,''), COALESCE(name,''),
		COALESCE(contact_name,''), COALESCE(email,''), COALESCE(phone,''),
		COALESCE(mobile,''), COALESCE(address,''), status, COALESCE(priority,''),
		COALESCE(value,0), COALESCE(budget,0), COALESCE(assigned_to,''), created_at
		FROM leads
		WHERE status NOT IN (`+statusList(leadTerminalStatuses)+`)
		AND id NOT IN (SELECT synced_from_id FROM requirements
			WHERE synced_from_type = 'lead' AND synced_from_id != '')
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("resolve unlinked leads: %w", err)
	}
	defer rows.Close()

	var items []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.Title, &l.Name, &l.ContactName, &l.Email,
			&l.Phone, &l.Mobile, &l.Address, &l.Status, &l.Priority,
			&l.Value, &l.Budget, &l.AssignedTo, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

// activeContacts returns all active CRM contacts; contact sync is
// create-or-update, so nothing is filtered by link state here.
func (o *Orchestrator) activeContacts(ctx context.Context) ([]models.Contact, error) {
	rows, err := o.db.QueryContext(ctx, `SELECT id, name, COALESCE(email,''),
		COALESCE(phone,''), COALESCE(mobile,''), COALESCE(company,''),
		COALESCE(designation,''), COALESCE(address,''), COALESCE(type,''),
		COALESCE(tags,'[]')
		FROM contacts WHERE is_active = 1 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("resolve active contacts: %w", err)
	}
	defer rows.Close()

	var items []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Mobile,
			&c.Company, &c.Designation, &c.Address, &c.Type, &c.Tags); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}
