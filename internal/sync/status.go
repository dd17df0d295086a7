package sync

import (
	"context"
	"fmt"
)

func (o *Orchestrator) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := o.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Availability counts CRM records still eligible for sync (eligible status
// and not yet linked) and the requirements already created by sync.
func (o *Orchestrator) Availability(ctx context.Context) (map[string]int, int, error) {
	projects, err := o.count(ctx, `SELECT COUNT(*) FROM projects
		WHERE status NOT IN (`+statusList(projectTerminalStatuses)+`)
		AND id NOT IN (SELECT synced_from_id FROM requirements
			WHERE synced_from_type = 'project' AND synced_from_id != '')`)
	if err != nil {
		return nil, 0, err
	}
	leads, err := o.count(ctx, `SELECT COUNT(*) FROM leads
		WHERE status NOT IN (`+statusList(leadTerminalStatuses)+`)
		AND id NOT IN (SELECT synced_from_id FROM requirements
			WHERE synced_from_type = 'lead' AND synced_from_id != '')`)
	if err != nil {
		return nil, 0, err
	}
	contacts, err := o.count(ctx, `SELECT COUNT(*) FROM contacts
		WHERE is_active = 1
		AND id NOT IN (SELECT crm_contact_id FROM dw_contacts)`)
	if err != nil {
		return nil, 0, err
	}
	synced, err := o.count(ctx,
		"SELECT COUNT(*) FROM requirements WHERE source = 'crm_sync'")
	if err != nil {
		return nil, 0, err
	}
	available := map[string]int{
		"projects": projects,
		"leads":    leads,
		"contacts": contacts,
	}
	return available, synced, nil
}

// statusReport is the "status" action: a snapshot of both sides of the link
// plus the last batch sync event.
func (o *Orchestrator) statusReport(ctx context.Context, req Request, actor Actor) (*Result, error) {
	available, synced, err := o.Availability(ctx)
	if err != nil {
		return nil, err
	}
	syncedContacts, err := o.count(ctx, "SELECT COUNT(*) FROM dw_contacts")
	if err != nil {
		return nil, err
	}
	totalRequirements, err := o.count(ctx, "SELECT COUNT(*) FROM requirements")
	if err != nil {
		return nil, err
	}
	last, err := o.events.LastSync(ctx)
	if err != nil {
		return nil, err
	}

	status := map[string]interface{}{
		"crm": map[string]interface{}{
			"availableToSync": available,
		},
		"doorsWindows": map[string]interface{}{
			"requirements":       totalRequirements,
			"syncedRequirements": synced,
			"syncedContacts":     syncedContacts,
		},
	}
	if last != nil {
		status["lastSync"] = last
	}
	return &Result{Message: "Sync status", Status: status}, nil
}
