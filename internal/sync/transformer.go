package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dwp/internal/models"
)

func timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// NextSequence reserves the next number for a prefix inside tx. The counter
// row is created on first use and incremented atomically, so concurrent
// reservations never collide.
func NextSequence(tx *sql.Tx, prefix string) (string, error) {
	year := time.Now().Format("2006")
	name := prefix + "-" + year
	var n int
	err := tx.QueryRow(`INSERT INTO sequences (name, next) VALUES (?, 2)
		ON CONFLICT(name) DO UPDATE SET next = next + 1
		RETURNING next - 1`, name).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("reserve sequence %s: %w", name, err)
	}
	return fmt.Sprintf("%s-%s-%05d", prefix, year, n), nil
}

func (o *Orchestrator) syncProjects(ctx context.Context, req Request, actor Actor) (*Result, error) {
	unsynced, err := o.unlinkedProjects(ctx)
	if err != nil {
		return nil, err
	}

	now := timestamp()
	results := &BatchResults{Errors: []RecordError{}}
	for _, p := range unsynced {
		if err := o.createRequirementFromProject(ctx, p, actor, now); err != nil {
			results.Errors = append(results.Errors, RecordError{ID: p.ID, Error: err.Error()})
			continue
		}
		results.Created++
	}

	o.events.Record(ctx, "sync.projects", "", "", map[string]interface{}{"results": results}, actor)
	return &Result{
		Message:  fmt.Sprintf("Synced %d projects", results.Created),
		Results:  results,
		Unsynced: len(unsynced),
	}, nil
}

// createRequirementFromProject creates one requirement inside its own
// transaction; a failure rolls back only this record and the batch continues.
func (o *Orchestrator) createRequirementFromProject(ctx context.Context, p models.Project, actor Actor, now string) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	num, err := NextSequence(tx, "FRQ")
	if err != nil {
		return err
	}

	title := p.Name
	if title == "" {
		title = "Project - " + p.ID
	}
	id := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO requirements
		(id, requirement_number, title, project_id, lead_id, account_id,
		 customer_name, customer_email, customer_phone, customer_address,
		 estimated_budget, timeline, status, priority, source,
		 synced_from_type, synced_from_id, synced_from_at,
		 assigned_to, is_active, created_by, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1,?,?,?)`,
		id, num, title, p.ID, p.LeadID, p.ClientID,
		p.ClientName, p.ClientEmail, p.ClientPhone,
		firstNonEmpty(p.SiteAddress, p.Address),
		firstNonZero(p.Budget, p.Value), "flexible", "new",
		firstNonEmpty(p.Priority, "medium"), "crm_sync",
		"project", p.ID, now,
		firstNonEmpty(p.AssignedTo, actor.Username), actor.Username, now, now)
	if err != nil {
		return fmt.Errorf("insert requirement: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO requirement_status_history
		(requirement_id, status, notes, changed_by, created_at) VALUES (?,?,?,?,?)`,
		id, "new", "Auto-created from CRM Project: "+p.Name, actor.Username, now)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return tx.Commit()
}

func (o *Orchestrator) syncLeads(ctx context.Context, req Request, actor Actor) (*Result, error) {
	unsynced, err := o.unlinkedLeads(ctx)
	if err != nil {
		return nil, err
	}

	now := timestamp()
	results := &BatchResults{Errors: []RecordError{}}
	for _, l := range unsynced {
		if err := o.createRequirementFromLead(ctx, l, actor, now); err != nil {
			results.Errors = append(results.Errors, RecordError{ID: l.ID, Error: err.Error()})
			continue
		}
		results.Created++
	}

	o.events.Record(ctx, "sync.leads", "", "", map[string]interface{}{"results": results}, actor)
	return &Result{
		Message:  fmt.Sprintf("Synced %d leads", results.Created),
		Results:  results,
		Unsynced: len(unsynced),
	}, nil
}

func (o *Orchestrator) createRequirementFromLead(ctx context.Context, l models.Lead, actor Actor, now string) error {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	num, err := NextSequence(tx, "FRQ")
	if err != nil {
		return err
	}

	title := l.Title
	if title == "" {
		title = "Lead - " + l.Name
	}
	id := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO requirements
		(id, requirement_number, title, project_id, lead_id, account_id,
		 customer_name, customer_email, customer_phone, customer_address,
		 estimated_budget, timeline, status, priority, source,
		 synced_from_type, synced_from_id, synced_from_at,
		 assigned_to, is_active, created_by, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,1,?,?,?)`,
		id, num, title, "", l.ID, "",
		firstNonEmpty(l.Name, l.ContactName), l.Email,
		firstNonEmpty(l.Phone, l.Mobile), l.Address,
		firstNonZero(l.Value, l.Budget), "flexible", "new",
		firstNonEmpty(l.Priority, "medium"), "crm_sync",
		"lead", l.ID, now,
		firstNonEmpty(l.AssignedTo, actor.Username), actor.Username, now, now)
	if err != nil {
		return fmt.Errorf("insert requirement: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO requirement_status_history
		(requirement_id, status, notes, changed_by, created_at) VALUES (?,?,?,?,?)`,
		id, "new", "Auto-created from CRM Lead: "+l.Name, actor.Username, now)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return tx.Commit()
}

// syncContacts creates or updates a module contact for every active CRM
// contact, keyed on crm_contact_id. Unlike requirements, contact copies are
// refreshed on every run.
func (o *Orchestrator) syncContacts(ctx context.Context, req Request, actor Actor) (*Result, error) {
	contacts, err := o.activeContacts(ctx)
	if err != nil {
		return nil, err
	}

	now := timestamp()
	results := &BatchResults{Errors: []RecordError{}}
	for _, c := range contacts {
		var existing string
		err := o.db.QueryRowContext(ctx,
			"SELECT id FROM dw_contacts WHERE crm_contact_id = ?", c.ID).Scan(&existing)
		switch {
		case err == nil:
			_, err = o.db.ExecContext(ctx, `UPDATE dw_contacts SET
				name=?, email=?, phone=?, company=?, designation=?, address=?,
				last_synced_at=?, updated_at=? WHERE crm_contact_id=?`,
				c.Name, c.Email, firstNonEmpty(c.Phone, c.Mobile), c.Company,
				c.Designation, c.Address, now, now, c.ID)
			if err != nil {
				results.Errors = append(results.Errors, RecordError{ID: c.ID, Error: err.Error()})
				continue
			}
			results.Updated++
		case errors.Is(err, sql.ErrNoRows):
			_, err = o.db.ExecContext(ctx, `INSERT INTO dw_contacts
				(id, crm_contact_id, name, email, phone, company, designation,
				 address, type, tags, last_synced_at, is_active, created_by,
				 created_at, updated_at)
				VALUES (?,?,?,?,?,?,?,?,?,?,?,1,?,?,?)`,
				uuid.NewString(), c.ID, c.Name, c.Email,
				firstNonEmpty(c.Phone, c.Mobile), c.Company, c.Designation,
				c.Address, firstNonEmpty(c.Type, "customer"), c.Tags,
				now, actor.Username, now, now)
			if err != nil {
				results.Errors = append(results.Errors, RecordError{ID: c.ID, Error: err.Error()})
				continue
			}
			results.Created++
		default:
			results.Errors = append(results.Errors, RecordError{ID: c.ID, Error: err.Error()})
		}
	}

	o.events.Record(ctx, "sync.contacts", "", "", map[string]interface{}{"results": results}, actor)
	return &Result{
		Message: fmt.Sprintf("Synced %d new, %d updated contacts", results.Created, results.Updated),
		Results: results,
	}, nil
}

// pushToCRM creates one CRM project from a requirement and writes the
// forward link. A requirement already carrying a project link is rejected.
func (o *Orchestrator) pushToCRM(ctx context.Context, req Request, actor Actor) (*Result, error) {
	var r models.Requirement
	err := o.db.QueryRowContext(ctx, `SELECT id, requirement_number, title,
		COALESCE(project_id,''), COALESCE(lead_id,''),
		COALESCE(customer_name,''), COALESCE(customer_email,''),
		COALESCE(customer_phone,''), COALESCE(customer_address,''),
		COALESCE(estimated_budget,0), COALESCE(priority,''), COALESCE(assigned_to,'')
		FROM requirements WHERE id = ?`, req.EntityID).
		Scan(&r.ID, &r.RequirementNumber, &r.Title, &r.ProjectID, &r.LeadID,
			&r.CustomerName, &r.CustomerEmail, &r.CustomerPhone, &r.CustomerAddress,
			&r.EstimatedBudget, &r.Priority, &r.AssignedTo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load requirement: %w", err)
	}
	if r.ProjectID != "" {
		return nil, ErrAlreadyLinked
	}

	now := timestamp()
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	num, err := NextSequence(tx, "PRJ")
	if err != nil {
		return nil, err
	}
	projectID := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO projects
		(id, project_number, name, description, status, priority,
		 client_name, client_email, client_phone, site_address,
		 budget, value, module_source, linked_requirement, assigned_to,
		 created_by, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		projectID, num, r.Title,
		"Doors & Windows requirement: "+r.RequirementNumber,
		"planning", r.Priority,
		r.CustomerName, r.CustomerEmail, r.CustomerPhone, r.CustomerAddress,
		r.EstimatedBudget, r.EstimatedBudget, "doors_windows", r.ID, r.AssignedTo,
		actor.Username, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	_, err = tx.Exec(`UPDATE requirements SET project_id=?, crm_synced_at=?, updated_at=?
		WHERE id=?`, projectID, now, now, r.ID)
	if err != nil {
		return nil, fmt.Errorf("link requirement: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	o.events.Record(ctx, "requirement.pushed_to_crm", "requirement", r.ID,
		map[string]interface{}{"project_id": projectID, "project_number": num}, actor)
	return &Result{
		Message: "Requirement pushed to CRM as project",
		Project: &PushedProject{ID: projectID, ProjectNumber: num},
	}, nil
}
