package models

// APIResponse is the standard JSON envelope for all API responses.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total int `json:"total,omitempty"`
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// Project is a CRM-side project record.
type Project struct {
	ID                string  `json:"id"`
	ProjectNumber     string  `json:"project_number"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Status            string  `json:"status"`
	Priority          string  `json:"priority"`
	ClientID          string  `json:"client_id"`
	LeadID            string  `json:"lead_id"`
	ClientName        string  `json:"client_name"`
	ClientEmail       string  `json:"client_email"`
	ClientPhone       string  `json:"client_phone"`
	SiteAddress       string  `json:"site_address"`
	Address           string  `json:"address"`
	Budget            float64 `json:"budget"`
	Value             float64 `json:"value"`
	ModuleSource      string  `json:"module_source"`
	LinkedRequirement string  `json:"linked_requirement"`
	AssignedTo        string  `json:"assigned_to"`
	CreatedBy         string  `json:"created_by"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// Lead is a CRM-side sales lead.
type Lead struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Name        string  `json:"name"`
	ContactName string  `json:"contact_name"`
	Email       string  `json:"email"`
	Phone       string  `json:"phone"`
	Mobile      string  `json:"mobile"`
	Address     string  `json:"address"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	Value       float64 `json:"value"`
	Budget      float64 `json:"budget"`
	AssignedTo  string  `json:"assigned_to"`
	CreatedBy   string  `json:"created_by"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Contact is a CRM-side contact.
type Contact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Mobile      string `json:"mobile"`
	Company     string `json:"company"`
	Designation string `json:"designation"`
	Address     string `json:"address"`
	Type        string `json:"type"`
	Tags        string `json:"tags"`
	IsActive    bool   `json:"is_active"`
	CreatedBy   string `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Requirement is a Doors & Windows fabrication requirement, the module-side
// counterpart of a CRM project or lead.
type Requirement struct {
	ID                string               `json:"id"`
	RequirementNumber string               `json:"requirement_number"`
	Title             string               `json:"title"`
	ProjectID         string               `json:"project_id"`
	LeadID            string               `json:"lead_id"`
	AccountID         string               `json:"account_id"`
	CustomerName      string               `json:"customer_name"`
	CustomerEmail     string               `json:"customer_email"`
	CustomerPhone     string               `json:"customer_phone"`
	CustomerAddress   string               `json:"customer_address"`
	EstimatedBudget   float64              `json:"estimated_budget"`
	Timeline          string               `json:"timeline"`
	Status            string               `json:"status"`
	Stage             string               `json:"stage"`
	Priority          string               `json:"priority"`
	Source            string               `json:"source"`
	SyncedFromType    string               `json:"synced_from_type"`
	SyncedFromID      string               `json:"synced_from_id"`
	SyncedFromAt      string               `json:"synced_from_at"`
	CRMSyncedAt       string               `json:"crm_synced_at"`
	AssignedTo        string               `json:"assigned_to"`
	IsActive          bool                 `json:"is_active"`
	CreatedBy         string               `json:"created_by"`
	CreatedAt         string               `json:"created_at"`
	UpdatedAt         string               `json:"updated_at"`
	StatusHistory     []StatusHistoryEntry `json:"status_history,omitempty"`
}

// StatusHistoryEntry is one append-only status or stage change on a requirement.
type StatusHistoryEntry struct {
	ID            int    `json:"id"`
	RequirementID string `json:"requirement_id"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
	ChangedBy     string `json:"changed_by"`
	CreatedAt     string `json:"created_at"`
}

// DWContact is the module-side copy of a CRM contact.
type DWContact struct {
	ID           string `json:"id"`
	CRMContactID string `json:"crm_contact_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Company      string `json:"company"`
	Designation  string `json:"designation"`
	Address      string `json:"address"`
	Type         string `json:"type"`
	Tags         string `json:"tags"`
	LastSyncedAt string `json:"last_synced_at"`
	IsActive     bool   `json:"is_active"`
	CreatedBy    string `json:"created_by"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// SyncEvent is an immutable audit entry for a sync operation.
type SyncEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	Data       string `json:"data"`
	UserID     string `json:"user_id"`
	CreatedAt  string `json:"created_at"`
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID          int    `json:"id"`
	UserID      int    `json:"user_id"`
	Username    string `json:"username"`
	Action      string `json:"action"`
	Module      string `json:"module"`
	RecordID    string `json:"record_id"`
	Summary     string `json:"summary"`
	BeforeValue string `json:"before_value,omitempty"`
	AfterValue  string `json:"after_value,omitempty"`
	IPAddress   string `json:"ip_address,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	CreatedAt   string `json:"created_at"`
}
