package main

import (
	"fmt"
	"net/mail"
	"strings"
)

// ValidationError represents a structured validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects multiple field errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (ve *ValidationErrors) Add(field, message string) {
	ve.Errors = append(ve.Errors, ValidationError{Field: field, Message: message})
}

func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

func (ve *ValidationErrors) Error() string {
	msgs := make([]string, len(ve.Errors))
	for i, e := range ve.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return strings.Join(msgs, "; ")
}

// requireField checks a required string field is non-empty
func requireField(ve *ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		ve.Add(field, "is required")
	}
}

// validateEnum checks a field is one of allowed values
func validateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	if value == "" {
		return // only validate if set; combine with requireField if mandatory
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	ve.Add(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// validateNonNegativeFloat checks a field is >= 0
func validateNonNegativeFloat(ve *ValidationErrors, field string, value float64) {
	if value < 0 {
		ve.Add(field, "must be non-negative")
	}
}

// validateEmail checks a field is a valid email (if non-empty)
func validateEmail(ve *ValidationErrors, field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		ve.Add(field, "must be a valid email address")
	}
}

// validateForeignKey checks that a referenced record exists
func validateForeignKey(ve *ValidationErrors, field, table, id string) {
	if id == "" {
		return
	}
	var count int
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id=?", table), id).Scan(&count)
	if err != nil || count == 0 {
		ve.Add(field, fmt.Sprintf("references non-existent %s: %s", table, id))
	}
}

// Common enum values
var (
	// These MUST match DB CHECK constraints in db.go
	validProjectStatuses     = []string{"planning", "active", "on_hold", "completed", "cancelled"}
	validLeadStatuses        = []string{"new", "contacted", "qualified", "proposal", "negotiation", "converted", "lost"}
	validContactTypes        = []string{"customer", "vendor", "partner", "other"}
	validRequirementStatuses = []string{"new", "assessment", "quoted", "approved", "in_production", "installed", "closed", "cancelled"}
	validPriorities          = []string{"low", "medium", "high", "urgent"}
)
