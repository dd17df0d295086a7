package main

import "dwp/internal/models"

// Type aliases so handler code and tests can use the unqualified names
// while the actual definitions live in internal/models.

type APIResponse = models.APIResponse
type Meta = models.Meta
type Project = models.Project
type Lead = models.Lead
type Contact = models.Contact
type Requirement = models.Requirement
type StatusHistoryEntry = models.StatusHistoryEntry
type DWContact = models.DWContact
type SyncEvent = models.SyncEvent
