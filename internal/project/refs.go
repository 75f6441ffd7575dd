package project

import "time"

// DatasetRef records a score sheet added to a project.
type DatasetRef struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Students    int       `json:"students"`
	Subjects    []string  `json:"subjects"`
	Fingerprint string    `json:"fingerprint"`
	AddedAt     time.Time `json:"added_at"`
}

// ReportRef records a report file written for a project.
type ReportRef struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DatasetID   string    `json:"dataset_id,omitempty"`
	Bytes       int64     `json:"bytes"`
	CreatedAt   time.Time `json:"created_at"`
}
