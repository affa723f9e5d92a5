package models

import "time"

const SnapshotVersion = "1.0"

// Snapshot is the export file document.
type Snapshot struct {
	Version      string           `json:"version"`
	ExportDate   time.Time        `json:"exportDate"`
	UserProfile  *UserProfile     `json:"userProfile"`
	StepsData    []StepEntry      `json:"stepsData"`
	SyncTracking *SyncTracking    `json:"syncTracking"`
	Metadata     SnapshotMetadata `json:"metadata"`
}

type SnapshotMetadata struct {
	TotalEntries int       `json:"totalEntries"`
	DateRange    DateRange `json:"dateRange"`
}

type DateRange struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// ImportMode selects how an imported snapshot is applied.
type ImportMode string

const (
	ImportOverwrite ImportMode = "overwrite"
	ImportMerge     ImportMode = "merge"
)

// ImportResult counts what an import did.
type ImportResult struct {
	Mode     ImportMode `json:"mode"`
	Added    int        `json:"added"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Rejected int        `json:"rejected"`
}
