package models

import "time"

// SyncTracking is the sync watermark.
type SyncTracking struct {
	LastSyncedDate *string    `json:"lastSyncedDate"`
	LastSyncedTime *time.Time `json:"lastSyncedTime"`
}

// SyncError records one failed day or call during a sync run.
type SyncError struct {
	Date    string `json:"date,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// SyncResult describes one sync invocation.
type SyncResult struct {
	RunID                  string      `json:"runId"`
	Success                bool        `json:"success"`
	HealthConnectAvailable bool        `json:"healthConnectAvailable"`
	RangeSynced            bool        `json:"rangeSynced"`
	StartDate              string      `json:"startDate,omitempty"`
	EndDate                string      `json:"endDate,omitempty"`
	DaysSynced             int         `json:"daysSynced"`
	TodaySteps             *int        `json:"todaySteps,omitempty"`
	Errors                 []SyncError `json:"errors"`
	Error                  string      `json:"error,omitempty"`
}
