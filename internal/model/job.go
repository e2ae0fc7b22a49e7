package model

import "time"

// Job represents one managed job definition
type Job struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	JobName   string    `json:"jobName"`
	GroupCode string    `json:"groupCode"`
	Severity  int       `json:"severity"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobInfo is the list-view projection of a job joined with its group
type JobInfo struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	JobName     string    `json:"jobName"`
	GroupCode   string    `json:"groupCode"`
	GroupName   string    `json:"groupName"`
	ServiceName string    `json:"serviceName"`
	Severity    int       `json:"severity"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Snapshot returns the job's observable fields for audit capture
func (j *Job) Snapshot() map[string]any {
	return map[string]any{
		"type":       j.Type,
		"job_name":   j.JobName,
		"group_code": j.GroupCode,
		"severity":   j.Severity,
	}
}
