package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusRunning   JobStatus = "RUNNING"   // in progress
	JobStatusTextOK    JobStatus = "TEXT_OK"   // stage 1 completed (text extracted and persisted)
	JobStatusParsed    JobStatus = "PARSED"    // stage 2 completed (record written)
	JobStatusValidated JobStatus = "VALIDATED" // stage 3 completed (report written)
	JobStatusFailed    JobStatus = "FAILED"    // terminal failure
)
