package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionSweep deactivates sessions idle past the timeout.
	TaskSessionSweep = "session:sweep"
	// TaskAuditRetention prunes audit entries outside the retention window.
	TaskAuditRetention = "audit:retention"
)
