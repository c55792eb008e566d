package dto

// QueueMetrics represents job counts of the recurring processing queue
type QueueMetrics struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	SkippedCount    int64 `json:"skipped_count"`
	FailedCount     int64 `json:"failed_count"`
}
