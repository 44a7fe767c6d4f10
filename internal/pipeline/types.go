package pipeline

import "time"

// RunStatus represents the current state of a metrics run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// IngestJobStatus represents the state of a single dataset load
type IngestJobStatus string

const (
	IngestStatusQueued     IngestJobStatus = "queued"
	IngestStatusProcessing IngestJobStatus = "processing"
	IngestStatusCompleted  IngestJobStatus = "completed"
	IngestStatusFailed     IngestJobStatus = "failed"
)

// Run tracks a single execution of the metrics aggregation for a period.
// Each run is a full recomputation from the source tables; re-running the
// same period replaces the previous brand_metrics rows.
type Run struct {
	ID            int64      `json:"id"`
	PeriodStart   time.Time  `json:"period_start"`
	PeriodEnd     time.Time  `json:"period_end"`
	Status        RunStatus  `json:"status"`
	TotalBrands   int        `json:"total_brands"`
	OutlierBrands int        `json:"outlier_brands"`
	ProcessedRows int        `json:"processed_rows"`
	RejectedRows  int        `json:"rejected_rows"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// IngestJob tracks the loading of a single dataset file
type IngestJob struct {
	ID           int64           `json:"id"`
	Dataset      string          `json:"dataset"`
	FilePath     string          `json:"file_path"`
	Status       IngestJobStatus `json:"status"`
	RowCount     int             `json:"row_count"`
	RejectCount  int             `json:"reject_count"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
}
