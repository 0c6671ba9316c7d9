package model

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// ImportJob is one queued book import. Path is the storage key of the
// uploaded archive, FileName the name the user uploaded it under.
type ImportJob struct {
	ID        int    `json:"id"`
	Path      string `json:"path"`
	FileName  string `json:"file_name"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	CreatedTs int64  `json:"created_ts"`
}

type FindImportJob struct {
	ID     *int    `json:"id"`
	Status *string `json:"status"`
}
