package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusSkipped    DocumentStatus = "skipped"
	StatusFailed     DocumentStatus = "failed"
)

// Document tracks one uploaded course file through the ingestion
// pipeline. CourseTitle is filled once the worker has parsed the file.
type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	CourseTitle string         `json:"course_title,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentIngested is the queue event announcing a freshly uploaded
// document. IngestedAt is the upload time, so consumers can measure how
// long the event sat in the queue.
type DocumentIngested struct {
	DocumentID string    `json:"document_id"`
	IngestedAt time.Time `json:"ingested_at"`
}
