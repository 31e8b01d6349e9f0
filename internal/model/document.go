package model

import "time"

// Document describes one uploaded file kept in the evidence store.
type Document struct {
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RetrievedChunk is one retrieval hit, nearest first by Distance.
type RetrievedChunk struct {
	Source   string  `json:"source"`
	Text     string  `json:"text"`
	Offset   int     `json:"offset"`
	Distance float32 `json:"distance"`
}
