package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// EmbeddingDimension is the fixed length of every LogEntry embedding.
const EmbeddingDimension = 384

// LogEntry is an immutable, embedded log event owned by a User.
type LogEntry struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	UserID      string          `json:"user_id" gorm:"not null;index"`
	User        *User           `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
	RawData     datatypes.JSON  `json:"-" gorm:"type:jsonb"`
	Message     string          `json:"message" gorm:"type:text;not null"`
	Severity    string          `json:"severity" gorm:"index;not null"`
	Timestamp   time.Time       `json:"timestamp" gorm:"index;not null"`
	ThreadID    string          `json:"thread_id"`
	ThreadName  string          `json:"thread_name"`
	StackTrace  *string         `json:"stack_trace" gorm:"type:text"`
	ProjectName string          `json:"project_name" gorm:"index;not null"`
	Embedding   pgvector.Vector `json:"-" gorm:"type:vector(384);not null"`
}

func (LogEntry) TableName() string {
	return "logs"
}

// LogRecord is one record of an ingestion batch as sent by the client SDK.
type LogRecord struct {
	Data        string  `json:"data" binding:"required"`
	Severity    string  `json:"severity" binding:"required"`
	Timestamp   string  `json:"timestamp" binding:"required"`
	ThreadID    string  `json:"threadId" binding:"required"`
	ThreadName  string  `json:"threadName" binding:"required"`
	StackTrace  *string `json:"stackTrace"`
	ProjectName string  `json:"project_name" binding:"required"`
	UserID      string  `json:"user_Id" binding:"required"`
}

// SourceMetadata is the non-embedding view of a LogEntry returned with answers.
type SourceMetadata struct {
	ID          uint    `json:"id"`
	UserID      string  `json:"user_id"`
	Message     string  `json:"message"`
	Severity    string  `json:"severity"`
	Timestamp   string  `json:"timestamp"`
	ThreadID    string  `json:"thread_id"`
	ThreadName  string  `json:"thread_name"`
	StackTrace  *string `json:"stack_trace"`
	ProjectName string  `json:"project_name"`
}

// Source describes one retrieved entry backing an answer.
type Source struct {
	LogID   uint           `json:"log_id"`
	Content SourceMetadata `json:"content"`
}

// Metadata returns the entry without its embedding and raw payload.
func (e LogEntry) Metadata() SourceMetadata {
	return SourceMetadata{
		ID:          e.ID,
		UserID:      e.UserID,
		Message:     e.Message,
		Severity:    e.Severity,
		Timestamp:   e.Timestamp.Format("2006-01-02 15:04:05"),
		ThreadID:    e.ThreadID,
		ThreadName:  e.ThreadName,
		StackTrace:  e.StackTrace,
		ProjectName: e.ProjectName,
	}
}
