package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RenderLog is one finished render request.
type RenderLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID     string         `gorm:"size:64;index" json:"request_id"`
	Chart         string         `gorm:"size:32;index" json:"chart"`
	RequestedType string         `gorm:"size:64" json:"requested_type,omitempty"`
	Format        string         `gorm:"size:8;index" json:"format"`
	Quality       int            `json:"quality"`
	Width         int            `json:"width"`
	Height        int            `json:"height"`
	Bytes         int            `json:"bytes"`
	DurationMs    int64          `json:"duration_ms"`
	Success       bool           `gorm:"index" json:"success"`
	ErrorKind     string         `gorm:"size:32" json:"error_kind,omitempty"`
	ErrorCategory string         `gorm:"size:64" json:"error_category,omitempty"`
	ErrorMessage  string         `gorm:"type:text" json:"error_message,omitempty"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
}

// BeforeCreate sets UUID if not already set
func (r *RenderLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// GetAllModels returns every model managed by migrations.
func GetAllModels() []interface{} {
	return []interface{}{
		&RenderLog{},
	}
}
