package ledger

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RunRunning   string = "RUNNING"
	RunCompleted string = "COMPLETED"
	RunFailed    string = "FAILED"
	RunCancelled string = "CANCELLED"
)

const (
	JobRunning   string = "RUNNING"
	JobCompleted string = "COMPLETED"
	JobFailed    string = "FAILED"
)

type Run struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ModelId   string `gorm:"not null"`
	ModelName string `gorm:"not null"`
	Precision string `gorm:"size:8;not null"`
	Quants    datatypes.JSON

	Status         string `gorm:"size:20;not null"`
	StartTime      time.Time
	CompletionTime sql.NullTime
	Error          sql.NullString

	Artifacts    []Artifact    `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
	Publications []Publication `gorm:"foreignKey:RunId;constraint:OnDelete:CASCADE"`
}

type Artifact struct {
	RunId uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quant string    `gorm:"primaryKey"`

	Path           string `gorm:"not null"`
	SizeBytes      int64  `gorm:"default:0"`
	Status         string `gorm:"size:20;not null"`
	StartTime      time.Time
	CompletionTime sql.NullTime
}

type Publication struct {
	Id    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunId uuid.UUID `gorm:"type:uuid;not null"`

	Target         string `gorm:"size:40;not null"`
	Status         string `gorm:"size:20;not null"`
	StartTime      time.Time
	CompletionTime sql.NullTime
	Error          sql.NullString
}
