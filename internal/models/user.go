package models

import (
	"time"
)

// User owns log entries. Users created implicitly by ingestion carry only an ID;
// Username stays NULL so bare users never collide on the unique index.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Username     *string   `json:"username" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`

	Logs []LogEntry `json:"logs,omitempty" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}
