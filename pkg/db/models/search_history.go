package models

import "time"

// SearchHistory is one remembered search; only the newest few are kept.
type SearchHistory struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SearchQuery string    `gorm:"column:search_query;not null" json:"search_query"`
	SearchField *string   `gorm:"column:search_field" json:"search_field,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (SearchHistory) TableName() string { return "search_history" }
