package models

import "time"

// Item is either one serialized unit (serial set, quantity 1) or one bulk
// stack (no serial, quantity > 0). The storage layer enforces the same shape.
type Item struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ItemTypeID   int64     `gorm:"column:item_type_id;not null" json:"item_type_id"`
	Quantity     int       `gorm:"column:quantity;not null" json:"quantity"`
	SerialNumber *string   `gorm:"column:serial_number" json:"serial_number,omitempty"`
	Location     string    `gorm:"column:location;not null" json:"location"`
	Condition    string    `gorm:"column:condition;not null" json:"condition"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Item) TableName() string { return "items" }

// IsSerialized reports whether the row is a serialized unit.
func (i Item) IsSerialized() bool {
	return i.SerialNumber != nil && *i.SerialNumber != ""
}

// Serial returns the serial number or an empty string for bulk rows.
func (i Item) Serial() string {
	if i.SerialNumber == nil {
		return ""
	}
	return *i.SerialNumber
}
