package models

import "time"

// ItemType is the category shared by every Item of the same name and sub type.
type ItemType struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"column:name;not null" json:"name"`
	SubType      string    `gorm:"column:sub_type;not null" json:"sub_type"`
	IsSerialized bool      `gorm:"column:is_serialized;not null" json:"is_serialized"`
	Details      string    `gorm:"column:details;not null" json:"details"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ItemType) TableName() string { return "item_types" }

// DisplayName joins name and sub type the way lists show them.
func (t ItemType) DisplayName() string {
	if t.SubType == "" {
		return t.Name
	}
	return t.Name + " / " + t.SubType
}
