// Package grouping derives the per-type roll-up of items. Rows are computed
// on every read and never stored.
package grouping

import (
	"slices"

	"github.com/angelmondragon/auditmagic/pkg/db/models"
)

// Row aggregates every item of one type.
type Row struct {
	ItemType      models.ItemType `json:"item_type"`
	ItemIDs       []int64         `json:"item_ids"`
	SerialNumbers []string        `json:"serial_numbers"`
	TotalQuantity int             `json:"total_quantity"`
	ItemCount     int             `json:"item_count"`
	Locations     []string        `json:"locations"`

	members map[string]int64
}

// Build rolls items up into one row for itemType. Items of other types are
// ignored.
func Build(itemType models.ItemType, items []models.Item) Row {
	row := Row{
		ItemType:      itemType,
		ItemIDs:       []int64{},
		SerialNumbers: []string{},
		Locations:     []string{},
		members:       make(map[string]int64),
	}
	for _, item := range items {
		if item.ItemTypeID != itemType.ID {
			continue
		}
		row.ItemIDs = append(row.ItemIDs, item.ID)
		row.TotalQuantity += item.Quantity
		row.ItemCount++
		if serial := item.Serial(); serial != "" {
			row.SerialNumbers = append(row.SerialNumbers, serial)
			row.members[serial] = item.ID
		}
		if item.Location != "" && !slices.Contains(row.Locations, item.Location) {
			row.Locations = append(row.Locations, item.Location)
		}
	}
	slices.Sort(row.ItemIDs)
	slices.Sort(row.SerialNumbers)
	slices.Sort(row.Locations)
	return row
}

// ItemIDForSerial returns the member item carrying serial.
func (r Row) ItemIDForSerial(serial string) (int64, bool) {
	id, ok := r.members[serial]
	return id, ok
}
