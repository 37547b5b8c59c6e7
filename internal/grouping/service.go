package grouping

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/auditmagic/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"gorm.io/gorm"
)

type typeReader interface {
	FindByID(ctx context.Context, id int64) (*models.ItemType, error)
	List(ctx context.Context) ([]models.ItemType, error)
}

type itemReader interface {
	ListByType(ctx context.Context, typeID int64) ([]models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
}

// Service builds grouped rows straight from the item and type tables.
type Service interface {
	GroupByType(ctx context.Context, typeID int64) (*Row, error)
	ListGroups(ctx context.Context, serializedOnly bool) ([]Row, error)
}

type service struct {
	types typeReader
	items itemReader
}

// NewService wires the aggregation view over the provided readers.
func NewService(types typeReader, items itemReader) (Service, error) {
	if types == nil {
		return nil, fmt.Errorf("item type reader required")
	}
	if items == nil {
		return nil, fmt.Errorf("item reader required")
	}
	return &service{types: types, items: items}, nil
}

func (s *service) GroupByType(ctx context.Context, typeID int64) (*Row, error) {
	itemType, err := s.types.FindByID(ctx, typeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "item type %d not found", typeID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: load item type")
	}
	items, err := s.items.ListByType(ctx, typeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: list items of type")
	}
	row := Build(*itemType, items)
	return &row, nil
}

// ListGroups returns one row per type that currently has items, in type
// name order.
func (s *service) ListGroups(ctx context.Context, serializedOnly bool) ([]Row, error) {
	types, err := s.types.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: list item types")
	}
	items, err := s.items.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: list items")
	}

	byType := make(map[int64][]models.Item)
	for _, item := range items {
		byType[item.ItemTypeID] = append(byType[item.ItemTypeID], item)
	}

	rows := make([]Row, 0, len(byType))
	for _, itemType := range types {
		if serializedOnly && !itemType.IsSerialized {
			continue
		}
		members := byType[itemType.ID]
		if len(members) == 0 {
			continue
		}
		rows = append(rows, Build(itemType, members))
	}
	return rows, nil
}
