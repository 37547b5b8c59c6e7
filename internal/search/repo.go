package search

import (
	"context"
	"time"

	"github.com/angelmondragon/auditmagic/internal/repo"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"github.com/angelmondragon/auditmagic/pkg/enums"
	"gorm.io/gorm"
)

// Repository reads the inventory for search and keeps the search history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	SearchItems(ctx context.Context, term string, field enums.SearchField, limit int) ([]models.Item, error)
	TypesByIDs(ctx context.Context, ids []int64) ([]models.ItemType, error)
	NamesWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	SubTypesWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	SerialsWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error)
	DetailsContaining(ctx context.Context, term string, limit int) ([]string, error)

	FindHistory(ctx context.Context, query string, field *string) (*models.SearchHistory, error)
	CreateHistory(ctx context.Context, entry *models.SearchHistory) error
	TouchHistory(ctx context.Context, id int64, at time.Time) error
	TrimHistory(ctx context.Context, keep int) (int64, error)
	RecentHistory(ctx context.Context, limit int) ([]models.SearchHistory, error)
	ClearHistory(ctx context.Context) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a search repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

var searchColumns = []struct {
	field  enums.SearchField
	column string
}{
	{enums.SearchFieldItemType, "item_types.name"},
	{enums.SearchFieldSubType, "item_types.sub_type"},
	{enums.SearchFieldDetails, "item_types.details"},
	{enums.SearchFieldSerialNumber, "items.serial_number"},
}

func (r *repository) SearchItems(ctx context.Context, term string, field enums.SearchField, limit int) ([]models.Item, error) {
	like := r.Match()
	pattern := like.Contains(term)

	var match *gorm.DB
	for _, col := range searchColumns {
		if !field.Includes(col.field) {
			continue
		}
		if match == nil {
			match = r.Conn().Where(like.Clause(col.column), pattern)
		} else {
			match = match.Or(like.Clause(col.column), pattern)
		}
	}

	var items []models.Item
	if err := r.DB(ctx).
		Model(&models.Item{}).
		Select("items.*").
		Joins("JOIN item_types ON item_types.id = items.item_type_id").
		Where(match).
		Order("item_types.name ASC").
		Order("item_types.sub_type ASC").
		Order("items.id ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) TypesByIDs(ctx context.Context, ids []int64) ([]models.ItemType, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var types []models.ItemType
	if err := r.DB(ctx).
		Where("id IN ?", ids).
		Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repository) NamesWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.distinctWithPrefix(ctx, &models.ItemType{}, "name", prefix, limit)
}

func (r *repository) SubTypesWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.distinctWithPrefix(ctx, &models.ItemType{}, "sub_type", prefix, limit)
}

func (r *repository) SerialsWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	return r.distinctWithPrefix(ctx, &models.Item{}, "serial_number", prefix, limit)
}

func (r *repository) distinctWithPrefix(ctx context.Context, model any, column, prefix string, limit int) ([]string, error) {
	var values []string
	if err := r.DB(ctx).
		Model(model).
		Distinct().
		Where(column+" IS NOT NULL AND "+column+" <> ''").
		Where(r.Match().Clause(column), r.Match().Prefix(prefix)).
		Order(column + " ASC").
		Limit(limit).
		Pluck(column, &values).Error; err != nil {
		return nil, err
	}
	return values, nil
}

func (r *repository) DetailsContaining(ctx context.Context, term string, limit int) ([]string, error) {
	var details []string
	if err := r.DB(ctx).
		Model(&models.ItemType{}).
		Where(r.Match().Clause("details"), r.Match().Contains(term)).
		Order("id ASC").
		Limit(limit).
		Pluck("details", &details).Error; err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repository) FindHistory(ctx context.Context, query string, field *string) (*models.SearchHistory, error) {
	stmt := r.DB(ctx).Where("search_query = ?", query)
	if field == nil {
		stmt = stmt.Where("search_field IS NULL")
	} else {
		stmt = stmt.Where("search_field = ?", *field)
	}

	var entry models.SearchHistory
	if err := stmt.Order("id ASC").First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) CreateHistory(ctx context.Context, entry *models.SearchHistory) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) TouchHistory(ctx context.Context, id int64, at time.Time) error {
	return r.DB(ctx).
		Model(&models.SearchHistory{}).
		Where("id = ?", id).
		Update("created_at", at).Error
}

// TrimHistory deletes everything but the keep newest entries.
func (r *repository) TrimHistory(ctx context.Context, keep int) (int64, error) {
	res := r.DB(ctx).Exec(
		`DELETE FROM search_history WHERE id NOT IN (
			SELECT id FROM search_history ORDER BY created_at DESC, id DESC LIMIT ?
		)`, keep)
	return res.RowsAffected, res.Error
}

func (r *repository) RecentHistory(ctx context.Context, limit int) ([]models.SearchHistory, error) {
	var entries []models.SearchHistory
	if err := r.DB(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ClearHistory(ctx context.Context) (int64, error) {
	res := r.DB(ctx).Exec("DELETE FROM search_history")
	return res.RowsAffected, res.Error
}
