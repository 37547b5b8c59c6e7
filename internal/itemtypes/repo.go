package itemtypes

import (
	"context"

	"github.com/angelmondragon/auditmagic/internal/repo"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for item types.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, itemType *models.ItemType) error
	Save(ctx context.Context, itemType *models.ItemType) error
	FindByID(ctx context.Context, id int64) (*models.ItemType, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.ItemType, error)
	FindByNameAndSubType(ctx context.Context, name, subType string) (*models.ItemType, error)
	List(ctx context.Context) ([]models.ItemType, error)
	CountItems(ctx context.Context, typeID int64) (int64, error)
	DeleteItems(ctx context.Context, typeID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	DistinctNames(ctx context.Context, prefix string, limit int) ([]string, error)
	DistinctSubTypes(ctx context.Context, name, prefix string, limit int) ([]string, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an item type repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, itemType *models.ItemType) error {
	return r.DB(ctx).Create(itemType).Error
}

func (r *repository) Save(ctx context.Context, itemType *models.ItemType) error {
	return r.DB(ctx).Save(itemType).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.ItemType, error) {
	var itemType models.ItemType
	if err := r.DB(ctx).First(&itemType, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &itemType, nil
}

// FindByIDForUpdate loads the type and, on Postgres, row-locks it until the
// surrounding transaction ends. SQLite already holds the write lock.
func (r *repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.ItemType, error) {
	var itemType models.ItemType
	if err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&itemType, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &itemType, nil
}

func (r *repository) FindByNameAndSubType(ctx context.Context, name, subType string) (*models.ItemType, error) {
	var itemType models.ItemType
	if err := r.DB(ctx).
		Where("name = ? AND sub_type = ?", name, subType).
		First(&itemType).Error; err != nil {
		return nil, err
	}
	return &itemType, nil
}

func (r *repository) List(ctx context.Context) ([]models.ItemType, error) {
	var types []models.ItemType
	if err := r.DB(ctx).
		Order("name ASC").
		Order("sub_type ASC").
		Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

func (r *repository) CountItems(ctx context.Context, typeID int64) (int64, error) {
	var count int64
	if err := r.DB(ctx).
		Model(&models.Item{}).
		Where("item_type_id = ?", typeID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) DeleteItems(ctx context.Context, typeID int64) (int64, error) {
	res := r.DB(ctx).Exec("DELETE FROM items WHERE item_type_id = ?", typeID)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res := r.DB(ctx).Delete(&models.ItemType{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DistinctNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	var names []string
	query := r.DB(ctx).
		Model(&models.ItemType{}).
		Distinct().
		Where(r.Match().Clause("name"), r.Match().Prefix(prefix)).
		Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (r *repository) DistinctSubTypes(ctx context.Context, name, prefix string, limit int) ([]string, error) {
	var subTypes []string
	query := r.DB(ctx).
		Model(&models.ItemType{}).
		Distinct().
		Where("sub_type <> ''").
		Where(r.Match().Clause("sub_type"), r.Match().Prefix(prefix)).
		Order("sub_type ASC")
	if name != "" {
		query = query.Where("name = ?", name)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("sub_type", &subTypes).Error; err != nil {
		return nil, err
	}
	return subTypes, nil
}
