package items

import (
	"context"

	"github.com/angelmondragon/auditmagic/internal/repo"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) error
	Save(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, id int64) (*models.Item, error)
	FindBySerial(ctx context.Context, serial string) (*models.Item, error)
	FindMergeTarget(ctx context.Context, typeID int64, location, condition string) (*models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
	ListByType(ctx context.Context, typeID int64) ([]models.Item, error)
	ListAtLocation(ctx context.Context, location string) ([]models.Item, error)
	CountByType(ctx context.Context, typeID int64) (int64, error)
	SerialNumbersForType(ctx context.Context, typeID int64) ([]string, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	repo.Base
}

// NewRepository returns an item repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	return r.DB(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *models.Item) error {
	return r.DB(ctx).Save(item).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := r.DB(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindBySerial(ctx context.Context, serial string) (*models.Item, error) {
	var item models.Item
	if err := r.DB(ctx).First(&item, "serial_number = ?", serial).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindMergeTarget returns the oldest bulk row of the type at the same
// location and condition.
func (r *repository) FindMergeTarget(ctx context.Context, typeID int64, location, condition string) (*models.Item, error) {
	var item models.Item
	if err := r.DB(ctx).
		Where("item_type_id = ? AND serial_number IS NULL", typeID).
		Where("location = ? AND condition = ?", location, condition).
		Order("id ASC").
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := r.DB(ctx).
		Order("item_type_id ASC").
		Order("serial_number ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListByType(ctx context.Context, typeID int64) ([]models.Item, error) {
	var items []models.Item
	if err := r.DB(ctx).
		Where("item_type_id = ?", typeID).
		Order("serial_number ASC").
		Order("location ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListAtLocation(ctx context.Context, location string) ([]models.Item, error) {
	var items []models.Item
	if err := r.DB(ctx).
		Where("location = ?", location).
		Order("item_type_id ASC").
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountByType(ctx context.Context, typeID int64) (int64, error) {
	var count int64
	if err := r.DB(ctx).
		Model(&models.Item{}).
		Where("item_type_id = ?", typeID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) SerialNumbersForType(ctx context.Context, typeID int64) ([]string, error) {
	var serials []string
	if err := r.DB(ctx).
		Model(&models.Item{}).
		Where("item_type_id = ? AND serial_number IS NOT NULL", typeID).
		Order("serial_number ASC").
		Pluck("serial_number", &serials).Error; err != nil {
		return nil, err
	}
	return serials, nil
}

// Delete removes one row with a plain statement so no ORM hooks or
// associations run.
func (r *repository) Delete(ctx context.Context, id int64) error {
	res := r.DB(ctx).Exec("DELETE FROM items WHERE id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
