package ledger

import (
	"context"
	"time"

	"github.com/angelmondragon/auditmagic/internal/repo"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"github.com/angelmondragon/auditmagic/pkg/pagination"
	"gorm.io/gorm"
)

//go:generate mockgen -source=repo.go -destination=repository_mock.go -package=ledger

// Repository manages persistence for ledger entries. It never updates rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.Transaction) error
	ListByTypes(ctx context.Context, filter Filter) ([]models.Transaction, error)
	ListRecent(ctx context.Context, limit int) ([]models.Transaction, error)
	DeleteByType(ctx context.Context, typeID int64) (int64, error)
}

// Filter narrows ListByTypes. Zero times are open bounds; After resumes a
// previous page.
type Filter struct {
	TypeIDs []int64
	From    time.Time
	To      time.Time
	After   *pagination.Cursor
	Limit   int
}

type repository struct {
	repo.Base
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) Create(ctx context.Context, entry *models.Transaction) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) ListByTypes(ctx context.Context, filter Filter) ([]models.Transaction, error) {
	query := r.DB(ctx).
		Model(&models.Transaction{}).
		Where("item_type_id IN ?", filter.TypeIDs)

	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at <= ?", filter.To.UTC())
	}
	if filter.After != nil {
		at := filter.After.CreatedAt.UTC()
		query = query.Where("(created_at > ?) OR (created_at = ? AND id > ?)", at, at, filter.After.ID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.Transaction
	if err := query.
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]models.Transaction, error) {
	var entries []models.Transaction
	if err := r.DB(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) DeleteByType(ctx context.Context, typeID int64) (int64, error) {
	res := r.DB(ctx).
		Where("item_type_id = ?", typeID).
		Delete(&models.Transaction{})
	return res.RowsAffected, res.Error
}
