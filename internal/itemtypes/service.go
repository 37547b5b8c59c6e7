package itemtypes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/metrics"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the type registry.
type Service interface {
	ResolveOrCreate(ctx context.Context, input ResolveInput) (*models.ItemType, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*models.ItemType, error)
	Delete(ctx context.Context, id int64) (*DeleteResult, error)
	Lookup(ctx context.Context, name, subType string) (*models.ItemType, bool, error)
	Get(ctx context.Context, id int64) (*models.ItemType, error)
	List(ctx context.Context) ([]models.ItemType, error)
	AutocompleteNames(ctx context.Context, prefix string, limit int) ([]string, error)
	AutocompleteSubTypes(ctx context.Context, name, prefix string, limit int) ([]string, error)
}

// ResolveInput identifies a type by name and sub type and carries the flag
// and details used when it has to be created.
type ResolveInput struct {
	Name         string
	SubType      string
	IsSerialized bool
	Details      string
}

// UpdateInput holds optional field changes. Nil fields are left alone.
type UpdateInput struct {
	Name         *string
	SubType      *string
	Details      *string
	IsSerialized *bool
}

// DeleteResult reports what a type deletion removed.
type DeleteResult struct {
	TypeID              int64 `json:"type_id"`
	ItemsDeleted        int64 `json:"items_deleted"`
	TransactionsDeleted int64 `json:"transactions_deleted"`
}

type service struct {
	repo    Repository
	ledger  ledger.Service
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.InventoryMetrics
}

// NewService builds the type registry. metrics may be nil.
func NewService(repo Repository, ledgerSvc ledger.Service, tx txRunner, logg *logger.Logger, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item type repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, ledger: ledgerSvc, tx: tx, logg: logg, metrics: m}, nil
}

func (s *service) ResolveOrCreate(ctx context.Context, input ResolveInput) (result *models.ItemType, err error) {
	defer s.observe("types.resolve", time.Now(), &err)

	name := strings.TrimSpace(input.Name)
	subType := strings.TrimSpace(input.SubType)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item type name is required")
	}

	var created bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		existing, err := txRepo.FindByNameAndSubType(ctx, name, subType)
		switch {
		case err == nil:
			if existing.IsSerialized != input.IsSerialized {
				return conflictError(existing)
			}
			result = existing
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: find item type")
		}

		itemType := &models.ItemType{
			Name:         name,
			SubType:      subType,
			IsSerialized: input.IsSerialized,
			Details:      strings.TrimSpace(input.Details),
		}
		if err := txRepo.Create(ctx, itemType); err != nil {
			if db.IsUniqueViolation(err, db.ConstraintItemTypeNameSubType) {
				return pkgerrors.Newf(pkgerrors.CodeTypeConflict, "item type %q already exists", displayName(name, subType))
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: create item type")
		}
		result = itemType
		created = true
		return nil
	})
	if err != nil {
		return nil, asCoded(err, "resolve item type")
	}

	if created {
		logCtx := s.logg.WithItemTypeID(ctx, result.ID)
		logCtx = s.logg.WithField(logCtx, "is_serialized", result.IsSerialized)
		s.logg.Info(logCtx, "itemtypes.created")
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, id int64, input UpdateInput) (result *models.ItemType, err error) {
	defer s.observe("types.update", time.Now(), &err)

	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item type name cannot be empty")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		itemType, err := txRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOrStorage(err, id)
		}

		if input.IsSerialized != nil && *input.IsSerialized != itemType.IsSerialized {
			count, err := txRepo.CountItems(ctx, id)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: count items of type")
			}
			if count > 0 {
				return pkgerrors.Newf(pkgerrors.CodeImmutableFlag,
					"cannot change serialization of %q: %d item(s) exist", itemType.DisplayName(), count).
					WithDetails(map[string]any{"item_count": count, "is_serialized": itemType.IsSerialized})
			}
			itemType.IsSerialized = *input.IsSerialized
		}

		name, subType := itemType.Name, itemType.SubType
		if input.Name != nil {
			name = strings.TrimSpace(*input.Name)
		}
		if input.SubType != nil {
			subType = strings.TrimSpace(*input.SubType)
		}
		if name != itemType.Name || subType != itemType.SubType {
			other, err := txRepo.FindByNameAndSubType(ctx, name, subType)
			switch {
			case err == nil && other.ID != itemType.ID:
				return conflictError(other)
			case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: find item type")
			}
			itemType.Name, itemType.SubType = name, subType
		}
		if input.Details != nil {
			itemType.Details = strings.TrimSpace(*input.Details)
		}

		if err := txRepo.Save(ctx, itemType); err != nil {
			if db.IsUniqueViolation(err, db.ConstraintItemTypeNameSubType) {
				return pkgerrors.Newf(pkgerrors.CodeTypeConflict, "item type %q already exists", itemType.DisplayName())
			}
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: update item type")
		}
		result = itemType
		return nil
	})
	if err != nil {
		return nil, asCoded(err, "update item type")
	}

	s.logg.Info(s.logg.WithItemTypeID(ctx, id), "itemtypes.updated")
	return result, nil
}

// Delete removes the type with its items and its whole ledger history, in
// that order, inside one unit of work.
func (s *service) Delete(ctx context.Context, id int64) (result *DeleteResult, err error) {
	defer s.observe("types.delete", time.Now(), &err)

	result = &DeleteResult{TypeID: id}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		if _, err := txRepo.FindByIDForUpdate(ctx, id); err != nil {
			return notFoundOrStorage(err, id)
		}

		purged, err := s.ledger.WithTx(tx).PurgeType(ctx, id)
		if err != nil {
			return err
		}
		result.TransactionsDeleted = purged

		items, err := txRepo.DeleteItems(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: delete items of type")
		}
		result.ItemsDeleted = items

		if err := txRepo.Delete(ctx, id); err != nil {
			return notFoundOrStorage(err, id)
		}
		return nil
	})
	if err != nil {
		return nil, asCoded(err, "delete item type")
	}

	logCtx := s.logg.WithFields(s.logg.WithItemTypeID(ctx, id), map[string]any{
		"items_deleted":        result.ItemsDeleted,
		"transactions_deleted": result.TransactionsDeleted,
	})
	if result.TransactionsDeleted > 0 {
		s.logg.Warn(logCtx, "itemtypes.deleted with ledger history")
	} else {
		s.logg.Info(logCtx, "itemtypes.deleted")
	}
	return result, nil
}

func (s *service) Lookup(ctx context.Context, name, subType string) (*models.ItemType, bool, error) {
	itemType, err := s.repo.FindByNameAndSubType(ctx, strings.TrimSpace(name), strings.TrimSpace(subType))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: lookup item type")
	}
	return itemType, true, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.ItemType, error) {
	itemType, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrStorage(err, id)
	}
	return itemType, nil
}

func (s *service) List(ctx context.Context) ([]models.ItemType, error) {
	types, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: list item types")
	}
	return types, nil
}

func (s *service) AutocompleteNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	names, err := s.repo.DistinctNames(ctx, strings.TrimSpace(prefix), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: autocomplete names")
	}
	return names, nil
}

func (s *service) AutocompleteSubTypes(ctx context.Context, name, prefix string, limit int) ([]string, error) {
	subTypes, err := s.repo.DistinctSubTypes(ctx, strings.TrimSpace(name), strings.TrimSpace(prefix), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: autocomplete sub types")
	}
	return subTypes, nil
}

func (s *service) observe(operation string, started time.Time, err *error) {
	s.metrics.Observe(operation, started, *err)
}

func conflictError(existing *models.ItemType) error {
	state := "non-serialized"
	if existing.IsSerialized {
		state = "serialized"
	}
	return pkgerrors.Newf(pkgerrors.CodeTypeConflict, "item type %q already exists as %s", existing.DisplayName(), state).
		WithDetails(map[string]any{"item_type_id": existing.ID, "is_serialized": existing.IsSerialized})
}

func notFoundOrStorage(err error, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "item type %d not found", id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: load item type")
}

// asCoded keeps coded errors and wraps commit failures as storage errors.
func asCoded(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: "+action)
}

func displayName(name, subType string) string {
	return models.ItemType{Name: name, SubType: subType}.DisplayName()
}
