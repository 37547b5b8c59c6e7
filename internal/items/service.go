package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/auditmagic/internal/grouping"
	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"github.com/angelmondragon/auditmagic/pkg/enums"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/metrics"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service is the unit store. Every mutation and its ledger entries commit
// together or not at all.
type Service interface {
	CreateBulk(ctx context.Context, input CreateBulkInput) (*models.Item, error)
	CreateSerializedUnit(ctx context.Context, input CreateUnitInput) (*models.Item, error)
	CreateOrMergeBulk(ctx context.Context, input CreateBulkInput) (*MergeResult, error)
	AddQuantity(ctx context.Context, itemID int64, amount int, notes string) (*models.Item, error)
	RemoveQuantity(ctx context.Context, itemID int64, amount int, notes string) (*models.Item, error)
	EditItem(ctx context.Context, itemID int64, input EditItemInput, reason string) (*models.Item, error)
	DeleteBulkItem(ctx context.Context, itemID int64, notes string) error
	DeleteSerializedUnits(ctx context.Context, typeID int64, serials []string, notes string) (int, error)

	Get(ctx context.Context, id int64) (*models.Item, error)
	ListByType(ctx context.Context, typeID int64) ([]models.Item, error)
	FindBySerial(ctx context.Context, serial string) (*models.Item, error)
	SerialNumbersForType(ctx context.Context, typeID int64) ([]string, error)
	ListAtLocation(ctx context.Context, location string) ([]models.Item, error)
}

// CreateBulkInput describes a bulk stack to create or merge.
type CreateBulkInput struct {
	TypeID    int64
	Quantity  int
	Location  string
	Condition string
	Notes     string
}

// CreateUnitInput describes one serialized unit.
type CreateUnitInput struct {
	TypeID       int64
	SerialNumber string
	Location     string
	Condition    string
	Notes        string
}

// EditItemInput holds optional field changes. Nil fields are left alone.
type EditItemInput struct {
	Quantity     *int
	Location     *string
	Condition    *string
	SerialNumber *string
	ItemTypeID   *int64
}

// MergeResult is the outcome of CreateOrMergeBulk.
type MergeResult struct {
	Item   *models.Item `json:"item"`
	Merged bool         `json:"merged"`
}

type service struct {
	repo    Repository
	types   itemtypes.Repository
	ledger  ledger.Service
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.InventoryMetrics
}

// NewService wires the unit store. metrics may be nil.
func NewService(repo Repository, types itemtypes.Repository, ledgerSvc ledger.Service, tx txRunner, logg *logger.Logger, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	if types == nil {
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
	return &service{repo: repo, types: types, ledger: ledgerSvc, tx: tx, logg: logg, metrics: m}, nil
}

func (s *service) CreateBulk(ctx context.Context, input CreateBulkInput) (*models.Item, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.Newf(pkgerrors.CodeSerialization, "bulk quantity must be at least 1, got %d", input.Quantity)
	}

	var item *models.Item
	err := s.run(ctx, "items.create_bulk", func(u *unitOfWork) error {
		itemType, err := u.lockType(input.TypeID)
		if err != nil {
			return err
		}
		if itemType.IsSerialized {
			return serializedTypeError(itemType)
		}
		item, err = u.createBulk(itemType, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) CreateSerializedUnit(ctx context.Context, input CreateUnitInput) (*models.Item, error) {
	serial := strings.TrimSpace(input.SerialNumber)
	if serial == "" {
		return nil, pkgerrors.New(pkgerrors.CodeSerialization, "serialized units require a serial number")
	}

	var item *models.Item
	err := s.run(ctx, "items.create_unit", func(u *unitOfWork) error {
		itemType, err := u.lockType(input.TypeID)
		if err != nil {
			return err
		}
		if !itemType.IsSerialized {
			return pkgerrors.Newf(pkgerrors.CodeSerialization,
				"item type %q is not serialized; add stock by quantity", itemType.DisplayName())
		}
		if err := u.ensureSerialFree(serial); err != nil {
			return err
		}

		before, err := u.groupSize(itemType.ID)
		if err != nil {
			return err
		}

		item = &models.Item{
			ItemTypeID:   itemType.ID,
			Quantity:     1,
			SerialNumber: &serial,
			Location:     strings.TrimSpace(input.Location),
			Condition:    strings.TrimSpace(input.Condition),
		}
		if err := u.items.Create(u.ctx, item); err != nil {
			return classifyWrite(err, "create unit")
		}

		notes := strings.TrimSpace(input.Notes)
		if before == 0 {
			notes = ledger.NoteInitialInventory
		}
		return u.append(ledger.Entry{
			ItemTypeID:     itemType.ID,
			Type:           enums.TransactionTypeAdd,
			QuantityChange: 1,
			QuantityBefore: before,
			QuantityAfter:  before + 1,
			SerialNumber:   serial,
			Notes:          notes,
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) CreateOrMergeBulk(ctx context.Context, input CreateBulkInput) (*MergeResult, error) {
	if input.Quantity < 1 {
		return nil, pkgerrors.Newf(pkgerrors.CodeSerialization, "bulk quantity must be at least 1, got %d", input.Quantity)
	}

	result := &MergeResult{}
	err := s.run(ctx, "items.create_or_merge", func(u *unitOfWork) error {
		itemType, err := u.lockType(input.TypeID)
		if err != nil {
			return err
		}
		if itemType.IsSerialized {
			return serializedTypeError(itemType)
		}

		target, err := u.items.FindMergeTarget(u.ctx, itemType.ID,
			strings.TrimSpace(input.Location), strings.TrimSpace(input.Condition))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Item, err = u.createBulk(itemType, input)
			return err
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: find merge target")
		}

		before := target.Quantity
		target.Quantity += input.Quantity
		if err := u.items.Save(u.ctx, target); err != nil {
			return classifyWrite(err, "merge item")
		}

		notes := strings.TrimSpace(input.Notes)
		if notes == "" {
			notes = ledger.NoteMerged
		}
		if err := u.append(ledger.Entry{
			ItemTypeID:     itemType.ID,
			Type:           enums.TransactionTypeAdd,
			QuantityChange: input.Quantity,
			QuantityBefore: before,
			QuantityAfter:  target.Quantity,
			Notes:          notes,
		}); err != nil {
			return err
		}
		result.Item = target
		result.Merged = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AddQuantity(ctx context.Context, itemID int64, amount int, notes string) (*models.Item, error) {
	if amount < 1 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "amount to add must be at least 1, got %d", amount)
	}

	ctx = s.logg.WithItemID(ctx, itemID)
	var item *models.Item
	err := s.run(ctx, "items.add_quantity", func(u *unitOfWork) error {
		var err error
		item, err = u.loadBulk(itemID)
		if err != nil {
			return err
		}

		before := item.Quantity
		item.Quantity += amount
		if err := u.items.Save(u.ctx, item); err != nil {
			return classifyWrite(err, "add quantity")
		}
		return u.append(ledger.Entry{
			ItemTypeID:     item.ItemTypeID,
			Type:           enums.TransactionTypeAdd,
			QuantityChange: amount,
			QuantityBefore: before,
			QuantityAfter:  item.Quantity,
			Notes:          strings.TrimSpace(notes),
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveQuantity takes amount off a bulk row. Removing everything deletes the
// row after its REMOVE entry is written; the returned item then has quantity 0.
func (s *service) RemoveQuantity(ctx context.Context, itemID int64, amount int, notes string) (*models.Item, error) {
	if amount < 1 {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "amount to remove must be at least 1, got %d", amount)
	}

	ctx = s.logg.WithItemID(ctx, itemID)
	var item *models.Item
	err := s.run(ctx, "items.remove_quantity", func(u *unitOfWork) error {
		var err error
		item, err = u.loadBulk(itemID)
		if err != nil {
			return err
		}
		if amount > item.Quantity {
			return pkgerrors.Newf(pkgerrors.CodeInsufficientQuantity,
				"cannot remove %d: only %d available", amount, item.Quantity).
				WithDetails(map[string]any{"available": item.Quantity, "requested": amount})
		}

		before := item.Quantity
		item.Quantity -= amount
		if err := u.append(ledger.Entry{
			ItemTypeID:     item.ItemTypeID,
			Type:           enums.TransactionTypeRemove,
			QuantityChange: -amount,
			QuantityBefore: before,
			QuantityAfter:  item.Quantity,
			Notes:          strings.TrimSpace(notes),
		}); err != nil {
			return err
		}

		if item.Quantity == 0 {
			if err := u.items.Delete(u.ctx, item.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: delete emptied item")
			}
			return nil
		}
		if err := u.items.Save(u.ctx, item); err != nil {
			return classifyWrite(err, "remove quantity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// EditItem applies field changes and records them as a single EDIT entry.
func (s *service) EditItem(ctx context.Context, itemID int64, input EditItemInput, reason string) (*models.Item, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an edit reason is required")
	}

	ctx = s.logg.WithItemID(ctx, itemID)
	var item *models.Item
	err := s.run(ctx, "items.edit", func(u *unitOfWork) error {
		var err error
		item, err = u.loadItem(itemID)
		if err != nil {
			return err
		}
		if _, err := u.lockType(item.ItemTypeID); err != nil {
			return err
		}

		var entry ledger.Entry
		if item.IsSerialized() {
			entry, err = u.editUnit(item, input)
		} else {
			entry, err = u.editBulk(item, input)
		}
		if err != nil {
			return err
		}

		if input.Location != nil {
			item.Location = strings.TrimSpace(*input.Location)
		}
		if input.Condition != nil {
			item.Condition = strings.TrimSpace(*input.Condition)
		}
		if err := u.items.Save(u.ctx, item); err != nil {
			return classifyWrite(err, "edit item")
		}

		entry.Type = enums.TransactionTypeEdit
		entry.Notes = reason
		return u.append(entry)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) DeleteBulkItem(ctx context.Context, itemID int64, notes string) error {
	ctx = s.logg.WithItemID(ctx, itemID)
	return s.run(ctx, "items.delete_bulk", func(u *unitOfWork) error {
		item, err := u.loadBulk(itemID)
		if err != nil {
			return err
		}
		if err := u.append(ledger.Entry{
			ItemTypeID:     item.ItemTypeID,
			Type:           enums.TransactionTypeRemove,
			QuantityChange: -item.Quantity,
			QuantityBefore: item.Quantity,
			QuantityAfter:  0,
			Notes:          strings.TrimSpace(notes),
		}); err != nil {
			return err
		}
		if err := u.items.Delete(u.ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: delete item")
		}
		return nil
	})
}

// DeleteSerializedUnits removes some units of a serialized group. Each unit
// gets its REMOVE entry before its row is deleted, so history stays keyed to
// the type and serial.
func (s *service) DeleteSerializedUnits(ctx context.Context, typeID int64, serials []string, notes string) (int, error) {
	var deleted int
	err := s.run(ctx, "items.delete_units", func(u *unitOfWork) error {
		itemType, err := u.lockType(typeID)
		if err != nil {
			return err
		}
		members, err := u.items.ListByType(u.ctx, typeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: list group")
		}

		plan, err := grouping.PlanSerialDeletion(grouping.Build(*itemType, members), serials, notes)
		if err != nil {
			return err
		}

		size := plan.GroupSize
		for _, unit := range plan.Units {
			if err := u.append(ledger.Entry{
				ItemTypeID:     plan.ItemTypeID,
				Type:           enums.TransactionTypeRemove,
				QuantityChange: -1,
				QuantityBefore: size,
				QuantityAfter:  size - 1,
				SerialNumber:   unit.SerialNumber,
				Notes:          plan.Notes,
			}); err != nil {
				return err
			}
			if err := u.items.Delete(u.ctx, unit.ItemID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: delete unit "+unit.SerialNumber)
			}
			size--
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *service) Get(ctx context.Context, id int64) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, itemNotFoundOrStorage(err, id)
	}
	return item, nil
}

func (s *service) ListByType(ctx context.Context, typeID int64) ([]models.Item, error) {
	if _, err := s.types.FindByID(ctx, typeID); err != nil {
		return nil, typeNotFoundOrStorage(err, typeID)
	}
	items, err := s.repo.ListByType(ctx, typeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: list items of type")
	}
	return items, nil
}

func (s *service) FindBySerial(ctx context.Context, serial string) (*models.Item, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "serial number is required")
	}
	item, err := s.repo.FindBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "serial number %q not found", serial)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: find by serial")
	}
	return item, nil
}

func (s *service) SerialNumbersForType(ctx context.Context, typeID int64) ([]string, error) {
	serials, err := s.repo.SerialNumbersForType(ctx, typeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: serial numbers of type")
	}
	return serials, nil
}

func (s *service) ListAtLocation(ctx context.Context, location string) ([]models.Item, error) {
	items, err := s.repo.ListAtLocation(ctx, strings.TrimSpace(location))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: list items at location")
	}
	return items, nil
}

func serializedTypeError(itemType *models.ItemType) error {
	return pkgerrors.Newf(pkgerrors.CodeSerialization,
		"item type %q is serialized; add units with serial numbers", itemType.DisplayName())
}
