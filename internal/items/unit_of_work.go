package items

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"github.com/angelmondragon/auditmagic/pkg/enums"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
)

// unitOfWork carries the transaction-bound repositories and the batch id
// shared by every ledger entry of one operation.
type unitOfWork struct {
	ctx     context.Context
	batchID uuid.UUID
	items   Repository
	types   itemtypes.Repository
	ledger  ledger.Service
	entries []*models.Transaction
}

func (s *service) run(ctx context.Context, operation string, fn func(u *unitOfWork) error) error {
	started := time.Now()
	batchID := uuid.New()
	ctx = s.logg.WithBatchID(ctx, batchID.String())
	ctx = s.logg.WithOperation(ctx, operation)

	var u *unitOfWork
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		u = &unitOfWork{
			ctx:     ctx,
			batchID: batchID,
			items:   s.repo.WithTx(tx),
			types:   s.types.WithTx(tx),
			ledger:  s.ledger.WithTx(tx),
		}
		return fn(u)
	})
	if err != nil && pkgerrors.As(err) == nil {
		err = pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: "+operation)
	}
	s.metrics.Observe(operation, started, err)

	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"code": pkgerrors.CodeOf(err)})
		if pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).HTTPStatus >= 500 {
			s.logg.Error(logCtx, operation+" failed", err)
		} else {
			s.logg.Warn(logCtx, operation+" rejected: "+err.Error())
		}
		return err
	}

	for _, entry := range u.entries {
		s.metrics.AddLedgerEntries(string(entry.TransactionType), 1)
	}
	logCtx := s.logg.WithField(ctx, "ledger_entries", len(u.entries))
	if len(u.entries) > 0 {
		logCtx = s.logg.WithItemTypeID(logCtx, u.entries[0].ItemTypeID)
	}
	s.logg.Info(logCtx, operation)
	return nil
}

func (u *unitOfWork) append(entry ledger.Entry) error {
	entry.BatchID = u.batchID
	row, err := u.ledger.Append(u.ctx, entry)
	if err != nil {
		return err
	}
	u.entries = append(u.entries, row)
	return nil
}

// lockType loads the type and serializes this unit of work against others
// touching the same type.
func (u *unitOfWork) lockType(id int64) (*models.ItemType, error) {
	itemType, err := u.types.FindByIDForUpdate(u.ctx, id)
	if err != nil {
		return nil, typeNotFoundOrStorage(err, id)
	}
	return itemType, nil
}

func (u *unitOfWork) loadItem(id int64) (*models.Item, error) {
	item, err := u.items.FindByID(u.ctx, id)
	if err != nil {
		return nil, itemNotFoundOrStorage(err, id)
	}
	return item, nil
}

func (u *unitOfWork) loadBulk(id int64) (*models.Item, error) {
	item, err := u.loadItem(id)
	if err != nil {
		return nil, err
	}
	if _, err := u.lockType(item.ItemTypeID); err != nil {
		return nil, err
	}
	if item.IsSerialized() {
		return nil, pkgerrors.Newf(pkgerrors.CodeSerialization,
			"item %d is serialized unit %q; its quantity is fixed at 1", item.ID, item.Serial())
	}
	return item, nil
}

func (u *unitOfWork) ensureSerialFree(serial string) error {
	existing, err := u.items.FindBySerial(u.ctx, serial)
	switch {
	case err == nil:
		return pkgerrors.Newf(pkgerrors.CodeDuplicateSerial, "serial number %q already exists", serial).
			WithDetails(map[string]any{"item_id": existing.ID, "item_type_id": existing.ItemTypeID})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: check serial number")
	}
}

func (u *unitOfWork) groupSize(typeID int64) (int, error) {
	count, err := u.items.CountByType(u.ctx, typeID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: count group")
	}
	return int(count), nil
}

func (u *unitOfWork) createBulk(itemType *models.ItemType, input CreateBulkInput) (*models.Item, error) {
	item := &models.Item{
		ItemTypeID: itemType.ID,
		Quantity:   input.Quantity,
		Location:   strings.TrimSpace(input.Location),
		Condition:  strings.TrimSpace(input.Condition),
	}
	if err := u.items.Create(u.ctx, item); err != nil {
		return nil, classifyWrite(err, "create bulk item")
	}
	if err := u.append(ledger.Entry{
		ItemTypeID:     itemType.ID,
		Type:           enums.TransactionTypeAdd,
		QuantityChange: input.Quantity,
		QuantityBefore: 0,
		QuantityAfter:  input.Quantity,
		Notes:          strings.TrimSpace(input.Notes),
	}); err != nil {
		return nil, err
	}
	return item, nil
}

// editUnit validates changes to a serialized unit. Only location, condition
// and the serial itself may change; the entry records the group size.
func (u *unitOfWork) editUnit(item *models.Item, input EditItemInput) (ledger.Entry, error) {
	if input.Quantity != nil && *input.Quantity != 1 {
		return ledger.Entry{}, pkgerrors.Newf(pkgerrors.CodeSerialization,
			"quantity of serialized unit %q is fixed at 1", item.Serial())
	}
	if input.ItemTypeID != nil && *input.ItemTypeID != item.ItemTypeID {
		return ledger.Entry{}, pkgerrors.Newf(pkgerrors.CodeSerialization,
			"serialized unit %q cannot move to another item type", item.Serial())
	}
	if input.SerialNumber != nil {
		serial := strings.TrimSpace(*input.SerialNumber)
		if serial == "" {
			return ledger.Entry{}, pkgerrors.New(pkgerrors.CodeSerialization, "serialized units require a serial number")
		}
		if serial != item.Serial() {
			if err := u.ensureSerialFree(serial); err != nil {
				return ledger.Entry{}, err
			}
			item.SerialNumber = &serial
		}
	}

	size, err := u.groupSize(item.ItemTypeID)
	if err != nil {
		return ledger.Entry{}, err
	}
	return ledger.Entry{
		ItemTypeID:     item.ItemTypeID,
		QuantityChange: 0,
		QuantityBefore: size,
		QuantityAfter:  size,
		SerialNumber:   item.Serial(),
	}, nil
}

// editBulk validates changes to a bulk row; the entry carries the row's net
// quantity delta against its (possibly new) type.
func (u *unitOfWork) editBulk(item *models.Item, input EditItemInput) (ledger.Entry, error) {
	if input.SerialNumber != nil && strings.TrimSpace(*input.SerialNumber) != "" {
		return ledger.Entry{}, pkgerrors.Newf(pkgerrors.CodeSerialization,
			"bulk item %d cannot carry a serial number", item.ID)
	}

	before := item.Quantity
	if input.Quantity != nil {
		if *input.Quantity < 1 {
			return ledger.Entry{}, pkgerrors.Newf(pkgerrors.CodeSerialization,
				"bulk quantity must be at least 1, got %d", *input.Quantity)
		}
		item.Quantity = *input.Quantity
	}

	if input.ItemTypeID != nil && *input.ItemTypeID != item.ItemTypeID {
		target, err := u.lockType(*input.ItemTypeID)
		if err != nil {
			return ledger.Entry{}, err
		}
		if target.IsSerialized {
			return ledger.Entry{}, pkgerrors.Newf(pkgerrors.CodeSerialization,
				"bulk item %d cannot move to serialized type %q", item.ID, target.DisplayName())
		}
		item.ItemTypeID = target.ID
	}

	return ledger.Entry{
		ItemTypeID:     item.ItemTypeID,
		QuantityChange: item.Quantity - before,
		QuantityBefore: before,
		QuantityAfter:  item.Quantity,
	}, nil
}

func classifyWrite(err error, action string) error {
	switch {
	case db.IsUniqueViolation(err, db.ConstraintItemSerialNumber):
		return pkgerrors.Wrap(pkgerrors.CodeDuplicateSerial, err, "serial number already exists")
	case db.IsCheckViolation(err, db.ConstraintSerialOrQuantity), db.IsCheckViolation(err, db.ConstraintSerialNotEmpty):
		return pkgerrors.Wrap(pkgerrors.CodeSerialization, err, "item violates the serialized or bulk shape")
	case db.IsForeignKeyViolation(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "item type not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: "+action)
	}
}

func itemNotFoundOrStorage(err error, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "item %d not found", id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: load item")
}

func typeNotFoundOrStorage(err error, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "item type %d not found", id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: load item type")
}
