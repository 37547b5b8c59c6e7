package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"github.com/angelmondragon/auditmagic/pkg/enums"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Fixed notes written by the store itself.
const (
	NoteInitialInventory = "Initial inventory"
	NoteMerged           = "Merged with existing item"
)

// Service appends and reads ledger entries.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Append(ctx context.Context, entry Entry) (*models.Transaction, error)
	QueryByTypes(ctx context.Context, query Query) (*Page, error)
	Recent(ctx context.Context, limit int) ([]models.Transaction, error)
	PurgeType(ctx context.Context, typeID int64) (int64, error)
}

// Entry is the data a new ledger row requires. SerialNumber is empty for
// bulk rows.
type Entry struct {
	ItemTypeID     int64
	Type           enums.TransactionType
	QuantityChange int
	QuantityBefore int
	QuantityAfter  int
	SerialNumber   string
	Notes          string
	BatchID        uuid.UUID
}

// DateRange bounds a query by created_at, both ends inclusive. Zero values
// leave that end open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Query selects ledger entries for one or more item types.
type Query struct {
	TypeIDs []int64
	Range   DateRange
	pagination.Params
}

// Page is one ordered slice of a ledger query. NextCursor is empty on the
// last page.
type Page struct {
	Transactions []models.Transaction `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

type service struct {
	repo       Repository
	queryLimit int
}

// NewService wires a ledger service with the provided repository. queryLimit
// is the page size used when a query does not set one.
func NewService(repo Repository, queryLimit int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, queryLimit: pagination.NormalizeLimit(queryLimit)}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), queryLimit: s.queryLimit}
}

func (s *service) Append(ctx context.Context, entry Entry) (*models.Transaction, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}

	batchID := entry.BatchID
	if batchID == uuid.Nil {
		batchID = uuid.New()
	}

	row := &models.Transaction{
		ItemTypeID:      entry.ItemTypeID,
		TransactionType: entry.Type,
		QuantityChange:  entry.QuantityChange,
		QuantityBefore:  entry.QuantityBefore,
		QuantityAfter:   entry.QuantityAfter,
		Notes:           entry.Notes,
		BatchID:         batchID,
	}
	if serial := strings.TrimSpace(entry.SerialNumber); serial != "" {
		row.SerialNumber = &serial
	}

	if err := s.repo.Create(ctx, row); err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "item type %d not found", entry.ItemTypeID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: append ledger entry")
	}
	return row, nil
}

func validateEntry(entry Entry) error {
	switch {
	case entry.ItemTypeID <= 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "ledger entry requires an item type")
	case !entry.Type.IsValid():
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid transaction type %q", entry.Type)
	case entry.QuantityBefore < 0 || entry.QuantityAfter < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "ledger quantities cannot be negative")
	case entry.QuantityAfter != entry.QuantityBefore+entry.QuantityChange:
		return pkgerrors.Newf(pkgerrors.CodeValidation,
			"quantity after (%d) must equal quantity before (%d) plus change (%d)",
			entry.QuantityAfter, entry.QuantityBefore, entry.QuantityChange)
	case entry.Type == enums.TransactionTypeEdit && strings.TrimSpace(entry.Notes) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "notes are required for EDIT entries")
	}
	return nil
}

func (s *service) QueryByTypes(ctx context.Context, query Query) (*Page, error) {
	typeIDs := uniqueIDs(query.TypeIDs)
	if len(typeIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item type id is required")
	}
	if !query.Range.From.IsZero() && !query.Range.To.IsZero() && query.Range.To.Before(query.Range.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end is before its start")
	}

	cursor, err := pagination.ParseCursor(query.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := s.queryLimit
	if query.Limit > 0 {
		limit = pagination.NormalizeLimit(query.Limit)
	}

	rows, err := s.repo.ListByTypes(ctx, Filter{
		TypeIDs: typeIDs,
		From:    query.Range.From,
		To:      query.Range.To,
		After:   cursor,
		Limit:   pagination.LimitWithBuffer(limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: query ledger")
	}

	page := &Page{}
	page.Transactions, page.NextCursor = pagination.Split(rows, limit, func(tx models.Transaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: tx.CreatedAt, ID: tx.ID}
	})
	return page, nil
}

func (s *service) Recent(ctx context.Context, limit int) ([]models.Transaction, error) {
	rows, err := s.repo.ListRecent(ctx, pagination.NormalizeLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: recent ledger entries")
	}
	if rows == nil {
		rows = []models.Transaction{}
	}
	return rows, nil
}

// PurgeType removes every entry of a type. Only type deletion calls it, inside
// the same unit of work that removes the type.
func (s *service) PurgeType(ctx context.Context, typeID int64) (int64, error) {
	n, err := s.repo.DeleteByType(ctx, typeID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: purge ledger entries")
	}
	return n, nil
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
