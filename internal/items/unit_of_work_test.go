package items

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/db/dbtest"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/migrate"
)

// brokenLedger fails every append. Before failing it counts the items the
// surrounding transaction can see, so tests can tell the item write happened.
type brokenLedger struct {
	ledger.Service
	tx        *gorm.DB
	itemsSeen *int64
}

func (l brokenLedger) WithTx(tx *gorm.DB) ledger.Service {
	return brokenLedger{Service: l.Service.WithTx(tx), tx: tx, itemsSeen: l.itemsSeen}
}

func (l brokenLedger) Append(context.Context, ledger.Entry) (*models.Transaction, error) {
	if l.tx != nil {
		if err := l.tx.Model(&models.Item{}).Count(l.itemsSeen).Error; err != nil {
			return nil, err
		}
	}
	return nil, errors.New("ledger write failed")
}

func TestLedgerFailureRollsBackItemWrites(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()

	realLedger, err := ledger.NewService(ledger.NewRepository(client.DB()), 0)
	require.NoError(t, err)
	typeRepo := itemtypes.NewRepository(client.DB())
	typesSvc, err := itemtypes.NewService(typeRepo, realLedger, client, nil, nil)
	require.NoError(t, err)
	healthy, err := NewService(NewRepository(client.DB()), typeRepo, realLedger, client, nil, nil)
	require.NoError(t, err)

	var seen int64
	broken, err := NewService(NewRepository(client.DB()), typeRepo, brokenLedger{Service: realLedger, itemsSeen: &seen}, client, nil, nil)
	require.NoError(t, err)

	laptop, err := typesSvc.ResolveOrCreate(ctx, itemtypes.ResolveInput{Name: "Laptop", SubType: "X1", IsSerialized: true})
	require.NoError(t, err)
	cable, err := typesSvc.ResolveOrCreate(ctx, itemtypes.ResolveInput{Name: "Cable", SubType: "HDMI"})
	require.NoError(t, err)

	countItems := func() int64 {
		var n int64
		require.NoError(t, client.DB().Model(&models.Item{}).Count(&n).Error)
		return n
	}

	_, err = broken.CreateSerializedUnit(ctx, CreateUnitInput{TypeID: laptop.ID, SerialNumber: "SN1"})
	requireCode(t, err, pkgerrors.CodeStorage)
	require.Equal(t, int64(1), seen, "unit row should exist inside the failed transaction")
	require.Zero(t, countItems())

	stack, err := healthy.CreateBulk(ctx, CreateBulkInput{TypeID: cable.ID, Quantity: 5})
	require.NoError(t, err)

	seen = 0
	_, err = broken.CreateOrMergeBulk(ctx, CreateBulkInput{TypeID: cable.ID, Quantity: 3})
	requireCode(t, err, pkgerrors.CodeStorage)
	_, err = broken.RemoveQuantity(ctx, stack.ID, 5, "sold out")
	requireCode(t, err, pkgerrors.CodeStorage)

	after, err := healthy.Get(ctx, stack.ID)
	require.NoError(t, err)
	require.Equal(t, 5, after.Quantity)
	require.Equal(t, int64(1), countItems())

	var entries int64
	require.NoError(t, client.DB().Model(&models.Transaction{}).Count(&entries).Error)
	require.Equal(t, int64(1), entries, "only the healthy CreateBulk entry should be stored")
}

func TestConcurrentUnitsSerializeGroupCounts(t *testing.T) {
	ctx := context.Background()
	client, err := db.New(ctx, config.DBConfig{
		Driver:      config.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "inventory.db"),
		BusyTimeout: 30 * time.Second,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, migrate.Up(ctx, client))

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()), 0)
	require.NoError(t, err)
	typeRepo := itemtypes.NewRepository(client.DB())
	typesSvc, err := itemtypes.NewService(typeRepo, ledgerSvc, client, nil, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(client.DB()), typeRepo, ledgerSvc, client, nil, nil)
	require.NoError(t, err)

	laptop, err := typesSvc.ResolveOrCreate(ctx, itemtypes.ResolveInput{Name: "Laptop", SubType: "X1", IsSerialized: true})
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateSerializedUnit(ctx, CreateUnitInput{
				TypeID:       laptop.ID,
				SerialNumber: fmt.Sprintf("SN%02d", i),
				Notes:        "restock",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	page, err := ledgerSvc.QueryByTypes(ctx, ledger.Query{TypeIDs: []int64{laptop.ID}})
	require.NoError(t, err)
	require.Len(t, page.Transactions, workers)

	befores := map[int]bool{}
	initial := 0
	for _, entry := range page.Transactions {
		require.Equal(t, entry.QuantityBefore+1, entry.QuantityAfter)
		require.False(t, befores[entry.QuantityBefore], "group size %d counted twice", entry.QuantityBefore)
		befores[entry.QuantityBefore] = true
		if entry.Notes == ledger.NoteInitialInventory {
			initial++
		}
	}
	for size := range workers {
		require.True(t, befores[size], "no entry started from group size %d", size)
	}
	require.Equal(t, 1, initial)
}

func TestItemOperationsLogItemAndBatch(t *testing.T) {
	client := dbtest.New(t)
	ctx := context.Background()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: &buf})

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()), 0)
	require.NoError(t, err)
	typeRepo := itemtypes.NewRepository(client.DB())
	typesSvc, err := itemtypes.NewService(typeRepo, ledgerSvc, client, nil, nil)
	require.NoError(t, err)
	svc, err := NewService(NewRepository(client.DB()), typeRepo, ledgerSvc, client, logg, nil)
	require.NoError(t, err)

	cable, err := typesSvc.ResolveOrCreate(ctx, itemtypes.ResolveInput{Name: "Cable"})
	require.NoError(t, err)
	stack, err := svc.CreateBulk(ctx, CreateBulkInput{TypeID: cable.ID, Quantity: 2})
	require.NoError(t, err)

	buf.Reset()
	_, err = svc.RemoveQuantity(ctx, stack.ID, 3, "")
	requireCode(t, err, pkgerrors.CodeInsufficientQuantity)

	out := buf.String()
	for _, want := range []string{
		fmt.Sprintf(`"item_id":%d`, stack.ID),
		`"operation":"items.remove_quantity"`,
		`"batch_id"`,
		`"code":"INSUFFICIENT_QUANTITY"`,
	} {
		require.Contains(t, out, want)
	}
}
