package repo

import (
	"context"
	"testing"

	"github.com/angelmondragon/auditmagic/pkg/db/dbtest"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return dbtest.New(t).DB()
}

func TestNewBaseStoresConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if base.Conn() != db {
		t.Fatalf("expected base db to match provided connection")
	}
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)

	if withCtx == nil {
		t.Fatalf("expected non-nil DB when context provided")
	}
	if withCtx.Statement == nil {
		t.Fatalf("expected statement created after WithContext")
	}
	if withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through, got %v", withCtx.Statement.Context)
	}

	withoutCtx := base.DB(nil)
	if withoutCtx != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseBindSwapsConnection(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if got := base.Bind(nil); got.Conn() != db {
		t.Fatalf("expected nil tx to keep the connection")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		bound := base.Bind(tx)
		if bound.Conn() != tx {
			t.Fatalf("expected bound base to use the transaction")
		}
		if base.Conn() != db {
			t.Fatalf("expected original base to be unchanged")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}
