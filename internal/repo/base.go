package repo

import (
	"context"

	"github.com/angelmondragon/auditmagic/pkg/db"
	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Conn returns the unbound connection, for building grouped conditions.
func (b Base) Conn() *gorm.DB {
	return b.db
}

// Bind returns a Base running on tx. A nil tx keeps the current connection.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

// Match returns the case-insensitive LIKE builder for this connection's driver.
func (b Base) Match() db.Matcher {
	return db.MatcherFor(b.db)
}
