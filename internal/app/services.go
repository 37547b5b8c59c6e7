// Package app wires repositories and services over one database client. The
// api server and the inventory CLI share it.
package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/auditmagic/internal/grouping"
	"github.com/angelmondragon/auditmagic/internal/items"
	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	"github.com/angelmondragon/auditmagic/internal/search"
	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/metrics"
)

type Services struct {
	Types    itemtypes.Service
	Items    items.Service
	Grouping grouping.Service
	Ledger   ledger.Service
	Search   search.Service
}

// NewServices builds every inventory service. reg may be nil, in which case
// no metrics are recorded.
func NewServices(cfg *config.Config, logg *logger.Logger, client *db.Client, reg prometheus.Registerer) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if client == nil {
		return nil, errors.New("database client is required")
	}
	if logg == nil {
		logg = logger.Nop()
	}

	m := metrics.NewInventoryMetrics(reg)
	typeRepo := itemtypes.NewRepository(client.DB())
	itemRepo := items.NewRepository(client.DB())

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(client.DB()), cfg.Ledger.QueryLimit)
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}
	typesSvc, err := itemtypes.NewService(typeRepo, ledgerSvc, client, logg, m)
	if err != nil {
		return nil, fmt.Errorf("item type service: %w", err)
	}
	itemsSvc, err := items.NewService(itemRepo, typeRepo, ledgerSvc, client, logg, m)
	if err != nil {
		return nil, fmt.Errorf("item service: %w", err)
	}
	groupingSvc, err := grouping.NewService(typeRepo, itemRepo)
	if err != nil {
		return nil, fmt.Errorf("grouping service: %w", err)
	}
	searchSvc, err := search.NewService(search.NewRepository(client.DB()), client, cfg.Search, logg)
	if err != nil {
		return nil, fmt.Errorf("search service: %w", err)
	}

	return &Services{
		Types:    typesSvc,
		Items:    itemsSvc,
		Grouping: groupingSvc,
		Ledger:   ledgerSvc,
		Search:   searchSvc,
	}, nil
}
