package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/auditmagic/api/responses"
	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
)

const readyTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Auditmagic-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready once the database answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Auditmagic-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if dbP == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "database not configured"))
			return
		}
		if err := dbP.Ping(ctx); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "database ping failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready", "database": "ok"})
	}
}
