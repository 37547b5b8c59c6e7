package controllers

import (
	"net/http"

	"github.com/angelmondragon/auditmagic/api/responses"
	"github.com/angelmondragon/auditmagic/api/validators"
	"github.com/angelmondragon/auditmagic/internal/ledger"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/pagination"
)

// ListLedger returns ledger entries oldest first for the requested types, or
// the newest entries across all types when no type_id is given.
func ListLedger(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeIDs, err := validators.ParseQueryIDs(r, "type_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if len(typeIDs) == 0 {
			recent, err := svc.Recent(r.Context(), limit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, ledger.Page{Transactions: recent})
			return
		}

		from, err := validators.ParseQueryTime(r, "from", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !from.IsZero() && !to.IsZero() && to.Before(from) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from"))
			return
		}

		page, err := svc.QueryByTypes(r.Context(), ledger.Query{
			TypeIDs: typeIDs,
			Range:   ledger.DateRange{From: from, To: to},
			Params:  pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
