package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/auditmagic/api/responses"
	"github.com/angelmondragon/auditmagic/api/validators"
	"github.com/angelmondragon/auditmagic/internal/search"
	"github.com/angelmondragon/auditmagic/pkg/enums"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/pagination"
)

const maxQueryLen = 255

type clearHistoryResponse struct {
	Removed int64 `json:"removed"`
}

func parseSearchField(r *http.Request) (enums.SearchField, error) {
	field, err := enums.ParseSearchField(strings.TrimSpace(r.URL.Query().Get("field")))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid search field").
			WithDetails(map[string]any{"field": "field"})
	}
	return field, nil
}

// Search matches items by type name, sub type, details or serial number and
// remembers the query unless ?record=false.
func Search(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field, err := parseSearchField(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.QueryString(r, "q", maxQueryLen)

		hits, err := svc.Search(r.Context(), query, field, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !strings.EqualFold(r.URL.Query().Get("record"), "false") {
			if _, err := svc.RecordSearch(r.Context(), query, field); err != nil && logg != nil {
				logg.Error(r.Context(), "search.history_failed", err)
			}
		}
		responses.WriteSuccess(w, hits)
	}
}

func Autocomplete(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field, err := parseSearchField(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prefix := validators.QueryString(r, "prefix", maxQueryLen)

		suggestions, err := svc.Autocomplete(r.Context(), prefix, field, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}

func SearchHistory(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.RecentSearches(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func ClearSearchHistory(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := svc.ClearHistory(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, clearHistoryResponse{Removed: n})
	}
}
