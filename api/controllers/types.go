package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/auditmagic/api/responses"
	"github.com/angelmondragon/auditmagic/api/validators"
	"github.com/angelmondragon/auditmagic/internal/grouping"
	"github.com/angelmondragon/auditmagic/internal/itemtypes"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
)

const maxNameLen = 255

type resolveTypeRequest struct {
	Name         string `json:"name" validate:"required,notblank,max=255"`
	SubType      string `json:"sub_type" validate:"max=255"`
	IsSerialized bool   `json:"is_serialized"`
	Details      string `json:"details"`
}

type updateTypeRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=255"`
	SubType      *string `json:"sub_type,omitempty" validate:"omitempty,max=255"`
	Details      *string `json:"details,omitempty"`
	IsSerialized *bool   `json:"is_serialized,omitempty"`
}

type lookupTypeResponse struct {
	Found    bool             `json:"found"`
	ItemType *models.ItemType `json:"item_type,omitempty"`
}

// ResolveItemType returns the type with the given name and sub type, creating
// it when it does not exist yet.
func ResolveItemType(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload resolveTypeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemType, err := svc.ResolveOrCreate(r.Context(), itemtypes.ResolveInput{
			Name:         payload.Name,
			SubType:      payload.SubType,
			IsSerialized: payload.IsSerialized,
			Details:      payload.Details,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, itemType)
	}
}

func LookupItemType(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := validators.QueryString(r, "name", maxNameLen)
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "name is required"))
			return
		}
		subType := validators.QueryString(r, "sub_type", maxNameLen)

		itemType, found, err := svc.Lookup(r.Context(), name, subType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lookupTypeResponse{Found: found, ItemType: itemType})
	}
}

func ListItemTypes(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types)
	}
}

func GetItemType(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemType, err := svc.Get(r.Context(), typeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, itemType)
	}
}

func UpdateItemType(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateTypeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemType, err := svc.Update(r.Context(), typeID, itemtypes.UpdateInput{
			Name:         payload.Name,
			SubType:      payload.SubType,
			Details:      payload.Details,
			IsSerialized: payload.IsSerialized,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, itemType)
	}
}

// DeleteItemType removes the type, its items and its ledger history.
func DeleteItemType(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Delete(r.Context(), typeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AutocompleteTypeNames(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prefix := validators.QueryString(r, "prefix", maxNameLen)
		names, err := svc.AutocompleteNames(r.Context(), prefix, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, names)
	}
}

func AutocompleteSubTypes(svc itemtypes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		subTypes, err := svc.AutocompleteSubTypes(r.Context(),
			validators.SanitizeString(query.Get("name"), maxNameLen),
			validators.SanitizeString(query.Get("prefix"), maxNameLen),
			limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subTypes)
	}
}

// GroupForType returns the aggregated row of one type.
func GroupForType(svc grouping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		row, err := svc.GroupByType(r.Context(), typeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// ListGroups returns one aggregated row per type with items. Pass
// ?serialized=true for serialized types only.
func ListGroups(svc grouping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serializedOnly := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("serialized")), "true")
		rows, err := svc.ListGroups(r.Context(), serializedOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
