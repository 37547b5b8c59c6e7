package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/auditmagic/api/responses"
	"github.com/angelmondragon/auditmagic/api/validators"
	"github.com/angelmondragon/auditmagic/internal/items"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
)

type createBulkRequest struct {
	Quantity  int    `json:"quantity"`
	Location  string `json:"location" validate:"max=255"`
	Condition string `json:"condition" validate:"max=255"`
	Notes     string `json:"notes"`
}

type createUnitRequest struct {
	SerialNumber string `json:"serial_number" validate:"max=255"`
	Location     string `json:"location" validate:"max=255"`
	Condition    string `json:"condition" validate:"max=255"`
	Notes        string `json:"notes"`
}

type deleteUnitsRequest struct {
	SerialNumbers []string `json:"serial_numbers"`
	Notes         string   `json:"notes"`
}

type quantityRequest struct {
	Amount int    `json:"amount" validate:"required,min=1"`
	Notes  string `json:"notes"`
}

type editItemRequest struct {
	Quantity     *int    `json:"quantity,omitempty"`
	Location     *string `json:"location,omitempty" validate:"omitempty,max=255"`
	Condition    *string `json:"condition,omitempty" validate:"omitempty,max=255"`
	SerialNumber *string `json:"serial_number,omitempty" validate:"omitempty,max=255"`
	ItemTypeID   *int64  `json:"item_type_id,omitempty" validate:"omitempty,min=1"`
	Reason       string  `json:"reason" validate:"required,notblank"`
}

type deleteUnitsResponse struct {
	Deleted int `json:"deleted"`
}

func (p createBulkRequest) toInput(typeID int64) items.CreateBulkInput {
	return items.CreateBulkInput{
		TypeID:    typeID,
		Quantity:  p.Quantity,
		Location:  p.Location,
		Condition: p.Condition,
		Notes:     p.Notes,
	}
}

func ListTypeItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByType(r.Context(), typeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CreateBulkItem always adds a new bulk row.
func CreateBulkItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createBulkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateBulk(r.Context(), payload.toInput(typeID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// MergeBulkItem adds stock to the matching bulk row, or creates one.
func MergeBulkItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createBulkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrMergeBulk(r.Context(), payload.toInput(typeID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusCreated
		if result.Merged {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

func CreateSerializedUnit(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload createUnitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateSerializedUnit(r.Context(), items.CreateUnitInput{
			TypeID:       typeID,
			SerialNumber: payload.SerialNumber,
			Location:     payload.Location,
			Condition:    payload.Condition,
			Notes:        payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// DeleteSerializedUnits removes the selected units of a group in one batch.
// Selection problems come back together as INVALID_SELECTION.
func DeleteSerializedUnits(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := validators.PathID(r, "typeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deleteUnitsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		n, err := svc.DeleteSerializedUnits(r.Context(), typeID, payload.SerialNumbers, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, deleteUnitsResponse{Deleted: n})
	}
}

// FindItems looks items up by ?serial= or ?location=.
func FindItems(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		serial := strings.TrimSpace(query.Get("serial"))
		_, byLocation := query["location"]

		switch {
		case serial != "":
			item, err := svc.FindBySerial(r.Context(), serial)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, item)
		case byLocation:
			list, err := svc.ListAtLocation(r.Context(), query.Get("location"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, list)
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "serial or location is required"))
		}
	}
}

func GetItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func AddQuantity(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.AddQuantity(r.Context(), itemID, payload.Amount, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// RemoveQuantity takes stock off a bulk row. A row emptied to zero is deleted
// and returned with quantity 0.
func RemoveQuantity(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.RemoveQuantity(r.Context(), itemID, payload.Amount, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func EditItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload editItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.EditItem(r.Context(), itemID, items.EditItemInput{
			Quantity:     payload.Quantity,
			Location:     payload.Location,
			Condition:    payload.Condition,
			SerialNumber: payload.SerialNumber,
			ItemTypeID:   payload.ItemTypeID,
		}, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// DeleteBulkItem removes a bulk row. The reason comes from ?notes=.
func DeleteBulkItem(svc items.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.PathID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteBulkItem(r.Context(), itemID, r.URL.Query().Get("notes")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
