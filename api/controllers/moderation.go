package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shopgrid/catalog-engine/api/middleware"
	"github.com/shopgrid/catalog-engine/api/responses"
	"github.com/shopgrid/catalog-engine/api/validators"
	"github.com/shopgrid/catalog-engine/internal/moderation"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
)

type statusUpdateBody struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// UpdateProductStatus applies one admin moderation transition.
func UpdateProductStatus(svc moderation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseProductStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		dto, err := svc.UpdateStatus(r.Context(), principal, moderation.StatusUpdateInput{
			ProductID: productID,
			NewStatus: status,
			Notes:     body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type bulkStatusUpdateBody struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1,max=500,dive,uuid"`
	Status     string   `json:"status" validate:"required"`
	Notes      *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// BulkUpdateProductStatus applies one transition to many records.
func BulkUpdateProductStatus(svc moderation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body bulkStatusUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseProductStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		ids := make([]uuid.UUID, 0, len(body.ProductIDs))
		for _, raw := range body.ProductIDs {
			id, err := validators.ParseUUIDString(raw, "product_ids")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ids = append(ids, id)
		}

		result, err := svc.BulkUpdateStatus(r.Context(), principal, moderation.BulkStatusUpdateInput{
			ProductIDs: ids,
			NewStatus:  status,
			Notes:      body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetStatusHistory returns the moderation audit trail for a product.
func GetStatusHistory(svc moderation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.GetStatusHistory(r.Context(), principal, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// RequestPromotion starts the path from store-private into the shared pool.
func RequestPromotion(svc moderation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.RequestPromotion(r.Context(), principal, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

type promotionReviewBody struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ApprovePromotion settles a pending review into the shared pool.
func ApprovePromotion(svc moderation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body promotionReviewBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApprovePromotion(r.Context(), principal, productID, body.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RejectPromotion settles a pending review without touching the catalog.
func RejectPromotion(svc moderation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body promotionReviewBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.RejectPromotion(r.Context(), principal, productID, body.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}
