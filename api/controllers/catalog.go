package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopgrid/catalog-engine/api/middleware"
	"github.com/shopgrid/catalog-engine/api/responses"
	"github.com/shopgrid/catalog-engine/api/validators"
	"github.com/shopgrid/catalog-engine/internal/catalog"
	"github.com/shopgrid/catalog-engine/pkg/enums"
	pkgerrors "github.com/shopgrid/catalog-engine/pkg/errors"
	"github.com/shopgrid/catalog-engine/pkg/logger"
	"github.com/shopgrid/catalog-engine/pkg/pagination"
)

type candidateBody struct {
	Name         string   `json:"name" validate:"required,min=1,max=255"`
	Brand        *string  `json:"brand,omitempty" validate:"omitempty,max=255"`
	Category     *string  `json:"category,omitempty" validate:"omitempty,max=255"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=4000"`
	Barcode      *string  `json:"barcode,omitempty" validate:"omitempty,max=64"`
	ImageHash    *string  `json:"image_hash,omitempty" validate:"omitempty,max=128"`
	ImageURL     *string  `json:"image_url,omitempty" validate:"omitempty,max=2048"`
	ThumbnailURL *string  `json:"thumbnail_url,omitempty" validate:"omitempty,max=2048"`
	MediumURL    *string  `json:"medium_url,omitempty" validate:"omitempty,max=2048"`
	WeightGrams  *float64 `json:"weight_grams,omitempty" validate:"omitempty,gt=0"`
	Tags         []string `json:"tags,omitempty" validate:"omitempty,max=32,dive,min=1,max=64"`
}

func (b candidateBody) toCandidate() catalog.Candidate {
	return catalog.Candidate{
		Name:         b.Name,
		Brand:        b.Brand,
		Category:     b.Category,
		Description:  b.Description,
		Barcode:      b.Barcode,
		ImageHash:    b.ImageHash,
		ImageURL:     b.ImageURL,
		ThumbnailURL: b.ThumbnailURL,
		MediumURL:    b.MediumURL,
		WeightGrams:  b.WeightGrams,
		Tags:         b.Tags,
	}
}

type submitProductBody struct {
	Product      candidateBody   `json:"product" validate:"required"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	InitialStock int             `json:"initial_stock" validate:"gte=0"`
	Decision     string          `json:"decision,omitempty" validate:"omitempty,oneof=use_existing create_new"`
	UseProductID *string         `json:"use_product_id,omitempty" validate:"omitempty,uuid"`
}

// SubmitProduct routes a store submission through matching and get-or-create.
func SubmitProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body submitProductBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.SubmissionInput{
			Candidate:    body.Product.toCandidate(),
			SellingPrice: body.SellingPrice,
			InitialStock: body.InitialStock,
			Decision:     enums.MatchSuggestion(body.Decision),
		}
		if body.UseProductID != nil {
			id, err := validators.ParseUUIDString(*body.UseProductID, "use_product_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.UseProductID = &id
		}

		result, err := svc.Submit(r.Context(), principal, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

type customProductBody struct {
	Product      candidateBody   `json:"product" validate:"required"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	InitialStock int             `json:"initial_stock" validate:"gte=0"`
}

// CreateCustomProduct creates a store-private record outside the shared pool.
func CreateCustomProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body customProductBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.CreateCustomProduct(r.Context(), principal, catalog.CustomProductInput{
			Candidate:    body.Product.toCandidate(),
			SellingPrice: body.SellingPrice,
			InitialStock: body.InitialStock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

type customProductUpdateBody struct {
	Name         *string   `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Brand        *string   `json:"brand,omitempty" validate:"omitempty,max=255"`
	Category     *string   `json:"category,omitempty" validate:"omitempty,max=255"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,max=4000"`
	Barcode      *string   `json:"barcode,omitempty" validate:"omitempty,max=64"`
	ImageHash    *string   `json:"image_hash,omitempty" validate:"omitempty,max=128"`
	ImageURL     *string   `json:"image_url,omitempty" validate:"omitempty,max=2048"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty" validate:"omitempty,max=2048"`
	MediumURL    *string   `json:"medium_url,omitempty" validate:"omitempty,max=2048"`
	WeightGrams  *float64  `json:"weight_grams,omitempty" validate:"omitempty,gt=0"`
	Tags         *[]string `json:"tags,omitempty"`
}

// UpdateCustomProduct applies a partial update to a store-private record.
func UpdateCustomProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body customProductUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.UpdateCustomProduct(r.Context(), principal, productID, catalog.CustomProductUpdate{
			Name:         body.Name,
			Brand:        body.Brand,
			Category:     body.Category,
			Description:  body.Description,
			Barcode:      body.Barcode,
			ImageHash:    body.ImageHash,
			ImageURL:     body.ImageURL,
			ThumbnailURL: body.ThumbnailURL,
			MediumURL:    body.MediumURL,
			WeightGrams:  body.WeightGrams,
			Tags:         body.Tags,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// GetProduct returns one record the caller is allowed to see.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
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

		dto, err := svc.GetProduct(r.Context(), principal, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// ListProductsByStatus pages records in one moderation status.
func ListProductsByStatus(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		status, err := enums.ParseProductStatus(strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByStatus(r.Context(), principal, status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func paginationFromQuery(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
