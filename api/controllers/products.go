package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AgriNITMZ/agriapp-backend/api/middleware"
	"github.com/AgriNITMZ/agriapp-backend/api/responses"
	"github.com/AgriNITMZ/agriapp-backend/api/validators"
	"github.com/AgriNITMZ/agriapp-backend/internal/products"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
)

type variantRequest struct {
	Size            string          `json:"size" validate:"required,max=60"`
	Price           decimal.Decimal `json:"price" validate:"required"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	Quantity        int             `json:"quantity" validate:"min=0"`
}

type createProductRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Category    string           `json:"category" validate:"required"`
	Description *string          `json:"description"`
	Images      []string         `json:"images" validate:"omitempty,dive,url"`
	Variants    []variantRequest `json:"variants" validate:"required,min=1,dive"`
}

type updateVariantRequest struct {
	Price           *decimal.Decimal `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	Quantity        *int             `json:"quantity" validate:"omitempty,min=0"`
}

func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := products.ListFilter{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 200),
		}
		if raw := r.URL.Query().Get("category"); raw != "" {
			category, err := enums.ParseProductCategory(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
				return
			}
			filter.Category = &category
		}
		if raw := r.URL.Query().Get("seller_id"); raw != "" {
			sellerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "invalid seller_id"))
				return
			}
			filter.SellerID = &sellerID
		}

		items, cursor, err := svc.List(r.Context(), filter, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "cursor": cursor})
	}
}

func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		category, err := enums.ParseProductCategory(req.Category)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid category"))
			return
		}

		variants := make([]products.VariantSpec, 0, len(req.Variants))
		for _, v := range req.Variants {
			variants = append(variants, products.VariantSpec{
				Size:            v.Size,
				Price:           v.Price,
				DiscountedPrice: v.DiscountedPrice,
				Quantity:        v.Quantity,
			})
		}

		product, err := svc.CreateWithListing(r.Context(), products.CreateInput{
			SellerID:    middleware.UserID(r.Context()),
			Name:        req.Name,
			Category:    category,
			Description: req.Description,
			Images:      req.Images,
			Variants:    variants,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AddVariant(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req variantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.AddVariant(r.Context(), products.VariantInput{
			SellerID:  middleware.UserID(r.Context()),
			ProductID: productID,
			Variant: products.VariantSpec{
				Size:            req.Size,
				Price:           req.Price,
				DiscountedPrice: req.DiscountedPrice,
				Quantity:        req.Quantity,
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}

func UpdateVariant(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateVariantRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.UpdateVariant(r.Context(), products.UpdateVariantInput{
			SellerID:        middleware.UserID(r.Context()),
			PriceSizeID:     variantID,
			Price:           req.Price,
			DiscountedPrice: req.DiscountedPrice,
			Quantity:        req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, variant)
	}
}
