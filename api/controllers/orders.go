package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/AgriNITMZ/agriapp-backend/api/middleware"
	"github.com/AgriNITMZ/agriapp-backend/api/responses"
	"github.com/AgriNITMZ/agriapp-backend/api/validators"
	"github.com/AgriNITMZ/agriapp-backend/internal/orders"
	"github.com/AgriNITMZ/agriapp-backend/pkg/enums"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
)

type orderLineRequest struct {
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	SellerID  *uuid.UUID `json:"seller_id"`
	Size      string     `json:"size" validate:"required,max=60"`
	Quantity  int        `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	AddressID     uuid.UUID          `json:"address_id" validate:"required"`
	PaymentMethod string             `json:"payment_method" validate:"required,oneof=cod online"`
	Items         []orderLineRequest `json:"items" validate:"omitempty,dive"`
	FromCart      bool               `json:"from_cart"`
}

func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		items := make([]orders.LineInput, 0, len(req.Items))
		for _, line := range req.Items {
			items = append(items, orders.LineInput{
				ProductID: line.ProductID,
				SellerID:  line.SellerID,
				Size:      line.Size,
				Quantity:  line.Quantity,
			})
		}

		order, err := svc.Create(r.Context(), orders.CreateInput{
			BuyerID:       middleware.UserID(r.Context()),
			AddressID:     req.AddressID,
			PaymentMethod: method,
			Items:         items,
			FromCart:      req.FromCart,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), orders.ListParams{
			BuyerID: middleware.UserID(r.Context()),
			Limit:   limit,
			Cursor:  r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), actorFrom(r), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), actorFrom(r), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
