package controllers

import (
	"io"
	"net/http"

	"github.com/AgriNITMZ/agriapp-backend/api/responses"
	"github.com/AgriNITMZ/agriapp-backend/api/validators"
	"github.com/AgriNITMZ/agriapp-backend/internal/payments"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/razorpay"
)

// maxWebhookBody caps how much of a webhook payload is read before verification.
const maxWebhookBody = 1 << 20

type verifyPaymentRequest struct {
	PaymentLinkID          string `json:"razorpay_payment_link_id" validate:"required"`
	PaymentLinkReferenceID string `json:"razorpay_payment_link_reference_id" validate:"required"`
	PaymentLinkStatus      string `json:"razorpay_payment_link_status" validate:"required"`
	PaymentID              string `json:"razorpay_payment_id" validate:"required"`
	Signature              string `json:"razorpay_signature" validate:"required"`
}

func CreatePaymentLink(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.CreateLink(r.Context(), payments.CreateLinkInput{
			Actor:   actorFrom(r),
			OrderID: orderID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, link)
	}
}

// RazorpayWebhook verifies the raw body signature before any parsing. The
// response is 200 on success so the gateway stops retrying; verification and
// handler failures return their mapped status so it retries later.
func RazorpayWebhook(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read webhook body"))
			return
		}

		signature := r.Header.Get("X-Razorpay-Signature")
		if err := svc.HandleWebhook(r.Context(), body, signature); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.VerifyCallback(r.Context(), razorpay.CallbackParams{
			PaymentLinkID:          req.PaymentLinkID,
			PaymentLinkReferenceID: req.PaymentLinkReferenceID,
			PaymentLinkStatus:      req.PaymentLinkStatus,
			PaymentID:              req.PaymentID,
			Signature:              req.Signature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
