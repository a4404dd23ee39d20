package controllers

import (
	"net/http"

	"github.com/AgriNITMZ/agriapp-backend/api/middleware"
	"github.com/AgriNITMZ/agriapp-backend/api/responses"
	"github.com/AgriNITMZ/agriapp-backend/internal/analytics"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

// SellerAnalytics reports sales aggregates for the authenticated seller.
func SellerAnalytics(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		period, err := analytics.ParsePeriod(r.URL.Query().Get("period"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.SellerSummary(r.Context(), middleware.UserID(r.Context()), period)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
