package controllers

import (
	"net/http"

	"github.com/AgriNITMZ/agriapp-backend/api/responses"
	"github.com/AgriNITMZ/agriapp-backend/api/validators"
	"github.com/AgriNITMZ/agriapp-backend/internal/chat"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

type chatRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

func AskChat(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		answer, err := svc.Ask(r.Context(), req.Question)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, answer)
	}
}
