// Package controllers translates HTTP requests into service calls. Handlers
// only parse, delegate and write; all business rules live in internal/.
package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AgriNITMZ/agriapp-backend/api/middleware"
	"github.com/AgriNITMZ/agriapp-backend/internal/orders"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"param": name})
	}
	return id, nil
}

func actorFrom(r *http.Request) orders.Actor {
	ctx := r.Context()
	return orders.Actor{
		UserID: middleware.UserID(ctx),
		Role:   middleware.Role(ctx),
	}
}
