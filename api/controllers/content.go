package controllers

import (
	"net/http"
	"time"

	"github.com/AgriNITMZ/agriapp-backend/api/responses"
	"github.com/AgriNITMZ/agriapp-backend/api/validators"
	"github.com/AgriNITMZ/agriapp-backend/internal/content"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
	"github.com/AgriNITMZ/agriapp-backend/pkg/pagination"
)

type newsRequest struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Body        string     `json:"body" validate:"required"`
	SourceURL   *string    `json:"source_url" validate:"omitempty,url"`
	ImageURL    *string    `json:"image_url" validate:"omitempty,url"`
	PublishedAt *time.Time `json:"published_at"`
}

type schemeRequest struct {
	Title       string     `json:"title" validate:"required,max=300"`
	Description string     `json:"description" validate:"required"`
	Eligibility *string    `json:"eligibility"`
	ApplyURL    *string    `json:"apply_url" validate:"omitempty,url"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

func listPage(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}, nil
}

func ListNews(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := listPage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, cursor, err := svc.ListNews(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "cursor": cursor})
	}
}

func GetNews(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "newsID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetNews(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CreateNews(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req newsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.CreateNews(r.Context(), content.NewsInput{
			Title:       req.Title,
			Body:        req.Body,
			SourceURL:   req.SourceURL,
			ImageURL:    req.ImageURL,
			PublishedAt: req.PublishedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func UpdateNews(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "newsID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req newsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateNews(r.Context(), id, content.NewsInput{
			Title:       req.Title,
			Body:        req.Body,
			SourceURL:   req.SourceURL,
			ImageURL:    req.ImageURL,
			PublishedAt: req.PublishedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteNews(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "newsID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteNews(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func ListSchemes(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := listPage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items, cursor, err := svc.ListSchemes(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "cursor": cursor})
	}
}

func GetScheme(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "schemeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.GetScheme(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func CreateScheme(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req schemeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.CreateScheme(r.Context(), content.SchemeInput{
			Title:       req.Title,
			Description: req.Description,
			Eligibility: req.Eligibility,
			ApplyURL:    req.ApplyURL,
			StartsAt:    req.StartsAt,
			EndsAt:      req.EndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func UpdateScheme(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "schemeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req schemeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.UpdateScheme(r.Context(), id, content.SchemeInput{
			Title:       req.Title,
			Description: req.Description,
			Eligibility: req.Eligibility,
			ApplyURL:    req.ApplyURL,
			StartsAt:    req.StartsAt,
			EndsAt:      req.EndsAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteScheme(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "schemeID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteScheme(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
