package skus

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	sessioncontext "batchledger/frontend/shared/context"
	"batchledger/frontend/shared/nav"
	"batchledger/frontend/shared/respond"
	"batchledger/frontend/shared/validate"
	"batchledger/models"
)

const maxBodyBytes = 64 << 10

func toResponses(list []models.SKU, loc *time.Location) []SKUResponse {
	out := make([]SKUResponse, 0, len(list))
	for _, s := range list {
		out = append(out, NewSKUResponse(s, loc))
	}
	return out
}

// SKUsPageQueryHandler renders the catalog screen.
func SKUsPageQueryHandler(catalog Catalog, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := sessioncontext.GetSessionFromContext(r.Context())
		list, err := catalog.ListSKUs(r.Context())
		if err != nil {
			slog.Error("load skus failed", slog.Any("err", err))
			http.Error(w, "failed to load skus", http.StatusInternalServerError)
			return
		}
		topNav := nav.BuildTopNavData(session)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := SKUsPage(topNav, PageData{
			SKUs:     toResponses(list, loc),
			CanWrite: topNav.Can("SKU_CREATE"),
		}).Render(r.Context(), w); err != nil {
			slog.Error("render skus page failed", slog.Any("err", err))
			http.Error(w, "failed to render skus page", http.StatusInternalServerError)
		}
	}
}

// ListSKUsQueryHandler returns the active catalog ordered by name.
func ListSKUsQueryHandler(catalog Catalog, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := catalog.ListSKUs(r.Context())
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, toResponses(list, loc))
	}
}

func CreateSKUCommandHandler(catalog Catalog, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := sessioncontext.CallerFromContext(r.Context())
		if !ok {
			respond.Status(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}

		var req CreateSKURequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			respond.Invalid(w, err)
			return
		}
		req.Code = strings.TrimSpace(req.Code)
		req.Name = strings.TrimSpace(req.Name)
		if err := validate.Struct(req); err != nil {
			respond.Invalid(w, err)
			return
		}

		sku, err := catalog.CreateSKU(r.Context(), caller, req.Code, req.Name)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		slog.Info("sku created", slog.String("sku_id", sku.ID), slog.String("code", sku.Code), slog.Int64("user_id", caller.UserID))
		w.Header().Set("Location", "/app/api/skus/"+sku.ID)
		respond.JSON(w, http.StatusCreated, NewSKUResponse(sku, loc))
	}
}

func DeleteSKUCommandHandler(catalog Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := sessioncontext.CallerFromContext(r.Context())
		if !ok {
			respond.Status(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "skuID"))
		if err := catalog.DeleteSKU(r.Context(), caller, id); err != nil {
			respond.Error(w, r, err)
			return
		}
		slog.Info("sku deleted", slog.String("sku_id", id), slog.Int64("user_id", caller.UserID))
		w.WriteHeader(http.StatusNoContent)
	}
}
