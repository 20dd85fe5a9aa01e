package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/dealradar/deal-aggregator/internal/database"
	"github.com/dealradar/deal-aggregator/internal/models"
	"github.com/dealradar/deal-aggregator/internal/search"
)

type Handlers struct {
	service      *search.Service
	triggerLimit *rate.Limiter
	logger       *slog.Logger
}

func NewHandlers(service *search.Service, logger *slog.Logger) *Handlers {
	return &Handlers{
		service: service,
		// manual ingestion triggers are expensive, one per minute is plenty
		triggerLimit: rate.NewLimiter(rate.Every(time.Minute), 1),
		logger:       logger.With("component", "api"),
	}
}

// Routes mounts all deal endpoints under /api/v1.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/search", h.Search)
	r.Get("/deals/live", h.LiveDeals)
	r.Get("/products/{productID}", h.GetProduct)
	r.Post("/scrape", h.Scrape)
	r.Post("/scrape/trigger", h.TriggerIngestion)
}

// Search handles GET /api/v1/search?q=...&platforms=...&min_price=...&max_price=...&sort=...
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	platforms, err := parsePlatforms(r.URL.Query().Get("platforms"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Search(r.Context(), search.Query{
		Text:      query,
		Platforms: platforms,
		MinPrice:  parseFloat(r.URL.Query().Get("min_price")),
		MaxPrice:  parseFloat(r.URL.Query().Get("max_price")),
		SortBy:    r.URL.Query().Get("sort"),
	})
	if err != nil {
		h.logger.Error("search failed", "query", query, "error", err)
		h.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// LiveDeals handles GET /api/v1/deals/live?platforms=...&category=...&limit=...
func (h *Handlers) LiveDeals(w http.ResponseWriter, r *http.Request) {
	platforms, err := parsePlatforms(r.URL.Query().Get("platforms"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := int(parseFloat(r.URL.Query().Get("limit")))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	deals, err := h.service.LiveDeals(r.Context(), platforms, r.URL.Query().Get("category"), limit)
	if err != nil {
		h.logger.Error("live deals failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load live deals")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deals": deals,
		"total": len(deals),
	})
}

// GetProduct handles GET /api/v1/products/{productID}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		h.respondError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	view, err := h.service.Product(r.Context(), productID)
	if err != nil {
		if errors.Is(err, search.ErrNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("product lookup failed", "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	h.respondJSON(w, http.StatusOK, view)
}

// ScrapeRequest asks for one URL to be scraped and stored immediately.
type ScrapeRequest struct {
	URL string `json:"url"`
}

// Scrape handles POST /api/v1/scrape
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	deal, err := h.service.StoreScrapedDeal(r.Context(), req.URL)
	if err != nil {
		if verr, ok := database.AsValidationError(err); ok {
			h.respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"error":  "deal rejected",
				"reason": verr.Reason,
			})
			return
		}
		h.logger.Error("scrape failed", "url", req.URL, "error", err)
		h.respondError(w, http.StatusInternalServerError, "scrape failed")
		return
	}

	h.respondJSON(w, http.StatusCreated, deal)
}

// TriggerIngestion handles POST /api/v1/scrape/trigger
func (h *Handlers) TriggerIngestion(w http.ResponseWriter, r *http.Request) {
	if !h.triggerLimit.Allow() {
		h.respondError(w, http.StatusTooManyRequests, "trigger rate limit exceeded")
		return
	}

	queued := h.service.TriggerIngestion()
	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"queued":  queued,
		"message": triggerMessage(queued),
	})
}

func triggerMessage(queued bool) string {
	if queued {
		return "ingestion run queued"
	}
	return "ingestion run already pending"
}

func parsePlatforms(raw string) ([]models.Platform, error) {
	if raw == "" {
		return nil, nil
	}

	var platforms []models.Platform
	for _, part := range strings.Split(raw, ",") {
		p := models.Platform(strings.ToLower(strings.TrimSpace(part)))
		if !p.Valid() {
			return nil, errors.New("unknown platform: " + string(p))
		}
		platforms = append(platforms, p)
	}
	return platforms, nil
}

func parseFloat(raw string) float64 {
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
