package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/service"
)

// CatalogHandler serves the public product and offer endpoints.
type CatalogHandler struct {
	catalogService *service.CatalogService
	logger         zerolog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService *service.CatalogService, logger zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger.With().Str("handler", "catalog").Logger(),
	}
}

// RegisterRoutes mounts the catalog routes.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.handleListProducts)
	r.Get("/products/{id}", h.handleGetProduct)
	r.Get("/offers", h.handleListOffers)
	r.Get("/offers/{id}", h.handleGetOffer)
}

type productResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       amount `json:"price"`
	Unit        string `json:"unit"`
	Category    string `json:"category"`
	IsAvailable bool   `json:"is_available"`
}

func newProductResponse(p *domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       amount(p.Price),
		Unit:        p.Unit,
		Category:    p.Category,
		IsAvailable: p.IsAvailable,
	}
}

type offerResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OldPrice    amount `json:"old_price"`
	NewPrice    amount `json:"new_price"`
	ProductID   *int64 `json:"product_id"`
	IsActive    bool   `json:"is_active"`
}

func newOfferResponse(o *domain.Offer) offerResponse {
	return offerResponse{
		ID:          o.ID,
		Title:       o.Title,
		Description: o.Description,
		OldPrice:    amount(o.OldPrice),
		NewPrice:    amount(o.NewPrice),
		ProductID:   o.ProductID,
		IsActive:    o.IsActive,
	}
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	availableOnly, err := queryBool(r, "available_only")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	products, err := h.catalogService.ListProducts(r.Context(), domain.ProductFilter{
		Category:      r.URL.Query().Get("category"),
		AvailableOnly: availableOnly,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *CatalogHandler) handleListOffers(w http.ResponseWriter, r *http.Request) {
	includeInactive, err := queryBool(r, "include_inactive")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	offers, err := h.catalogService.ListOffers(r.Context(), includeInactive)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	resp := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		resp = append(resp, newOfferResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandler) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	offer, err := h.catalogService.GetOffer(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newOfferResponse(offer))
}
