package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/minimarket/internal/auth"
	"github.com/prn-tf/minimarket/internal/domain"
	"github.com/prn-tf/minimarket/internal/service"
)

// CartHandler serves the authenticated cart endpoints.
type CartHandler struct {
	cartService  *service.CartService
	maxBodySize  int64
	legacyRoutes bool
	logger       zerolog.Logger
}

// NewCartHandler creates a new CartHandler. legacyRoutes enables
// POST /cart and POST /cart/legacy.
func NewCartHandler(cartService *service.CartService, maxBodySize int64, legacyRoutes bool, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		cartService:  cartService,
		maxBodySize:  maxBodySize,
		legacyRoutes: legacyRoutes,
		logger:       logger.With().Str("handler", "cart").Logger(),
	}
}

// RegisterRoutes mounts the cart routes. The caller must apply auth middleware.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.handleGetCart)
	r.Post("/cart/items", h.handleAddItem)
	r.Patch("/cart/items/{product_id}", h.handleSetQuantity)
	r.Delete("/cart/items/{product_id}", h.handleRemoveItem)

	if h.legacyRoutes {
		r.Post("/cart", h.handleAddItem)
		r.Post("/cart/legacy", h.handleLegacyAdd)
	}
}

type addItemRequest struct {
	ProductID *int64 `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type cartItemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	UnitPrice amount `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal amount `json:"line_total"`
}

type cartResponse struct {
	Username  string             `json:"username"`
	Items     []cartItemResponse `json:"items"`
	Total     amount             `json:"total"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type legacyCartResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   amount `json:"unit_price"`
	TotalPrice  amount `json:"total_price"`
	Unit        string `json:"unit"`
}

func newCartResponse(s *domain.CartSummary) cartResponse {
	items := make([]cartItemResponse, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, cartItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Unit:      item.Unit,
			UnitPrice: amount(item.UnitPrice),
			Quantity:  item.Quantity,
			LineTotal: amount(item.LineTotal),
		})
	}
	return cartResponse{
		Username:  s.Username,
		Items:     items,
		Total:     amount(s.Total),
		UpdatedAt: s.UpdatedAt,
	}
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	summary, err := h.cartService.GetCart(r.Context(), identity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(summary))
}

func (h *CartHandler) decodeAddItem(w http.ResponseWriter, r *http.Request) (int64, int, error) {
	var req addItemRequest
	if err := decodeJSON(w, r, h.maxBodySize, &req); err != nil {
		return 0, 0, err
	}
	if req.ProductID == nil {
		return 0, 0, requiredField("product_id")
	}
	if req.Quantity == nil {
		return 0, 0, requiredField("quantity")
	}
	return *req.ProductID, *req.Quantity, nil
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	productID, quantity, err := h.decodeAddItem(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	summary, err := h.cartService.AddItem(r.Context(), identity, productID, quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(summary))
}

func (h *CartHandler) handleLegacyAdd(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	productID, quantity, err := h.decodeAddItem(w, r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	out, err := h.cartService.LegacyAdd(r.Context(), identity, productID, quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, legacyCartResponse{
		ProductID:   out.Product.ID,
		ProductName: out.Product.Name,
		Quantity:    out.Quantity,
		UnitPrice:   amount(out.Product.Price),
		TotalPrice:  amount(out.TotalPrice),
		Unit:        out.Product.Unit,
	})
}

func (h *CartHandler) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	productID, err := pathID(r, "product_id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	quantity, err := queryQuantity(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	summary, err := h.cartService.SetItemQuantity(r.Context(), identity, productID, quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(summary))
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	productID, err := pathID(r, "product_id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	summary, err := h.cartService.RemoveItem(r.Context(), identity, productID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(summary))
}
