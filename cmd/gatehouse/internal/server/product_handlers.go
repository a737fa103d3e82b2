package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/apierror"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/auth"
	"github.com/terraconstructs/gatehouse/cmd/gatehouse/internal/db/models"
)

// DefaultCurrency is stored when a product is created without one.
const DefaultCurrency = "USD"

type createProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
}

type productView struct {
	ID          string    `json:"id"`
	CreatorID   string    `json:"creatorId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"createdAt"`
}

// createProduct handles POST /api/v1/products
//
// The body is checked against the create-product schema before it is decoded;
// violations answer VALIDATION_ERROR with one entry per field.
func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request, rc auth.RequestContext) {
	p, ok := requirePrincipal(w, rc)
	if !ok {
		return
	}
	body, ok := h.readValidated(w, r, rc, SchemaCreateProduct)
	if !ok {
		return
	}

	var req createProductRequest
	if err := json.Unmarshal(body, &req); err != nil {
		apierror.Write(w, apierror.BadRequest("Request body must be valid JSON"))
		return
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}

	product := &models.Product{
		CreatorID:   p.ID,
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
	}
	if err := h.deps.Products.Create(r.Context(), product); err != nil {
		h.internal(w, r, rc, err)
		return
	}

	apierror.WriteJSON(w, http.StatusCreated, productView{
		ID:          product.ID,
		CreatorID:   product.CreatorID,
		Title:       product.Title,
		Description: product.Description,
		PriceCents:  product.PriceCents,
		Currency:    product.Currency,
		CreatedAt:   product.CreatedAt,
	})
}
