package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dukerupert/basket/internal/domain"
)

// MaxPageSize caps the pageSize query parameter of the catalog listing.
const MaxPageSize = domain.MaxPageSize

// ProductHandler handles the catalog and product reviews
type ProductHandler struct {
	products domain.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(products domain.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List handles GET /api/products?keyword=&category=&page=&pageSize=
func (h *ProductHandler) List(c echo.Context) error {
	filter := domain.ProductFilter{
		Keyword:  strings.TrimSpace(c.QueryParam("keyword")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Page:     queryInt(c, "page"),
		PageSize: min(queryInt(c, "pageSize"), MaxPageSize),
	}

	page, err := h.products.ListProducts(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{
		"count":    page.Count,
		"pages":    page.Pages,
		"page":     page.Page,
		"products": page.Products,
	})
}

// Get handles GET /api/products/:id
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.products.GetProduct(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"product": product})
}

// Create handles POST /api/products
func (h *ProductHandler) Create(c echo.Context) error {
	var params domain.ProductParams
	if err := bind(c, &params); err != nil {
		return err
	}

	product, err := h.products.CreateProduct(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, envelope{"product": product})
}

// Update handles PUT /api/products/:id
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var params domain.ProductParams
	if err := bind(c, &params); err != nil {
		return err
	}

	product, err := h.products.UpdateProduct(c.Request().Context(), id, params)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"product": product})
}

// Delete handles DELETE /api/products/:id
func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.products.DeleteProduct(c.Request().Context(), id); err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"message": "Product removed"})
}

// AddReview handles POST /api/products/:id/reviews
func (h *ProductHandler) AddReview(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var params domain.ReviewParams
	if err := bind(c, &params); err != nil {
		return err
	}

	product, err := h.products.AddReview(c.Request().Context(), id, params)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, envelope{"message": "Review added", "product": product})
}

// UpdateReview handles PUT /api/products/:id/reviews/:reviewId
func (h *ProductHandler) UpdateReview(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	reviewID, err := pathID(c, "reviewId")
	if err != nil {
		return err
	}

	var params domain.ReviewParams
	if err := bind(c, &params); err != nil {
		return err
	}

	product, err := h.products.UpdateReview(c.Request().Context(), id, reviewID, params)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"message": "Review updated", "product": product})
}

// DeleteReview handles DELETE /api/products/:id/reviews/:reviewId
func (h *ProductHandler) DeleteReview(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	reviewID, err := pathID(c, "reviewId")
	if err != nil {
		return err
	}

	product, err := h.products.DeleteReview(c.Request().Context(), id, reviewID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, envelope{"message": "Review deleted", "product": product})
}
