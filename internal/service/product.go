package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/repository"
	"github.com/dukerupert/basket/internal/telemetry"
)

type productService struct {
	store repository.Store
}

// NewProductService creates a new ProductService instance
func NewProductService(store repository.Store) domain.ProductService {
	return &productService{store: store}
}

// ListProducts returns one page of the catalog, newest first.
func (s *productService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.ProductPage, error) {
	const op = "product.list"

	filter.Normalize()

	count, err := s.store.CountProducts(ctx, repository.CountProductsParams{
		Keyword:  filter.Keyword,
		Category: filter.Category,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count products")
	}

	rows, err := s.store.ListProducts(ctx, repository.ListProductsParams{
		Keyword:  filter.Keyword,
		Category: filter.Category,
		Limit:    int32(filter.PageSize),
		Offset:   int32(filter.Offset()),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list products")
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, productFromRow(row))
	}

	pages := int((count + int64(filter.PageSize) - 1) / int64(filter.PageSize))

	return &domain.ProductPage{
		Count:    int(count),
		Pages:    pages,
		Page:     filter.Page,
		Products: products,
	}, nil
}

// GetProduct returns a product with its reviews.
func (s *productService) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	return s.loadProduct(ctx, s.store, "product.get", productID)
}

// CreateProduct adds a product with the caller as vendor.
func (s *productService) CreateProduct(ctx context.Context, params domain.ProductParams) (*domain.Product, error) {
	const op = "product.create"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateProductParams(op, params); err != nil {
		return nil, err
	}

	row, err := s.store.CreateProduct(ctx, repository.CreateProductParams{
		Name:          params.Name,
		Description:   params.Description,
		Price:         params.Price,
		DiscountPrice: decimalToNull(params.DiscountPrice),
		Images:        nonNilStrings(params.Images),
		Category:      params.Category,
		SubCategory:   params.SubCategory,
		Brand:         params.Brand,
		CountInStock:  int32(params.CountInStock),
		Stock:         intToPgtype(params.Stock),
		Unit:          unitOrDefault(params.Unit),
		IsAvailable:   params.IsAvailable == nil || *params.IsAvailable,
		VendorID:      uuidToPgtype(&user.ID),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create product")
	}

	product := productFromRow(row)
	return &product, nil
}

// UpdateProduct replaces the editable fields of a product.
func (s *productService) UpdateProduct(ctx context.Context, productID uuid.UUID, params domain.ProductParams) (*domain.Product, error) {
	const op = "product.update"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateProductParams(op, params); err != nil {
		return nil, err
	}

	existing, err := s.authorizeVendor(ctx, op, user, productID)
	if err != nil {
		return nil, err
	}

	isAvailable := existing.IsAvailable
	if params.IsAvailable != nil {
		isAvailable = *params.IsAvailable
	}

	row, err := s.store.UpdateProduct(ctx, repository.UpdateProductParams{
		ID:            productID,
		Name:          params.Name,
		Description:   params.Description,
		Price:         params.Price,
		DiscountPrice: decimalToNull(params.DiscountPrice),
		Images:        nonNilStrings(params.Images),
		Category:      params.Category,
		SubCategory:   params.SubCategory,
		Brand:         params.Brand,
		CountInStock:  int32(params.CountInStock),
		Stock:         intToPgtype(params.Stock),
		Unit:          unitOrDefault(params.Unit),
		IsAvailable:   isAvailable,
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, op, "failed to update product")
	}

	product := productFromRow(row)
	return &product, nil
}

// DeleteProduct removes a product and its reviews.
func (s *productService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	const op = "product.delete"

	user, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if _, err := s.authorizeVendor(ctx, op, user, productID); err != nil {
		return err
	}

	if err := s.store.DeleteProduct(ctx, productID); err != nil {
		return domain.Internal(err, op, "failed to delete product")
	}
	return nil
}

// AddReview records the caller's review. A user reviews a product once.
func (s *productService) AddReview(ctx context.Context, productID uuid.UUID, params domain.ReviewParams) (*domain.Product, error) {
	const op = "product.add_review"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRating(op, params.Rating); err != nil {
		return nil, err
	}

	var product *domain.Product
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		if err := lockProduct(ctx, q, op, productID); err != nil {
			return err
		}

		_, err := q.GetReviewByUser(ctx, repository.GetReviewByUserParams{ProductID: productID, UserID: user.ID})
		switch {
		case err == nil:
			return domain.ErrProductAlreadyReviewed
		case !isNotFound(err):
			return domain.Internal(err, op, "failed to check existing review")
		}

		_, err = q.CreateReview(ctx, repository.CreateReviewParams{
			ProductID: productID,
			UserID:    user.ID,
			Name:      user.Name,
			Rating:    int32(params.Rating),
			Comment:   params.Comment,
			Images:    nonNilStrings(params.Images),
		})
		if err != nil {
			if repository.IsUniqueViolation(err) {
				return domain.ErrProductAlreadyReviewed
			}
			return domain.Internal(err, op, "failed to create review")
		}

		product, err = s.refreshRating(ctx, q, op, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.ReviewsSubmitted.Inc()
	}
	return product, nil
}

// UpdateReview edits the caller's own review.
func (s *productService) UpdateReview(ctx context.Context, productID, reviewID uuid.UUID, params domain.ReviewParams) (*domain.Product, error) {
	const op = "product.update_review"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRating(op, params.Rating); err != nil {
		return nil, err
	}

	var product *domain.Product
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		review, err := s.lockReview(ctx, q, op, productID, reviewID)
		if err != nil {
			return err
		}
		if review.UserID != user.ID {
			return domain.ErrNotReviewAuthor
		}

		_, err = q.UpdateReview(ctx, repository.UpdateReviewParams{
			ID:      reviewID,
			Rating:  int32(params.Rating),
			Comment: params.Comment,
			Images:  nonNilStrings(params.Images),
		})
		if err != nil {
			return domain.Internal(err, op, "failed to update review")
		}

		product, err = s.refreshRating(ctx, q, op, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteReview removes a review. Author or admin only.
func (s *productService) DeleteReview(ctx context.Context, productID, reviewID uuid.UUID) (*domain.Product, error) {
	const op = "product.delete_review"

	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	var product *domain.Product
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		review, err := s.lockReview(ctx, q, op, productID, reviewID)
		if err != nil {
			return err
		}
		if !user.CanAccess(review.UserID) {
			return domain.ErrNotReviewAuthor
		}

		if err := q.DeleteReview(ctx, reviewID); err != nil {
			return domain.Internal(err, op, "failed to delete review")
		}

		product, err = s.refreshRating(ctx, q, op, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// authorizeVendor loads a product the caller may modify: admins may modify any
// product, vendors only their own.
func (s *productService) authorizeVendor(ctx context.Context, op string, user *domain.User, productID uuid.UUID) (*domain.Product, error) {
	row, err := s.store.GetProductByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}
	product := productFromRow(row)

	if user.IsAdmin() {
		return &product, nil
	}
	if product.VendorID == nil || *product.VendorID != user.ID {
		return nil, domain.ErrNotProductVendor
	}
	return &product, nil
}

func (s *productService) lockReview(ctx context.Context, q repository.Querier, op string, productID, reviewID uuid.UUID) (*domain.Review, error) {
	if err := lockProduct(ctx, q, op, productID); err != nil {
		return nil, err
	}

	row, err := q.GetReview(ctx, repository.GetReviewParams{ProductID: productID, ID: reviewID})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrReviewNotFound
		}
		return nil, domain.Internal(err, op, "failed to load review")
	}
	review := reviewFromRow(row)
	return &review, nil
}

// refreshRating recomputes rating and numReviews from the stored reviews and
// returns the updated product with its reviews.
func (s *productService) refreshRating(ctx context.Context, q repository.Querier, op string, productID uuid.UUID) (*domain.Product, error) {
	rows, err := q.ListReviewsByProduct(ctx, productID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reviews")
	}
	reviews := make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, reviewFromRow(row))
	}

	err = q.UpdateProductRating(ctx, repository.UpdateProductRatingParams{
		ID:         productID,
		Rating:     domain.AverageRating(reviews),
		NumReviews: int32(len(reviews)),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update rating")
	}

	return s.loadProduct(ctx, q, op, productID)
}

func (s *productService) loadProduct(ctx context.Context, q repository.Querier, op string, productID uuid.UUID) (*domain.Product, error) {
	row, err := q.GetProductByID(ctx, productID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, domain.Internal(err, op, "failed to load product")
	}
	product := productFromRow(row)

	reviews, err := q.ListReviewsByProduct(ctx, productID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list reviews")
	}
	for _, r := range reviews {
		product.Reviews = append(product.Reviews, reviewFromRow(r))
	}
	return &product, nil
}

func lockProduct(ctx context.Context, q repository.Querier, op string, productID uuid.UUID) error {
	if _, err := q.GetProductByIDForUpdate(ctx, productID); err != nil {
		if isNotFound(err) {
			return domain.ErrProductNotFound
		}
		return domain.Internal(err, op, "failed to lock product")
	}
	return nil
}

func validateProductParams(op string, params domain.ProductParams) error {
	if params.Name == "" || params.Category == "" {
		return domain.Invalid(op, "Name and category are required")
	}
	if params.Price.IsNegative() {
		return domain.Invalid(op, "Price must not be negative")
	}
	if params.DiscountPrice != nil && params.DiscountPrice.IsNegative() {
		return domain.Invalid(op, "Discount price must not be negative")
	}
	if params.CountInStock < 0 || (params.Stock != nil && *params.Stock < 0) {
		return domain.Invalid(op, "Stock must not be negative")
	}
	return nil
}

func validateRating(op string, rating int) error {
	if rating < 1 || rating > 5 {
		return domain.Invalid(op, "Rating must be between 1 and 5")
	}
	return nil
}

func unitOrDefault(unit string) string {
	if unit == "" {
		return domain.DefaultUnit
	}
	return unit
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
