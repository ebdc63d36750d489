package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const productColumns = `id, name, description, price, discount_price, images, image, category,
	sub_category, brand, count_in_stock, stock, unit, is_available, vendor_id, rating,
	num_reviews, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.DiscountPrice,
		&p.Images,
		&p.Image,
		&p.Category,
		&p.SubCategory,
		&p.Brand,
		&p.CountInStock,
		&p.Stock,
		&p.Unit,
		&p.IsAvailable,
		&p.VendorID,
		&p.Rating,
		&p.NumReviews,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	defer rows.Close()
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const createProduct = `
INSERT INTO products (
	name, description, price, discount_price, images, category, sub_category, brand,
	count_in_stock, stock, unit, is_available, vendor_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + productColumns

type CreateProductParams struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	Images        []string
	Category      string
	SubCategory   string
	Brand         string
	CountInStock  int32
	Stock         pgtype.Int4
	Unit          string
	IsAvailable   bool
	VendorID      pgtype.UUID
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.DiscountPrice,
		arg.Images,
		arg.Category,
		arg.SubCategory,
		arg.Brand,
		arg.CountInStock,
		arg.Stock,
		arg.Unit,
		arg.IsAvailable,
		arg.VendorID,
	))
}

const getProductByID = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

func (q *Queries) GetProductByID(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductByID, id))
}

const getProductByIDForUpdate = getProductByID + ` FOR UPDATE`

func (q *Queries) GetProductByIDForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductByIDForUpdate, id))
}

const getProductsByIDs = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1::uuid[])`

func (q *Queries) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// An empty keyword or category disables that filter. The keyword is bound
// through escapeLike so it matches literally.
const productFilter = `
WHERE ($1::text = '' OR name ILIKE '%' || $1 || '%' ESCAPE '\' OR description ILIKE '%' || $1 || '%' ESCAPE '\')
  AND ($2::text = '' OR category = $2)`

const listProducts = `SELECT ` + productColumns + ` FROM products` + productFilter + `
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

type ListProductsParams struct {
	Keyword  string
	Category string
	Limit    int32
	Offset   int32
}

func (q *Queries) ListProducts(ctx context.Context, arg ListProductsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, escapeLike(arg.Keyword), arg.Category, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes the LIKE wildcards in s so it matches only itself.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

const countProducts = `SELECT COUNT(*) FROM products` + productFilter

type CountProductsParams struct {
	Keyword  string
	Category string
}

func (q *Queries) CountProducts(ctx context.Context, arg CountProductsParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countProducts, escapeLike(arg.Keyword), arg.Category).Scan(&count)
	return count, err
}

const updateProduct = `
UPDATE products
SET name = $2, description = $3, price = $4, discount_price = $5, images = $6,
    category = $7, sub_category = $8, brand = $9, count_in_stock = $10, stock = $11,
    unit = $12, is_available = $13, updated_at = NOW()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID            uuid.UUID
	Name          string
	Description   string
	Price         decimal.Decimal
	DiscountPrice decimal.NullDecimal
	Images        []string
	Category      string
	SubCategory   string
	Brand         string
	CountInStock  int32
	Stock         pgtype.Int4
	Unit          string
	IsAvailable   bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.DiscountPrice,
		arg.Images,
		arg.Category,
		arg.SubCategory,
		arg.Brand,
		arg.CountInStock,
		arg.Stock,
		arg.Unit,
		arg.IsAvailable,
	))
}

const updateProductRating = `
UPDATE products SET rating = $2, num_reviews = $3, updated_at = NOW() WHERE id = $1`

type UpdateProductRatingParams struct {
	ID         uuid.UUID
	Rating     decimal.Decimal
	NumReviews int32
}

func (q *Queries) UpdateProductRating(ctx context.Context, arg UpdateProductRatingParams) error {
	_, err := q.db.Exec(ctx, updateProductRating, arg.ID, arg.Rating, arg.NumReviews)
	return err
}

const deleteProduct = `DELETE FROM products WHERE id = $1`

func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteProduct, id)
	return err
}
