package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reviewColumns = `id, product_id, user_id, name, rating, comment, images, created_at, updated_at`

func scanReview(row pgx.Row) (ProductReview, error) {
	var r ProductReview
	err := row.Scan(
		&r.ID,
		&r.ProductID,
		&r.UserID,
		&r.Name,
		&r.Rating,
		&r.Comment,
		&r.Images,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

const createReview = `
INSERT INTO product_reviews (product_id, user_id, name, rating, comment, images)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + reviewColumns

type CreateReviewParams struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
	Name      string
	Rating    int32
	Comment   string
	Images    []string
}

func (q *Queries) CreateReview(ctx context.Context, arg CreateReviewParams) (ProductReview, error) {
	return scanReview(q.db.QueryRow(ctx, createReview,
		arg.ProductID,
		arg.UserID,
		arg.Name,
		arg.Rating,
		arg.Comment,
		arg.Images,
	))
}

const getReview = `SELECT ` + reviewColumns + ` FROM product_reviews WHERE product_id = $1 AND id = $2`

type GetReviewParams struct {
	ProductID uuid.UUID
	ID        uuid.UUID
}

func (q *Queries) GetReview(ctx context.Context, arg GetReviewParams) (ProductReview, error) {
	return scanReview(q.db.QueryRow(ctx, getReview, arg.ProductID, arg.ID))
}

const getReviewByUser = `SELECT ` + reviewColumns + ` FROM product_reviews WHERE product_id = $1 AND user_id = $2`

type GetReviewByUserParams struct {
	ProductID uuid.UUID
	UserID    uuid.UUID
}

func (q *Queries) GetReviewByUser(ctx context.Context, arg GetReviewByUserParams) (ProductReview, error) {
	return scanReview(q.db.QueryRow(ctx, getReviewByUser, arg.ProductID, arg.UserID))
}

const listReviewsByProduct = `SELECT ` + reviewColumns + ` FROM product_reviews WHERE product_id = $1 ORDER BY created_at`

func (q *Queries) ListReviewsByProduct(ctx context.Context, productID uuid.UUID) ([]ProductReview, error) {
	rows, err := q.db.Query(ctx, listReviewsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ProductReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const updateReview = `
UPDATE product_reviews SET rating = $2, comment = $3, images = $4, updated_at = NOW()
WHERE id = $1
RETURNING ` + reviewColumns

type UpdateReviewParams struct {
	ID      uuid.UUID
	Rating  int32
	Comment string
	Images  []string
}

func (q *Queries) UpdateReview(ctx context.Context, arg UpdateReviewParams) (ProductReview, error) {
	return scanReview(q.db.QueryRow(ctx, updateReview, arg.ID, arg.Rating, arg.Comment, arg.Images))
}

const deleteReview = `DELETE FROM product_reviews WHERE id = $1`

func (q *Queries) DeleteReview(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteReview, id)
	return err
}
