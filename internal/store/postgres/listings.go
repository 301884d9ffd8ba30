package postgres

import (
	"context"

	"travelbook/internal/models"
	"travelbook/internal/store"

	"github.com/jackc/pgx/v5"
)

const listingColumns = `l.listing_id, l.host_id, l.title, l.description, l.location, l.country, l.image_url, l.price_per_night, l.created_at`

func scanListing(row pgx.Row) (models.Listing, error) {
	var l models.Listing
	err := row.Scan(&l.ListingID, &l.HostID, &l.Title, &l.Description, &l.Location, &l.Country, &l.ImageURL, &l.PricePerNight, &l.CreatedAt)
	return l, err
}

func (s *Store) ListListings(ctx context.Context, limit, offset int) ([]models.Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings l
		ORDER BY l.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

func (s *Store) GetListing(ctx context.Context, listingID string) (models.Listing, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+listingColumns+`
		FROM listings l
		WHERE l.listing_id = $1
	`, listingID)
	listing, err := scanListing(row)
	if err != nil {
		return models.Listing{}, notFound(err)
	}
	return listing, nil
}

func (s *Store) ToggleWishlist(ctx context.Context, userID, listingID string) (added bool, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		DELETE FROM wishlists
		WHERE user_id = $1 AND listing_id = $2
	`, userID, listingID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM listings WHERE listing_id = $1)`, listingID).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			err = store.ErrNotFound
			return false, err
		}
		if _, err = tx.Exec(ctx, `
			INSERT INTO wishlists (user_id, listing_id)
			VALUES ($1, $2)
		`, userID, listingID); err != nil {
			return false, err
		}
		added = true
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	return added, nil
}

func (s *Store) ListWishlist(ctx context.Context, userID string) ([]models.Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+listingColumns+`
		FROM wishlists w
		JOIN listings l ON l.listing_id = w.listing_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return collectListings(rows)
}

func collectListings(rows pgx.Rows) ([]models.Listing, error) {
	defer rows.Close()
	listings := []models.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}
