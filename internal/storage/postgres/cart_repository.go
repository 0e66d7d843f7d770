package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const opTimeout = 5 * time.Second

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository создаёт PostgreSQL-реализацию CartRepository.
// Позиции хранятся как JSONB в том же формате, что и на сетевой границе.
func NewCartRepository(store *Store) domain.CartRepository {
	return &cartRepository{db: store.DB()}
}

func (r *cartRepository) Get(ctx context.Context, userID string) (domain.ServerCart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		cart  = domain.ServerCart{UserID: userID}
		items []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT items, updated_at
		FROM carts
		WHERE user_id = $1
	`, userID).Scan(&items, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ServerCart{}, domain.ErrCartNotFound
		}
		return domain.ServerCart{}, fmt.Errorf("select cart: %w", err)
	}

	if err := json.Unmarshal(items, &cart.Items); err != nil {
		return domain.ServerCart{}, fmt.Errorf("decode cart items: %w", err)
	}
	return cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart domain.ServerCart) error {
	if cart.UserID == "" {
		return domain.ErrUserIDRequired
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items := cart.Items
	if items == nil {
		items = []domain.LineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart items: %w", err)
	}
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO carts (user_id, items, item_count, total, updated_at)
		VALUES ($1, $2::jsonb, $3, $4::numeric, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			items = EXCLUDED.items,
			item_count = EXCLUDED.item_count,
			total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at
	`,
		cart.UserID, string(payload), domain.ItemCount(items),
		domain.CalculateTotal(items).StringFixed(2), cart.UpdatedAt,
	)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("cart %s violates constraint: %w", cart.UserID, err)
		}
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514"
	}
	return false
}

var _ domain.CartRepository = (*cartRepository)(nil)
