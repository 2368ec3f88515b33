// Package postgres implements durable storage on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anbanon/verdana/internal/domain"
)

// uniqueViolation is the PostgreSQL error code raised when an insert loses a
// create race against one of the unique indexes.
const uniqueViolation = "23505"

// CartStore implements domain.CartStore on PostgreSQL. All invariants the
// interface promises (one cart per identity, one row per (cart, product))
// are backed by unique indexes, so racing writers fail loudly instead of
// corrupting state.
type CartStore struct {
	pool *pgxpool.Pool
}

// Compile-time check that CartStore implements domain.CartStore.
var _ domain.CartStore = (*CartStore)(nil)

// NewCartStore creates a PostgreSQL-backed cart store.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

const cartColumns = `id, user_id, session_token, created_at, updated_at`

func scanCart(row pgx.Row) (*domain.Cart, error) {
	var (
		c     domain.Cart
		token *string
	)
	if err := row.Scan(&c.ID, &c.UserID, &token, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if token != nil {
		c.SessionToken = *token
	}
	return &c, nil
}

// CartByID implements domain.CartStore.
func (s *CartStore) CartByID(ctx context.Context, id uuid.UUID) (*domain.Cart, error) {
	query := fmt.Sprintf(`SELECT %s FROM carts WHERE id = $1`, cartColumns)
	cart, err := scanCart(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "cart_store.by_id", "failed to query cart")
	}
	return cart, nil
}

// CartByUser implements domain.CartStore.
func (s *CartStore) CartByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := fmt.Sprintf(`SELECT %s FROM carts WHERE user_id = $1`, cartColumns)
	cart, err := scanCart(s.pool.QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "cart_store.by_user", "failed to query cart")
	}
	return cart, nil
}

// CartBySession implements domain.CartStore.
func (s *CartStore) CartBySession(ctx context.Context, token string) (*domain.Cart, error) {
	query := fmt.Sprintf(`SELECT %s FROM carts WHERE session_token = $1`, cartColumns)
	cart, err := scanCart(s.pool.QueryRow(ctx, query, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "cart_store.by_session", "failed to query cart")
	}
	return cart, nil
}

// CreateUserCart implements domain.CartStore. Losing the create race against
// a concurrent request for the same user resolves to the winner's cart.
func (s *CartStore) CreateUserCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	query := fmt.Sprintf(`
		INSERT INTO carts (user_id)
		VALUES ($1)
		RETURNING %s`, cartColumns)

	cart, err := scanCart(s.pool.QueryRow(ctx, query, userID))
	if isUniqueViolation(err) {
		return s.CartByUser(ctx, userID)
	}
	if err != nil {
		return nil, domain.Internal(err, "cart_store.create_user", "failed to create cart")
	}
	return cart, nil
}

// CreateSessionCart implements domain.CartStore.
func (s *CartStore) CreateSessionCart(ctx context.Context, token string) (*domain.Cart, error) {
	query := fmt.Sprintf(`
		INSERT INTO carts (session_token)
		VALUES ($1)
		RETURNING %s`, cartColumns)

	cart, err := scanCart(s.pool.QueryRow(ctx, query, token))
	if isUniqueViolation(err) {
		return s.CartBySession(ctx, token)
	}
	if err != nil {
		return nil, domain.Internal(err, "cart_store.create_session", "failed to create cart")
	}
	return cart, nil
}

// Items implements domain.CartStore. This is the unlocked read path.
func (s *CartStore) Items(ctx context.Context, cartID uuid.UUID) ([]domain.LineItem, error) {
	return queryItems(ctx, s.pool, cartID, "cart_store.items")
}

// Mutate implements domain.CartStore. It opens one transaction, locks the
// named cart rows in ascending id order so two overlapping multi-cart calls
// cannot deadlock, runs fn against the transaction, and bumps updated_at on
// every surviving locked cart before committing.
func (s *CartStore) Mutate(ctx context.Context, fn func(tx domain.CartTx) error, cartIDs ...uuid.UUID) error {
	const op = "cart_store.mutate"

	ids := make([]uuid.UUID, len(cartIDs))
	copy(ids, cartIDs)
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, op, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if len(ids) > 0 {
		rows, err := tx.Query(ctx,
			`SELECT id FROM carts WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
		if err != nil {
			return domain.Internal(err, op, "failed to lock carts")
		}
		locked := 0
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return domain.Internal(err, op, "failed to lock carts")
			}
			locked++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return domain.Internal(err, op, "failed to lock carts")
		}
		if locked != len(ids) {
			return domain.ErrCartNotFound
		}
	}

	if err := fn(&cartTx{tx: tx}); err != nil {
		return err
	}

	if len(ids) > 0 {
		// Carts deleted by fn are simply not matched here.
		_, err = tx.Exec(ctx,
			`UPDATE carts SET updated_at = now() WHERE id = ANY($1)`, ids)
		if err != nil {
			return domain.Internal(err, op, "failed to touch carts")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, op, "failed to commit transaction")
	}
	return nil
}

// =============================================================================
// TRANSACTION-SCOPED MUTATIONS
// =============================================================================

type cartTx struct {
	tx pgx.Tx
}

var _ domain.CartTx = (*cartTx)(nil)

const itemColumns = `id, cart_id, product_id, quantity, added_at`

func scanItem(row pgx.Row) (*domain.LineItem, error) {
	var it domain.LineItem
	if err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.AddedAt); err != nil {
		return nil, err
	}
	return &it, nil
}

func (t *cartTx) Items(ctx context.Context, cartID uuid.UUID) ([]domain.LineItem, error) {
	return queryItems(ctx, t.tx, cartID, "cart_tx.items")
}

func (t *cartTx) ItemByID(ctx context.Context, cartID, itemID uuid.UUID) (*domain.LineItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cart_items
		WHERE id = $1 AND cart_id = $2`, itemColumns)

	item, err := scanItem(t.tx.QueryRow(ctx, query, itemID, cartID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCartItemNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "cart_tx.item_by_id", "failed to query cart item")
	}
	return item, nil
}

func (t *cartTx) ItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*domain.LineItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cart_items
		WHERE cart_id = $1 AND product_id = $2`, itemColumns)

	item, err := scanItem(t.tx.QueryRow(ctx, query, cartID, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCartItemNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "cart_tx.item_by_product", "failed to query cart item")
	}
	return item, nil
}

func (t *cartTx) AddItemQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int32) (*domain.LineItem, error) {
	query := fmt.Sprintf(`
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING %s`, itemColumns)

	item, err := scanItem(t.tx.QueryRow(ctx, query, cartID, productID, quantity))
	if err != nil {
		return nil, domain.Internal(err, "cart_tx.add_quantity", "failed to upsert cart item")
	}
	return item, nil
}

func (t *cartTx) SetItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE cart_items SET quantity = $2 WHERE id = $1`, itemID, quantity)
	if err != nil {
		return domain.Internal(err, "cart_tx.set_quantity", "failed to update cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (t *cartTx) MoveItem(ctx context.Context, itemID, destCartID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE cart_items SET cart_id = $2 WHERE id = $1`, itemID, destCartID)
	if err != nil {
		return domain.Internal(err, "cart_tx.move_item", "failed to move cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (t *cartTx) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return domain.Internal(err, "cart_tx.delete_item", "failed to delete cart item")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCartItemNotFound
	}
	return nil
}

func (t *cartTx) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return domain.Internal(err, "cart_tx.delete_items", "failed to clear cart")
	}
	return nil
}

func (t *cartTx) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	if err != nil {
		return domain.Internal(err, "cart_tx.delete_cart", "failed to delete cart")
	}
	return nil
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// querier is the subset of pgx shared by a pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryItems(ctx context.Context, q querier, cartID uuid.UUID, op string) ([]domain.LineItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM cart_items
		WHERE cart_id = $1
		ORDER BY added_at, id`, itemColumns)

	rows, err := q.Query(ctx, query, cartID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to query cart items")
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan cart item")
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read cart items")
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
