package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL inventory repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) CreateItem(ctx context.Context, item *StockItem) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_items
		  (id, name, category, unit, current_stock, min_stock, max_stock, unit_price,
		   last_updated, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		item.ID, item.Name, item.Category, item.Unit,
		item.CurrentStock, item.MinStock, item.MaxStock,
		item.UnitPrice, item.LastUpdated, item.CreatedAt, item.UpdatedAt)
	return err
}

func (r *postgresRepo) GetItemByID(ctx context.Context, id uuid.UUID) (*StockItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, `
		SELECT id, name, category, unit, current_stock, min_stock, max_stock,
		       unit_price, last_updated, created_at, updated_at
		FROM stock_items WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	item.Transactions, err = r.ListTransactions(ctx, item.ID)
	return item, err
}

func (r *postgresRepo) ListItems(ctx context.Context) ([]*StockItem, error) {
	return r.queryItems(ctx, `
		SELECT id, name, category, unit, current_stock, min_stock, max_stock,
		       unit_price, last_updated, created_at, updated_at
		FROM stock_items ORDER BY name ASC`)
}

func (r *postgresRepo) SearchItemsByName(ctx context.Context, query string) ([]*StockItem, error) {
	return r.queryItems(ctx, `
		SELECT id, name, category, unit, current_stock, min_stock, max_stock,
		       unit_price, last_updated, created_at, updated_at
		FROM stock_items
		WHERE lower(name) LIKE '%' || lower($1) || '%'
		   OR lower($1) LIKE '%' || lower(name) || '%'
		ORDER BY name ASC`, query)
}

// AppendTransaction locks the item row, writes the new balance, and inserts
// the movement inside one transaction.
func (r *postgresRepo) AppendTransaction(ctx context.Context, item *StockItem, txn *Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRowContext(ctx,
		`SELECT current_stock FROM stock_items WHERE id=$1 FOR UPDATE`, item.ID).
		Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("item %s: %w", item.ID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE stock_items
		SET current_stock=$1, last_updated=$2, updated_at=NOW()
		WHERE id=$3`,
		item.CurrentStock, item.LastUpdated, item.ID)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_transactions
		  (id, item_id, date, type, quantity, note, "user", balance, request_id, reference)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''))`,
		txn.ID, txn.ItemID, txn.Date, txn.Type, txn.Quantity,
		txn.Note, txn.User, txn.Balance, txn.RequestID, txn.Reference)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepo) ListTransactions(ctx context.Context, itemID uuid.UUID) ([]*Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, date, type, quantity, note, "user", balance, request_id, reference
		FROM stock_transactions WHERE item_id=$1 ORDER BY date DESC, id DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []*Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

func (r *postgresRepo) GetTransactionByReference(ctx context.Context, reference string) (*Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, item_id, date, type, quantity, note, "user", balance, request_id, reference
		FROM stock_transactions WHERE reference=$1`, reference)
	txn := &Transaction{}
	var requestID sql.NullString
	var ref sql.NullString
	err := row.Scan(&txn.ID, &txn.ItemID, &txn.Date, &txn.Type, &txn.Quantity,
		&txn.Note, &txn.User, &txn.Balance, &requestID, &ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reference %q: %w", reference, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	applyNullables(txn, requestID, ref)
	return txn, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*StockItem, error) {
	item := &StockItem{}
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Unit,
		&item.CurrentStock, &item.MinStock, &item.MaxStock,
		&item.UnitPrice, &item.LastUpdated, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stock item: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	txn := &Transaction{}
	var requestID, ref sql.NullString
	err := row.Scan(&txn.ID, &txn.ItemID, &txn.Date, &txn.Type, &txn.Quantity,
		&txn.Note, &txn.User, &txn.Balance, &requestID, &ref)
	if err != nil {
		return nil, err
	}
	applyNullables(txn, requestID, ref)
	return txn, nil
}

func applyNullables(txn *Transaction, requestID, ref sql.NullString) {
	if requestID.Valid {
		if uid, err := uuid.Parse(requestID.String); err == nil {
			txn.RequestID = &uid
		}
	}
	if ref.Valid {
		txn.Reference = ref.String
	}
}

func (r *postgresRepo) queryItems(ctx context.Context, query string, args ...interface{}) ([]*StockItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*StockItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
