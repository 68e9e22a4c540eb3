package requisition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a new PostgreSQL requisition repository.
func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, req *Requisition, entry *HistoryEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO requisitions
		  (id, material_name, stock_item_id, quantity, value, priority, status,
		   total_received_quantity, requested_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		req.ID, req.MaterialName, req.StockItemID, req.Quantity, req.Value,
		req.Priority, req.Status, req.TotalReceivedQuantity, req.RequestedBy,
		req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert requisition: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Requisition, error) {
	req, err := scanRequisition(r.db.QueryRowContext(ctx, `
		SELECT id, material_name, stock_item_id, quantity, value, priority, status,
		       total_received_quantity, requested_by,
		       approved_by, approved_at, ordered_by, ordered_at,
		       reverted_by, reverted_at, revert_reason,
		       rejected_by, rejected_at, reject_reason, reject_level,
		       created_at, updated_at
		FROM requisitions WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	if req.StatusHistory, err = r.listHistory(ctx, id); err != nil {
		return nil, err
	}
	if req.PartialReceipts, err = r.listReceipts(ctx, id); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]*Requisition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, material_name, stock_item_id, quantity, value, priority, status,
		       total_received_quantity, requested_by,
		       approved_by, approved_at, ordered_by, ordered_at,
		       reverted_by, reverted_at, revert_reason,
		       rejected_by, rejected_at, reject_reason, reject_level,
		       created_at, updated_at
		FROM requisitions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reqs []*Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// Update locks the requisition row, writes the mutated fields, and appends
// the history entry (and receipt, when present) inside one transaction.
func (r *postgresRepo) Update(ctx context.Context, req *Requisition, entry *HistoryEntry, receipt *ReceiptRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM requisitions WHERE id=$1 FOR UPDATE`, req.ID).
		Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("requisition %s: %w", req.ID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE requisitions SET
		  status=$1, total_received_quantity=$2,
		  approved_by=$3, approved_at=$4,
		  ordered_by=$5, ordered_at=$6,
		  reverted_by=$7, reverted_at=$8, revert_reason=$9,
		  rejected_by=$10, rejected_at=$11, reject_reason=$12, reject_level=$13,
		  updated_at=$14
		WHERE id=$15`,
		req.Status, req.TotalReceivedQuantity,
		nullable(req.ApprovedBy), req.ApprovedAt,
		nullable(req.OrderedBy), req.OrderedAt,
		nullable(req.RevertedBy), req.RevertedAt, nullable(req.RevertReason),
		nullable(req.RejectedBy), req.RejectedAt, nullable(req.RejectReason), nullable(req.RejectLevel),
		req.UpdatedAt, req.ID)
	if err != nil {
		return fmt.Errorf("update requisition: %w", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}
	if receipt != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO requisition_receipts
			  (id, requisition_id, date, received_by, received_date,
			   purchased_price, purchased_quantity, purchased_from,
			   invoice_number, quality_check, notes,
			   is_partial, total_received_so_far, original_quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
			receipt.ID, receipt.RequisitionID, receipt.Date,
			receipt.ReceivedBy, receipt.ReceivedDate,
			receipt.PurchasedPrice, receipt.PurchasedQuantity, receipt.PurchasedFrom,
			receipt.InvoiceNumber, nullable(string(receipt.QualityCheck)), receipt.Notes,
			receipt.IsPartial, receipt.TotalReceivedSoFar, receipt.OriginalQuantity)
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
	}
	return tx.Commit()
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequisition(row rowScanner) (*Requisition, error) {
	req := &Requisition{}
	var stockItemID sql.NullString
	var approvedBy, orderedBy, revertedBy, revertReason sql.NullString
	var rejectedBy, rejectReason, rejectLevel sql.NullString
	var approvedAt, orderedAt, revertedAt, rejectedAt sql.NullTime
	err := row.Scan(&req.ID, &req.MaterialName, &stockItemID, &req.Quantity,
		&req.Value, &req.Priority, &req.Status,
		&req.TotalReceivedQuantity, &req.RequestedBy,
		&approvedBy, &approvedAt, &orderedBy, &orderedAt,
		&revertedBy, &revertedAt, &revertReason,
		&rejectedBy, &rejectedAt, &rejectReason, &rejectLevel,
		&req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requisition: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if stockItemID.Valid {
		if uid, err := uuid.Parse(stockItemID.String); err == nil {
			req.StockItemID = &uid
		}
	}
	req.ApprovedBy = approvedBy.String
	req.ApprovedAt = timePtr(approvedAt)
	req.OrderedBy = orderedBy.String
	req.OrderedAt = timePtr(orderedAt)
	req.RevertedBy = revertedBy.String
	req.RevertedAt = timePtr(revertedAt)
	req.RevertReason = revertReason.String
	req.RejectedBy = rejectedBy.String
	req.RejectedAt = timePtr(rejectedAt)
	req.RejectReason = rejectReason.String
	req.RejectLevel = rejectLevel.String
	return req, nil
}

func (r *postgresRepo) listHistory(ctx context.Context, id uuid.UUID) ([]*HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, requisition_id, status, date, description, "user", data
		FROM requisition_history WHERE requisition_id=$1 ORDER BY date DESC, id DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*HistoryEntry
	for rows.Next() {
		e := &HistoryEntry{}
		var data []byte
		if err := rows.Scan(&e.ID, &e.RequisitionID, &e.Status, &e.Date,
			&e.Description, &e.User, &data); err != nil {
			return nil, err
		}
		e.Data = data
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresRepo) listReceipts(ctx context.Context, id uuid.UUID) ([]*ReceiptRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, requisition_id, date, received_by, received_date,
		       purchased_price, purchased_quantity, purchased_from,
		       invoice_number, quality_check, notes,
		       is_partial, total_received_so_far, original_quantity
		FROM requisition_receipts WHERE requisition_id=$1 ORDER BY date ASC, id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var receipts []*ReceiptRecord
	for rows.Next() {
		rec := &ReceiptRecord{}
		var quality sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RequisitionID, &rec.Date,
			&rec.ReceivedBy, &rec.ReceivedDate,
			&rec.PurchasedPrice, &rec.PurchasedQuantity, &rec.PurchasedFrom,
			&rec.InvoiceNumber, &quality, &rec.Notes,
			&rec.IsPartial, &rec.TotalReceivedSoFar, &rec.OriginalQuantity); err != nil {
			return nil, err
		}
		rec.QualityCheck = QualityCheck(quality.String)
		receipts = append(receipts, rec)
	}
	return receipts, rows.Err()
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry *HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO requisition_history (id, requisition_id, status, date, description, "user", data)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		entry.ID, entry.RequisitionID, entry.Status, entry.Date,
		entry.Description, entry.User, nullableJSON(entry.Data))
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
