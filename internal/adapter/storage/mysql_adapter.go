package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/market-checkout/internal/core/domain"
)

var ErrCheckoutNotFound = errors.New("checkout not found")

//go:embed schema.sql
var schema string

// MySQLAdapter journals checkout attempts so a partially placed checkout can
// be reconciled after the fact.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// Migrate creates the journal tables if they do not exist yet.
func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) BeginCheckout(ctx context.Context, o domain.CheckoutOutcome) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkouts (id, user_id, shipping_mode, status, subtotal, ongkir, service_fee,
			discount, grand_total, placed, lat, lng, location_fallback, promo_applied, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.ShippingMode, o.Status, o.Totals.Subtotal, o.Totals.Ongkir, o.Totals.ServiceFee,
		o.Totals.Discount, o.Totals.GrandTotal, o.Placed, o.Location.Lat, o.Location.Lng,
		o.LocationFallback, o.PromoApplied, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout: %w", err)
	}

	for i, line := range o.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO checkout_lines (checkout_id, line_id, position, item_id, quantity, subtotal, status, reason, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, line.LineID, i, line.ItemID, line.Quantity, line.Subtotal, line.Status, line.Reason, o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert checkout line %s: %w", line.LineID, err)
		}
	}

	return tx.Commit()
}

func (m *MySQLAdapter) RecordLine(ctx context.Context, checkoutID string, line domain.LineOutcome) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE checkout_lines
		SET status = ?, reason = ?, updated_at = ?
		WHERE checkout_id = ? AND line_id = ?`,
		line.Status, line.Reason, time.Now(), checkoutID, line.LineID,
	)
	if err != nil {
		return fmt.Errorf("update checkout line: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrCheckoutNotFound
	}

	return nil
}

func (m *MySQLAdapter) FinishCheckout(ctx context.Context, o domain.CheckoutOutcome) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE checkouts
		SET status = ?, placed = ?, promo_applied = ?, updated_at = ?
		WHERE id = ?`,
		o.Status, o.Placed, o.PromoApplied, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update checkout: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrCheckoutNotFound
	}

	return nil
}

func (m *MySQLAdapter) GetCheckout(ctx context.Context, checkoutID string) (*domain.CheckoutOutcome, error) {
	var o domain.CheckoutOutcome
	err := m.db.QueryRowContext(ctx, `
		SELECT id, user_id, shipping_mode, status, subtotal, ongkir, service_fee, discount, grand_total,
			placed, lat, lng, location_fallback, promo_applied, created_at, updated_at
		FROM checkouts WHERE id = ?`, checkoutID,
	).Scan(&o.ID, &o.UserID, &o.ShippingMode, &o.Status, &o.Totals.Subtotal, &o.Totals.Ongkir,
		&o.Totals.ServiceFee, &o.Totals.Discount, &o.Totals.GrandTotal, &o.Placed, &o.Location.Lat,
		&o.Location.Lng, &o.LocationFallback, &o.PromoApplied, &o.CreatedAt, &o.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT line_id, item_id, quantity, subtotal, status, reason
		FROM checkout_lines WHERE checkout_id = ? ORDER BY position`, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("query checkout lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.LineOutcome
		if err := rows.Scan(&line.LineID, &line.ItemID, &line.Quantity, &line.Subtotal, &line.Status, &line.Reason); err != nil {
			return nil, fmt.Errorf("scan checkout line: %w", err)
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkout lines: %w", err)
	}

	return &o, nil
}
