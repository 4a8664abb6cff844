package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Product types a charm can be bound to.
const (
	ProductMemory = "memory"
	ProductLife   = "life"
	ProductHabit  = "habit"
)

// Charm is a physical NFC charm owned by a user.
type Charm struct {
	ID          string `db:"id" json:"id"`
	OwnerID     string `db:"owner_id" json:"owner_id"`
	ProductType string `db:"product_type" json:"product_type"`
	Label       string `db:"label" json:"label"`
	CreatedAt   int64  `db:"created_at" json:"created_at"`
}

var charmColumns = []string{"id", "owner_id", "product_type", "label", "created_at"}

// ValidProductType reports whether p is one of the known product types.
func ValidProductType(p string) bool {
	switch p {
	case ProductMemory, ProductLife, ProductHabit:
		return true
	}
	return false
}

// CreateCharm inserts a new charm for ownerID.
func (db *DB) CreateCharm(ctx context.Context, ownerID, productType, label string) (*Charm, error) {
	c := &Charm{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		ProductType: productType,
		Label:       label,
		CreatedAt:   time.Now().UnixMilli(),
	}

	query, args, err := db.builder().Insert("charms").
		Columns(charmColumns...).
		Values(c.ID, c.OwnerID, c.ProductType, c.Label, c.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert charm: %w", err)
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert charm: %w", err)
	}
	return c, nil
}

// GetCharm returns a charm by id, or ErrNotFound.
func (db *DB) GetCharm(ctx context.Context, id string) (*Charm, error) {
	query, args, err := db.builder().Select(charmColumns...).
		From("charms").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get charm: %w", err)
	}

	var c Charm
	if err := db.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get charm: %w", err)
	}
	return &c, nil
}

// ListCharms returns every charm owned by ownerID, oldest first.
func (db *DB) ListCharms(ctx context.Context, ownerID string) ([]Charm, error) {
	query, args, err := db.builder().Select(charmColumns...).
		From("charms").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list charms: %w", err)
	}

	var charms []Charm
	if err := db.SelectContext(ctx, &charms, query, args...); err != nil {
		return nil, fmt.Errorf("list charms: %w", err)
	}
	return charms, nil
}

// GetCharm reads a charm inside the transaction.
func (t *Tx) GetCharm(ctx context.Context, id string) (*Charm, error) {
	query, args, err := t.sb.Select(charmColumns...).
		From("charms").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get charm: %w", err)
	}

	var c Charm
	if err := t.tx.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get charm: %w", err)
	}
	return &c, nil
}
