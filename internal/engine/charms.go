package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/charmlink/internal/store"
)

const maxLabelChars = 80

// CreateCharm registers a charm for the caller.
func (e *Engine) CreateCharm(ctx context.Context, access Access, productType, label string) (*store.Charm, error) {
	if access.UserID == "" {
		return nil, fmt.Errorf("create charm: %w", ErrUnauthorized)
	}
	productType = strings.ToLower(strings.TrimSpace(productType))
	if !store.ValidProductType(productType) {
		return nil, fmt.Errorf("create charm: %w: unknown product type %q", ErrInvalidArgument, productType)
	}
	label = strings.TrimSpace(label)
	if len([]rune(label)) > maxLabelChars {
		return nil, fmt.Errorf("create charm: %w: label longer than %d chars", ErrInvalidArgument, maxLabelChars)
	}

	c, err := e.DB.CreateCharm(ctx, access.UserID, productType, label)
	if err != nil {
		return nil, wrap("create charm", err)
	}
	return c, nil
}

// Charm reads a charm the caller owns.
func (e *Engine) Charm(ctx context.Context, charmID string, access Access) (*store.Charm, error) {
	c, err := e.DB.GetCharm(ctx, charmID)
	if err != nil {
		return nil, wrap("get charm", err)
	}
	if err := access.check(c.OwnerID); err != nil {
		return nil, wrap("get charm", err)
	}
	return c, nil
}

// Charms lists the caller's charms.
func (e *Engine) Charms(ctx context.Context, access Access) ([]store.Charm, error) {
	if access.UserID == "" {
		return nil, fmt.Errorf("list charms: %w", ErrUnauthorized)
	}
	charms, err := e.DB.ListCharms(ctx, access.UserID)
	if err != nil {
		return nil, wrap("list charms", err)
	}
	return charms, nil
}

// Habits lists the habits of a charm the caller owns, with current streaks
// as of today.
func (e *Engine) Habits(ctx context.Context, charmID string, access Access, today time.Time) ([]store.Habit, error) {
	if _, err := e.Charm(ctx, charmID, access); err != nil {
		return nil, err
	}
	habits, err := e.DB.ListHabits(ctx, charmID)
	if err != nil {
		return nil, wrap("list habits", err)
	}
	for i := range habits {
		if err := e.asOf(ctx, &habits[i], today); err != nil {
			return nil, wrap("list habits", err)
		}
	}
	return habits, nil
}
