// Package cart keeps the per-session shopping cart. Cart state lives only in
// the session store; nothing here writes to durable storage.
package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"webshop/internal/models"
	"webshop/internal/repo"
	"webshop/internal/session"
)

const sessionKey = "cart"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation")
)

type Action string

const (
	ActionIncrement Action = "increment"
	ActionDecrement Action = "decrement"
	ActionSet       Action = "set"
)

// Contents maps product ID to desired quantity. Quantities are always >= 1;
// an entry that would drop below 1 is removed instead.
type Contents map[uint]uint

func (c Contents) clone() Contents {
	out := make(Contents, len(c))
	for id, qty := range c {
		out[id] = qty
	}
	return out
}

type Line struct {
	Product  models.Product  `json:"product"`
	Quantity uint            `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// View resolves cart entries against the catalog at read time, so the prices
// shown are the current ones, not a snapshot.
type View struct {
	Lines   []Line          `json:"lines"`
	Total   decimal.Decimal `json:"total"`
	Skipped []uint          `json:"skipped,omitempty"`
}

type Service struct {
	Store session.Store
	Repo  *repo.GormRepo
}

func (s *Service) Contents(sessionID string) Contents {
	v, ok := s.Store.Get(sessionID, sessionKey)
	if !ok {
		return Contents{}
	}
	c, ok := v.(Contents)
	if !ok {
		return Contents{}
	}
	return c.clone()
}

func (s *Service) save(sessionID string, c Contents) {
	if len(c) == 0 {
		s.Store.Delete(sessionID, sessionKey)
		return
	}
	s.Store.Put(sessionID, sessionKey, c)
}

func (s *Service) Clear(sessionID string) {
	s.Store.Delete(sessionID, sessionKey)
}

// Add bumps the quantity of productID by one, starting at one. The product
// must exist in the catalog.
func (s *Service) Add(ctx context.Context, sessionID string, productID uint) (Contents, error) {
	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	c := s.Contents(sessionID)
	c[productID]++
	s.save(sessionID, c)
	return c, nil
}

// Remove deletes the entry entirely, whatever its quantity. Absent entries
// are a no-op.
func (s *Service) Remove(sessionID string, productID uint) Contents {
	c := s.Contents(sessionID)
	delete(c, productID)
	s.save(sessionID, c)
	return c
}

// Update adjusts one entry. Decrementing (or setting) below one removes the
// entry rather than storing a zero quantity.
func (s *Service) Update(sessionID string, productID uint, action Action, quantity uint) (Contents, error) {
	c := s.Contents(sessionID)
	current, ok := c[productID]
	if !ok {
		return nil, fmt.Errorf("cart entry for product %d: %w", productID, ErrNotFound)
	}

	switch action {
	case ActionIncrement:
		c[productID] = current + 1
	case ActionDecrement:
		if current <= 1 {
			delete(c, productID)
		} else {
			c[productID] = current - 1
		}
	case ActionSet:
		if quantity < 1 {
			delete(c, productID)
		} else {
			c[productID] = quantity
		}
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	s.save(sessionID, c)
	return c, nil
}

// View prices the cart against the catalog. Entries whose product has since
// vanished are skipped and reported instead of failing the whole view.
func (s *Service) View(ctx context.Context, sessionID string) (*View, error) {
	c := s.Contents(sessionID)

	ids := make([]uint, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	view := &View{Total: decimal.Zero}
	for _, id := range ids {
		product, err := s.Repo.GetProduct(ctx, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			view.Skipped = append(view.Skipped, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(c[id])))
		view.Lines = append(view.Lines, Line{
			Product:  *product,
			Quantity: c[id],
			Subtotal: subtotal,
		})
		view.Total = view.Total.Add(subtotal)
	}
	return view, nil
}
