// Package order is the order lifecycle core: cart-to-order checkout, the
// total recalculation engine, and the payment/fulfillment state machine.
package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"

	"webshop/internal/logging"
	"webshop/internal/models"
	"webshop/internal/mykafka"
	"webshop/internal/notify"
	"webshop/internal/repo"
	"webshop/internal/service/activity"
	"webshop/internal/service/cart"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrNotOwner          = errors.New("order belongs to another user")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotification      = errors.New("notification delivery failed")
	ErrValidation        = errors.New("validation")
)

const defaultNotifyTimeout = 5 * time.Second

type Service struct {
	Repo     *repo.GormRepo
	Carts    *cart.Service
	Activity *activity.Service
	Notifier notify.Sender

	Producer *mykafka.Producer

	NotifyTimeout time.Duration
}

func (s *Service) publish(ctx context.Context, key string, event map[string]any) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.PublishEvent(ctx, "order_events", key, event); err != nil {
		logging.FromContext(ctx).Warn("order event publish failed", "error", err)
	}
}

// Checkout snapshots the session cart into a pending order. The operation is
// all-or-nothing: a product that vanished between cart-add and checkout
// aborts it and leaves the cart untouched. On success the cart is cleared
// and the new order returned.
func (s *Service) Checkout(ctx context.Context, userID uint, sessionID, address string) (*models.Order, error) {
	contents := s.Carts.Contents(sessionID)
	if len(contents) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]uint, 0, len(contents))
	for id := range contents {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	lines := make([]repo.CheckoutLine, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, repo.CheckoutLine{ProductID: id, Quantity: contents[id]})
	}

	order, err := s.Repo.Checkout(ctx, userID, address, lines)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("checkout: %w", ErrNotFound)
		}
		return nil, err
	}

	s.Carts.Clear(sessionID)

	if s.Activity != nil {
		s.Activity.Record(ctx, userID, models.ActionBuy,
			fmt.Sprintf("placed order #%d for %s", order.ID, order.Total.StringFixed(2)))
	}
	s.publish(ctx, fmt.Sprint(userID), map[string]any{
		"type":    "order_created",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.Total,
	})

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return order, err
}

func (s *Service) ListOrders(ctx context.Context, userID uint, limit, offset int) ([]models.Order, error) {
	return s.Repo.ListOrders(ctx, userID, limit, offset)
}

// MutateItems is the administrative entry point for line-item edits. All
// mutations run through the repo's locked transaction, which re-derives the
// order total before committing.
func (s *Service) MutateItems(ctx context.Context, orderID uint, fn func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	order, err := s.Repo.MutateOrderItems(ctx, orderID, fn)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return order, err
}

// AddItem attaches a new line to an existing order, snapshotting the
// product's current price.
func (s *Service) AddItem(ctx context.Context, orderID, productID, quantity uint) (*models.Order, error) {
	if quantity < 1 {
		quantity = 1
	}
	return s.MutateItems(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			return err
		}
		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Price:     product.Price,
			Quantity:  quantity,
		}
		return tx.Create(&item).Error
	})
}

func (s *Service) SetItemQuantity(ctx context.Context, orderID, itemID, quantity uint) (*models.Order, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}
	return s.MutateItems(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND order_id = ?", itemID, order.ID).
			Update("quantity", quantity)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (s *Service) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	return s.MutateItems(ctx, orderID, func(tx *gorm.DB, order *models.Order) error {
		res := tx.Where("id = ? AND order_id = ?", itemID, order.ID).
			Delete(&models.OrderItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// transition runs one CAS state-machine step. When the guard misses it
// re-reads the order so the caller gets a precise error instead of a silent
// no-op.
func (s *Service) transition(ctx context.Context, order *models.Order, to models.OrderStatus) error {
	from := order.Status
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	ok, err := s.Repo.TransitionOrder(ctx, order.ID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race: someone moved the order between our read and the
		// update. Report against the status that actually won.
		current, err := s.Repo.GetOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, to)
	}

	order.Status = to
	return nil
}

// ConfirmPayment moves a pending order to paid and sends the one-time
// confirmation mail. Confirming an already-paid order is explicitly
// idempotent: it succeeds without a second notification. The mail is
// best-effort; its failure is surfaced as ErrNotification but the paid
// status stands.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotOwner)
	}

	if order.Status == models.StatusPaid {
		return order, nil
	}

	if err := s.transition(ctx, order, models.StatusPaid); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// A concurrent confirmation may have won the race; if the order
			// is paid now, treat ours as the duplicate.
			if current, readErr := s.Repo.GetOrder(ctx, orderID); readErr == nil && current.Status == models.StatusPaid {
				return current, nil
			}
		}
		return nil, err
	}

	s.publish(ctx, fmt.Sprint(userID), map[string]any{
		"type":    "order_paid",
		"userID":  userID,
		"orderID": order.ID,
		"total":   order.Total,
	})

	if err := s.sendPaymentMail(ctx, order); err != nil {
		logging.FromContext(ctx).Warn("payment notification failed",
			"orderID", order.ID, "error", err)
		return order, fmt.Errorf("%w: %v", ErrNotification, err)
	}

	return order, nil
}

func (s *Service) sendPaymentMail(ctx context.Context, order *models.Order) error {
	if s.Notifier == nil {
		return nil
	}

	user, err := s.Repo.GetUser(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}

	subject, body := notify.PaymentBody(user.Username, order, func(productID uint) string {
		product, err := s.Repo.GetProduct(ctx, productID)
		if err != nil {
			return fmt.Sprintf("product #%d", productID)
		}
		return product.Name
	})

	timeout := s.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.Notifier.Send(sendCtx, user.Email, subject, body)
}

// MarkShipped is the fulfillment action, operator-only at the HTTP layer.
func (s *Service) MarkShipped(ctx context.Context, orderID uint) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, order, models.StatusShipped); err != nil {
		return nil, err
	}
	s.publish(ctx, fmt.Sprint(order.UserID), map[string]any{
		"type":    "order_shipped",
		"orderID": order.ID,
	})
	return order, nil
}

// ConfirmReceipt lets the purchasing user close out a shipped order.
func (s *Service) ConfirmReceipt(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotOwner)
	}
	if err := s.transition(ctx, order, models.StatusConfirmed); err != nil {
		return nil, err
	}
	s.publish(ctx, fmt.Sprint(userID), map[string]any{
		"type":    "order_confirmed",
		"orderID": order.ID,
	})
	return order, nil
}

func (s *Service) Sales(ctx context.Context) (*repo.SalesReport, error) {
	return s.Repo.Sales(ctx)
}
