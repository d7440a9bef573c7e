package repo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"webshop/internal/models"
)

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).
		Where("order_id = ?", id).Order("id ASC").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uint, limit, offset int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// recomputeTotal derives the order total from its current items, from
// scratch. Every item mutation path funnels through this; the total is never
// adjusted incrementally.
func recomputeTotal(tx *gorm.DB, orderID uint) (decimal.Decimal, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	if err := tx.Model(&models.Order{}).Where("id = ?", orderID).
		Update("total", total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// MutateOrderItems is the single entry point for changing an order's line
// items. It locks the order row, applies fn inside the transaction, then
// recomputes and persists the total before committing, so no reader ever
// observes a total out of sync with the items.
func (r *GormRepo) MutateOrderItems(ctx context.Context, orderID uint, fn func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&order, orderID).Error; err != nil {
			return err
		}
		if err := fn(tx, &order); err != nil {
			return err
		}
		total, err := recomputeTotal(tx, orderID)
		if err != nil {
			return err
		}
		order.Total = total
		return tx.Where("order_id = ?", orderID).Order("id ASC").Find(&order.Items).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type CheckoutLine struct {
	ProductID uint
	Quantity  uint
}

// Checkout snapshots cart lines into a pending order inside one transaction.
// Each line resolves its product at that moment and captures the current
// unit price. Any missing product aborts the whole transaction; no partial
// order survives.
func (r *GormRepo) Checkout(ctx context.Context, userID uint, address string, lines []CheckoutLine) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order = models.Order{
			UserID:    userID,
			Address:   address,
			Total:     decimal.Zero,
			Status:    models.StatusPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, line := range lines {
			var product models.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				return err
			}
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Price:     product.Price,
				Quantity:  line.Quantity,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}

		total, err := recomputeTotal(tx, order.ID)
		if err != nil {
			return err
		}
		order.Total = total
		return tx.Where("order_id = ?", order.ID).Order("id ASC").Find(&order.Items).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrder moves an order from one status to another with
// compare-and-swap semantics: the write only lands if the current status
// still equals from. Returns false when the guard did not match.
func (r *GormRepo) TransitionOrder(ctx context.Context, orderID uint, from, to models.OrderStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type SalesReport struct {
	Revenue decimal.Decimal              `json:"revenue"`
	Orders  map[models.OrderStatus]int64 `json:"orders"`
}

// Sales aggregates revenue over orders that were actually paid for, plus
// order counts per status.
func (r *GormRepo) Sales(ctx context.Context) (*SalesReport, error) {
	report := &SalesReport{
		Revenue: decimal.Zero,
		Orders:  make(map[models.OrderStatus]int64),
	}

	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Select("status, count(*) as count").Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		report.Orders[row.Status] = row.Count
	}

	paidStatuses := []models.OrderStatus{models.StatusPaid, models.StatusShipped, models.StatusConfirmed}
	var totals []decimal.Decimal
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status IN ?", paidStatuses).
		Pluck("total", &totals).Error; err != nil {
		return nil, err
	}
	for _, t := range totals {
		report.Revenue = report.Revenue.Add(t)
	}

	return report, nil
}
