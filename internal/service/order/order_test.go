package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"webshop/internal/models"
	"webshop/internal/repo"
	"webshop/internal/service/activity"
	"webshop/internal/service/cart"
	"webshop/internal/session"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testEnv struct {
	DB     *gorm.DB
	Repo   *repo.GormRepo
	Carts  *cart.Service
	Sender *fakeSender
	Svc    *Service
	User   *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{},
		&models.Order{}, &models.OrderItem{}, &models.UserLog{},
	))

	r := repo.New(db)
	carts := &cart.Service{Store: session.NewMemoryStore(), Repo: r}
	sender := &fakeSender{}

	user := models.User{Username: "buyer", Email: "buyer@example.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, db.Create(&user).Error)

	svc := &Service{
		Repo:     r,
		Carts:    carts,
		Activity: &activity.Service{Repo: r},
		Notifier: sender,
	}

	return &testEnv{DB: db, Repo: r, Carts: carts, Sender: sender, Svc: svc, User: &user}
}

func (env *testEnv) createProduct(t *testing.T, name, price string) *models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Description: name,
		Price:       decimal.RequireFromString(price),
		Stock:       100,
	}
	require.NoError(t, env.DB.Create(&p).Error)
	return &p
}

func (env *testEnv) fillCart(t *testing.T, sessionID string, quantities map[*models.Product]int) {
	t.Helper()
	for p, n := range quantities {
		for i := 0; i < n; i++ {
			_, err := env.Carts.Add(context.Background(), sessionID, p.ID)
			require.NoError(t, err)
		}
	}
}

func requireTotalMatchesItems(t *testing.T, env *testEnv, orderID uint) {
	t.Helper()
	order, err := env.Repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	require.True(t, order.Total.Equal(sum), "total %s != item sum %s", order.Total, sum)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Svc.Checkout(context.Background(), env.User.ID, "sess", "")
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutSnapshotsPrices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")
	b := env.createProduct(t, "b", "5.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 2, b: 1})

	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "1 Main St")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, order.Status)
	require.Len(t, order.Items, 2)
	require.True(t, order.Total.Equal(decimal.RequireFromString("25.00")), "got %s", order.Total)

	// cart is gone after a successful checkout
	require.Empty(t, env.Carts.Contents("sess"))

	// a later catalog price change never reaches the order
	require.NoError(t, env.DB.Model(&models.Product{}).Where("id = ?", a.ID).
		Update("price", decimal.RequireFromString("99.99")).Error)

	requireTotalMatchesItems(t, env, order.ID)
	reloaded, err := env.Repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.True(t, reloaded.Total.Equal(decimal.RequireFromString("25.00")))
}

func TestCheckoutIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")
	b := env.createProduct(t, "b", "5.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 1, b: 1})

	// product vanishes between cart-add and checkout
	require.NoError(t, env.DB.Delete(&models.Product{}, b.ID).Error)

	_, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.ErrorIs(t, err, ErrNotFound)

	var orders, items int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, env.DB.Model(&models.OrderItem{}).Count(&items).Error)
	require.Zero(t, orders, "no partial order may survive")
	require.Zero(t, items)

	// cart stays untouched
	require.Len(t, env.Carts.Contents("sess"), 2)
}

func TestTotalInvariantUnderItemMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")
	b := env.createProduct(t, "b", "2.50")
	env.fillCart(t, "sess", map[*models.Product]int{a: 1})

	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)
	requireTotalMatchesItems(t, env, order.ID)

	order, err = env.Svc.AddItem(ctx, order.ID, b.ID, 4)
	require.NoError(t, err)
	require.True(t, order.Total.Equal(decimal.RequireFromString("20.00")), "got %s", order.Total)
	requireTotalMatchesItems(t, env, order.ID)

	itemID := order.Items[1].ID
	order, err = env.Svc.SetItemQuantity(ctx, order.ID, itemID, 2)
	require.NoError(t, err)
	require.True(t, order.Total.Equal(decimal.RequireFromString("15.00")), "got %s", order.Total)
	requireTotalMatchesItems(t, env, order.ID)

	order, err = env.Svc.RemoveItem(ctx, order.ID, itemID)
	require.NoError(t, err)
	require.True(t, order.Total.Equal(decimal.RequireFromString("10.00")), "got %s", order.Total)
	requireTotalMatchesItems(t, env, order.ID)

	order, err = env.Svc.RemoveItem(ctx, order.ID, order.Items[0].ID)
	require.NoError(t, err)
	require.True(t, order.Total.IsZero(), "got %s", order.Total)
	requireTotalMatchesItems(t, env, order.ID)
}

func TestSetItemQuantityValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 1})
	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)

	_, err = env.Svc.SetItemQuantity(ctx, order.ID, order.Items[0].ID, 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.Svc.RemoveItem(ctx, order.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmPaymentSendsOneMail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 2})
	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)

	paid, err := env.Svc.ConfirmPayment(ctx, order.ID, env.User.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, paid.Status)
	require.Equal(t, 1, env.Sender.count())
	require.Equal(t, "buyer@example.com", env.Sender.sent[0].To)
	require.Contains(t, env.Sender.sent[0].Body, "a x 2")
	require.Contains(t, env.Sender.sent[0].Body, "20.00")

	// re-confirming is idempotent: success, no second mail
	again, err := env.Svc.ConfirmPayment(ctx, order.ID, env.User.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, again.Status)
	require.Equal(t, 1, env.Sender.count())
}

func TestConfirmPaymentOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other := models.User{Username: "other", Email: "other@example.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, env.DB.Create(&other).Error)

	a := env.createProduct(t, "a", "10.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 1})
	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)

	_, err = env.Svc.ConfirmPayment(ctx, order.ID, other.ID)
	require.ErrorIs(t, err, ErrNotOwner)
	require.Zero(t, env.Sender.count())

	reloaded, err := env.Repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, reloaded.Status)
}

func TestNotificationFailureDoesNotRevertPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.Sender.fail = errors.New("smtp down")

	a := env.createProduct(t, "a", "10.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 1})
	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)

	paid, err := env.Svc.ConfirmPayment(ctx, order.ID, env.User.ID)
	require.ErrorIs(t, err, ErrNotification)
	require.NotNil(t, paid)
	require.Equal(t, models.StatusPaid, paid.Status)

	reloaded, err := env.Repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, reloaded.Status, "payment must stand")
}

func TestIllegalTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 1})
	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)

	// pending -> shipped skips payment
	_, err = env.Svc.MarkShipped(ctx, order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// pending -> confirmed skips everything
	_, err = env.Svc.ConfirmReceipt(ctx, order.ID, env.User.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	reloaded, err := env.Repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, reloaded.Status, "failed transitions leave status unchanged")

	_, err = env.Svc.ConfirmPayment(ctx, order.ID, env.User.ID)
	require.NoError(t, err)

	// paid -> confirmed skips shipping
	_, err = env.Svc.ConfirmReceipt(ctx, order.ID, env.User.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.Svc.MarkShipped(ctx, order.ID)
	require.NoError(t, err)

	// shipped orders cannot be shipped again
	_, err = env.Svc.MarkShipped(ctx, order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.Svc.ConfirmReceipt(ctx, order.ID, env.User.ID)
	require.NoError(t, err)

	// confirmed is terminal
	_, err = env.Svc.MarkShipped(ctx, order.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other := models.User{Username: "stranger", Email: "s@example.com", PasswordHash: "x", Role: "user"}
	require.NoError(t, env.DB.Create(&other).Error)

	a := env.createProduct(t, "productA", "10.00")
	b := env.createProduct(t, "productB", "5.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 2, b: 1})

	order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)
	require.True(t, order.Total.Equal(decimal.RequireFromString("25.00")))
	require.Equal(t, models.StatusPending, order.Status)

	paid, err := env.Svc.ConfirmPayment(ctx, order.ID, env.User.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPaid, paid.Status)
	require.Equal(t, 1, env.Sender.count())

	_, err = env.Svc.ConfirmReceipt(ctx, order.ID, env.User.ID)
	require.ErrorIs(t, err, ErrInvalidTransition, "receipt before shipping must fail")

	_, err = env.Svc.MarkShipped(ctx, order.ID)
	require.NoError(t, err)

	_, err = env.Svc.ConfirmReceipt(ctx, order.ID, other.ID)
	require.ErrorIs(t, err, ErrNotOwner)

	confirmed, err := env.Svc.ConfirmReceipt(ctx, order.ID, env.User.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, confirmed.Status)
}

func TestListOrdersNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "1.00")

	var ids []uint
	for i := 0; i < 3; i++ {
		env.fillCart(t, "sess", map[*models.Product]int{a: 1})
		order, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
		require.NoError(t, err)
		ids = append(ids, order.ID)
	}

	orders, err := env.Svc.ListOrders(ctx, env.User.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	require.Equal(t, ids[2], orders[0].ID)
	require.Equal(t, ids[1], orders[1].ID)
	require.Equal(t, ids[0], orders[2].ID)
}

func TestCheckoutRecordsActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")
	env.fillCart(t, "sess", map[*models.Product]int{a: 1})
	_, err := env.Svc.Checkout(ctx, env.User.ID, "sess", "")
	require.NoError(t, err)

	var entries []models.UserLog
	require.NoError(t, env.DB.Where("user_id = ?", env.User.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionBuy, entries[0].Action)
}

func TestSalesReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.createProduct(t, "a", "10.00")

	// one order stays pending, one gets paid
	env.fillCart(t, "s1", map[*models.Product]int{a: 1})
	_, err := env.Svc.Checkout(ctx, env.User.ID, "s1", "")
	require.NoError(t, err)

	env.fillCart(t, "s2", map[*models.Product]int{a: 3})
	paidOrder, err := env.Svc.Checkout(ctx, env.User.ID, "s2", "")
	require.NoError(t, err)
	_, err = env.Svc.ConfirmPayment(ctx, paidOrder.ID, env.User.ID)
	require.NoError(t, err)

	report, err := env.Svc.Sales(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), report.Orders[models.StatusPending])
	require.Equal(t, int64(1), report.Orders[models.StatusPaid])
	require.True(t, report.Revenue.Equal(decimal.RequireFromString("30.00")), "got %s", report.Revenue)
}

func TestGetOrderNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Svc.GetOrder(context.Background(), 12345)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = env.Svc.ConfirmPayment(context.Background(), 12345, env.User.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
