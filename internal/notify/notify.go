package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"webshop/internal/logging"
	"webshop/internal/models"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPSender struct {
	Addr string
	From string
	Auth smtp.Auth
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := []byte("From: " + s.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	// net/smtp has no context support; bound it ourselves.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogSender is used when no SMTP server is configured. It only records that a
// notification would have been sent.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, body string) error {
	logging.FromContext(ctx).Info("notification", "to", to, "subject", subject)
	return nil
}

// PaymentBody renders the itemized order-confirmation mail. productName
// resolves a product ID to a display name; items whose product has since
// vanished keep a placeholder line.
func PaymentBody(username string, order *models.Order, productName func(uint) string) (subject, body string) {
	subject = fmt.Sprintf("Payment received - order #%d", order.ID)

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", username)
	b.WriteString("Your payment has been received!\n\n")
	b.WriteString("Order details:\n")
	b.WriteString("--------------------------\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%s x %d\n", productName(item.ProductID), item.Quantity)
	}
	b.WriteString("--------------------------\n")
	fmt.Fprintf(&b, "Total: %s\n", order.Total.StringFixed(2))

	return subject, b.String()
}
