package api

import (
	"context"

	"github.com/taskhub/taskhub-cli/internal/models"
)

// OrderInput selects what to purchase.
type OrderInput struct {
	Plan      models.Plan      `json:"plan"`
	Frequency models.Frequency `json:"frequency"`
}

// Subscription returns the account's subscription.
func (c *Client) Subscription(ctx context.Context) (*models.Subscription, error) {
	return decodeOne[models.Subscription](c.Get(ctx, "/subscriptions/me"))
}

// CreateOrder creates a payment order for the hosted checkout.
func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (*models.Order, error) {
	return decodeOne[models.Order](c.Post(ctx, "/payments/orders", in))
}

// VerifyPayment forwards the checkout result to the gateway unchanged.
func (c *Client) VerifyPayment(ctx context.Context, v models.PaymentVerification) (*models.Subscription, error) {
	return decodeOne[models.Subscription](c.Post(ctx, "/payments/verify", v))
}
