package data

import (
	"context"
	"strings"
	"time"

	"github.com/taskhub/taskhub-cli/internal/api"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// DeleteAccountConfirmation must be typed to confirm account deletion.
const DeleteAccountConfirmation = "DELETE"

// LoadMe fetches the authenticated user.
func (h *Hub) LoadMe(ctx context.Context) (models.User, error) {
	return dispatch(ctx, h, h.Global(), h.Me(), "Users", "Get",
		func(ctx context.Context) (models.User, error) {
			u, err := h.client.Me(ctx)
			if err != nil {
				return models.User{}, err
			}
			return *u, nil
		}, Replace[models.User])
}

// Login exchanges email and password for a token and caches the user.
func (h *Hub) Login(ctx context.Context, email, password string) (*api.LoginResult, error) {
	if err := models.ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, output.ErrValidation("password", "must not be empty")
	}
	return dispatch(ctx, h, h.Global(), h.Me(), "Auth", "Login",
		func(ctx context.Context) (*api.LoginResult, error) {
			return h.client.Login(ctx, strings.TrimSpace(email), password)
		},
		func(_ models.User, _ bool, r *api.LoginResult) models.User { return r.User },
	)
}

// VerifyEmail confirms an address. The flow fails with a timeout error
// once the verify timeout elapses, whatever the request later does.
func (h *Hub) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return output.ErrValidation("token", "must not be empty")
	}
	_, err := dispatch(ctx, h, h.Global(), h.EmailVerification(), "Users", "VerifyEmail",
		func(ctx context.Context) (bool, error) {
			err := withDeadline(ctx, h.verifyTimeout, "Email verification", func(ctx context.Context) error {
				return h.client.VerifyEmail(ctx, token)
			})
			return err == nil, err
		},
		Replace[bool],
		WithSuccess("Email verified"),
	)
	return err
}

// withDeadline runs fn and declares failure after d. fn keeps running in
// the background if it outlives d.
func withDeadline(ctx context.Context, d time.Duration, op string, fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- fn(context.WithoutCancel(ctx)) }()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return output.ErrTimeout(op)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChangePassword validates and submits a password change.
func (h *Hub) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if current == "" {
		return output.ErrValidation("current password", "must not be empty")
	}
	if err := models.ValidatePassword(next); err != nil {
		return err
	}
	if err := models.ValidateMatch("password confirmation", next, confirm); err != nil {
		return err
	}
	_, err := dispatch(ctx, h, h.Global(), h.Me(), "Users", "ChangePassword",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.client.ChangePassword(ctx, current, next)
		}, nil, WithSuccess("Password updated"))
	return err
}

// DeleteAccount deletes the account after the confirmation string is
// typed exactly. When the gateway refuses with
// models.ReasonAccountHasSharedWorkspace the caller may retry with force.
// On success every cached collection is cleared.
func (h *Hub) DeleteAccount(ctx context.Context, confirmation string, force bool) error {
	if err := models.ValidateConfirmation(DeleteAccountConfirmation, confirmation); err != nil {
		return err
	}
	_, err := dispatch(ctx, h, h.Global(), h.Me(), "Users", "Delete",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.client.DeleteAccount(ctx, api.DeleteAccountRequest{
				Confirmation: confirmation,
				ForceDelete:  force,
			})
		}, nil)
	if err != nil {
		return err
	}
	h.Reset()
	return nil
}

// Logout clears every cached collection.
func (h *Hub) Logout() {
	h.Reset()
}

// -- Billing

// LoadSubscription fetches the account's subscription.
func (h *Hub) LoadSubscription(ctx context.Context) (models.Subscription, error) {
	return dispatch(ctx, h, h.Global(), h.Subscription(), "Subscriptions", "Get",
		func(ctx context.Context) (models.Subscription, error) {
			s, err := h.client.Subscription(ctx)
			if err != nil {
				return models.Subscription{}, err
			}
			return *s, nil
		}, Replace[models.Subscription])
}

// CreateOrder requests a payment order for plan and frequency.
func (h *Hub) CreateOrder(ctx context.Context, plan models.Plan, freq models.Frequency) (models.Order, error) {
	if !plan.Valid() || plan == models.PlanFree {
		return models.Order{}, output.ErrValidation("plan", "must be PRO or ENTERPRISE")
	}
	if !freq.Valid() {
		return models.Order{}, output.ErrValidation("frequency", "must be monthly or yearly")
	}
	return dispatch(ctx, h, h.Global(), h.Order(), "Payments", "CreateOrder",
		func(ctx context.Context) (models.Order, error) {
			o, err := h.client.CreateOrder(ctx, api.OrderInput{Plan: plan, Frequency: freq})
			if err != nil {
				return models.Order{}, err
			}
			return *o, nil
		}, Replace[models.Order])
}

// VerifyPayment forwards a checkout result and caches the upgraded
// subscription. The signature is not inspected.
func (h *Hub) VerifyPayment(ctx context.Context, v models.PaymentVerification) (models.Subscription, error) {
	switch {
	case v.OrderID == "":
		return models.Subscription{}, output.ErrValidation("order-id", "must not be empty")
	case v.PaymentID == "":
		return models.Subscription{}, output.ErrValidation("payment-id", "must not be empty")
	case v.Signature == "":
		return models.Subscription{}, output.ErrValidation("signature", "must not be empty")
	case !v.Plan.Valid():
		return models.Subscription{}, output.ErrValidation("plan", "unknown plan")
	case !v.Frequency.Valid():
		return models.Subscription{}, output.ErrValidation("frequency", "must be monthly or yearly")
	}
	sub, err := dispatch(ctx, h, h.Global(), h.Subscription(), "Payments", "Verify",
		func(ctx context.Context) (models.Subscription, error) {
			s, err := h.client.VerifyPayment(ctx, v)
			if err != nil {
				return models.Subscription{}, err
			}
			return *s, nil
		}, Replace[models.Subscription], WithSuccess("Subscription upgraded"))
	if err != nil {
		return sub, err
	}
	h.Order().Clear()
	return sub, nil
}
