package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskhub/taskhub-cli/internal/appctx"
	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

// NewBillingCmd creates the billing command group.
func NewBillingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "billing",
		Aliases: []string{"subscription", "plan"},
		Short:   "Show and change your plan",
		Long: `Show your subscription, start a checkout, or confirm a payment.

Upgrading takes two steps. checkout creates a payment order to complete in
the hosted checkout; verify sends the checkout's result back so the plan
is applied.`,
	}
	cmd.AddCommand(newBillingStatusCmd(), newBillingCheckoutCmd(), newBillingVerifyCmd())
	return cmd
}

func newBillingStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			sub, err := app.Hub.LoadSubscription(cmd.Context())
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("%s plan (%s)", sub.Plan, sub.Status)
			if sub.RenewsAt != nil {
				summary += ", renews " + sub.RenewsAt.Format("2006-01-02")
			}
			var crumbs []output.Breadcrumb
			if sub.Plan != models.PlanEnterprise {
				crumbs = append(crumbs, output.Breadcrumb{
					Action: "upgrade", Cmd: "taskhub billing checkout --plan PRO --frequency monthly", Description: "Upgrade your plan",
				})
			}
			return app.OK(sub,
				output.WithEntity("subscription"),
				output.WithSummary(summary),
				output.WithBreadcrumbs(crumbs...),
			)
		},
	}
}

// formatAmount renders minor units as a decimal amount.
func formatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, currency)
}

func newBillingCheckoutCmd() *cobra.Command {
	var plan, frequency string

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Create a payment order",
		Long: `Create a payment order for a paid plan. The output carries the order ID,
amount and the checkout key needed to open the hosted checkout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			p, err := models.ParsePlan(plan)
			if err != nil {
				return err
			}
			f, err := models.ParseFrequency(frequency)
			if err != nil {
				return err
			}
			order, err := app.Hub.CreateOrder(cmd.Context(), p, f)
			if err != nil {
				return err
			}
			if order.KeyID == "" {
				order.KeyID = app.Config.PaymentKeyID
			}

			return app.OK(order,
				output.WithEntity("order"),
				output.WithSummary(fmt.Sprintf("Order %s for %s", order.OrderID, formatAmount(order.Amount, order.Currency))),
				output.WithContext("plan", p),
				output.WithContext("frequency", f),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action: "verify",
					Cmd: fmt.Sprintf("taskhub billing verify --order-id %s --payment-id <id> --signature <sig> --plan %s --frequency %s",
						order.OrderID, p, f),
					Description: "Confirm the payment after checkout",
				}),
			)
		},
	}

	cmd.Flags().StringVar(&plan, "plan", "PRO", "Plan (PRO, ENTERPRISE)")
	cmd.Flags().StringVar(&frequency, "frequency", "monthly", "Billing frequency (monthly, yearly)")

	return cmd
}

func newBillingVerifyCmd() *cobra.Command {
	var v struct{ orderID, paymentID, signature, plan, frequency string }

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm a completed payment",
		Long:  "Send the checkout's payment ID and signature to the gateway and apply the new plan.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appctx.FromContext(cmd.Context())

			p, err := models.ParsePlan(v.plan)
			if err != nil {
				return err
			}
			f, err := models.ParseFrequency(v.frequency)
			if err != nil {
				return err
			}
			pv := models.PaymentVerification{
				OrderID:   v.orderID,
				PaymentID: v.paymentID,
				Signature: v.signature,
				Plan:      p,
				Frequency: f,
			}

			var sub models.Subscription
			err = withSpinner(cmd.Context(), app, "Verifying payment", func(ctx context.Context) error {
				var err error
				sub, err = app.Hub.VerifyPayment(ctx, pv)
				return err
			})
			if err != nil {
				return err
			}
			return app.OK(sub,
				output.WithEntity("subscription"),
				output.WithSummary(fmt.Sprintf("You are on the %s plan", sub.Plan)),
			)
		},
	}

	cmd.Flags().StringVar(&v.orderID, "order-id", "", "Order ID from checkout")
	cmd.Flags().StringVar(&v.paymentID, "payment-id", "", "Payment ID from checkout")
	cmd.Flags().StringVar(&v.signature, "signature", "", "Payment signature from checkout")
	cmd.Flags().StringVar(&v.plan, "plan", "PRO", "Plan that was bought")
	cmd.Flags().StringVar(&v.frequency, "frequency", "monthly", "Billing frequency that was bought")

	return cmd
}

// withSpinner runs fn behind a spinner on interactive terminals.
func withSpinner(ctx context.Context, app *appctx.App, msg string, fn func(context.Context) error) error {
	if !app.IsInteractive() {
		return fn(ctx)
	}
	_, err := spin(ctx, app.Stderr, msg, func(ctx context.Context) (string, error) {
		return "", fn(ctx)
	})
	return err
}
