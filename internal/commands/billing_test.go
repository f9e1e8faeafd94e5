package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/taskhub-cli/internal/models"
	"github.com/taskhub/taskhub-cli/internal/output"
)

func TestBillingCheckoutAndVerify(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.run(t, NewBillingCmd(), []string{"status"})
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, decode[models.Subscription](t, res.Data).Plan)
	_, ok := res.crumb("upgrade")
	assert.True(t, ok)

	res, err = env.run(t, NewBillingCmd(), []string{"checkout", "--plan", "pro", "--frequency", "yearly"})
	require.NoError(t, err)
	order := decode[models.Order](t, res.Data)
	assert.EqualValues(t, 499000, order.Amount)
	assert.Equal(t, "Order "+order.OrderID+" for 4990.00 INR", res.Summary)
	verify, ok := res.crumb("verify")
	require.True(t, ok)
	assert.Contains(t, verify.Cmd, "--order-id "+order.OrderID)

	_, err = env.run(t, NewBillingCmd(), []string{"verify", "--order-id", order.OrderID,
		"--payment-id", "pay_1", "--signature", "bad", "--plan", "PRO", "--frequency", "yearly"})
	require.Error(t, err)
	assert.Equal(t, output.CodeValidation, output.AsError(err).Code)

	res, err = env.run(t, NewBillingCmd(), []string{"verify", "--order-id", order.OrderID,
		"--payment-id", "pay_1", "--signature", "sig", "--plan", "PRO", "--frequency", "yearly"})
	require.NoError(t, err)
	sub := decode[models.Subscription](t, res.Data)
	assert.Equal(t, models.PlanPro, sub.Plan)
	assert.Equal(t, models.FrequencyYearly, sub.Frequency)
	require.NotNil(t, sub.RenewsAt)
	assert.Equal(t, "You are on the PRO plan", res.Summary)
}

func TestBillingCheckoutRejectsUnknownPlan(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, NewBillingCmd(), []string{"checkout", "--plan", "GOLD"})
	require.Error(t, err)
	assert.Equal(t, output.CodeValidation, output.AsError(err).Code)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.34 USD", formatAmount(1234, "USD"))
	assert.Equal(t, "0.05 INR", formatAmount(5, "INR"))
	assert.Equal(t, "-1.50 EUR", formatAmount(-150, "EUR"))
}
