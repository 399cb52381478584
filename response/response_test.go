package response

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccess_AnnotatesMapWithoutOverwriting(t *testing.T) {
	env := Success("done", "pay_1", map[string]any{"status": "already-set", "value": 42})
	raw := env.Raw.(map[string]any)
	assert.Equal(t, "already-set", raw["status"])
	assert.Equal(t, "pay_1", raw["payment_id"])
	assert.Equal(t, 42, raw["value"])
}

func TestSuccess_DefaultsStatusWhenAbsent(t *testing.T) {
	env := Success("done", "pay_2", map[string]any{"value": 1})
	raw := env.Raw.(map[string]any)
	assert.Equal(t, "success", raw["status"])
}

func TestSuccess_NonMapResultGoesUnderRaw(t *testing.T) {
	env := Success("done", "pay_3", 123)
	assert.Equal(t, 123, env.Raw)
}

func TestPending_DuplicatesStructuredContentUnderData(t *testing.T) {
	env := Pending("pay now", "pay_4", "https://pay/4", "confirm_x_payment", "0.19", "USD")
	assert.Equal(t, StatusPending, env.Status)
	assert.Equal(t, env.StructuredContent, env.Data)
	assert.Equal(t, "confirm_x_payment", env.NextStep)
}

func TestCanceled(t *testing.T) {
	env := Canceled("Payment canceled by user")
	assert.Equal(t, StatusCanceled, env.Status)
}

func TestError(t *testing.T) {
	env := Error("boom", ReasonTimeout)
	assert.Equal(t, StatusError, env.Status)
	assert.Equal(t, ReasonTimeout, env.Reason)
}
