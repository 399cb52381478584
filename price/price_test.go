package price

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttach_PreservesHandlerBehavior(t *testing.T) {
	called := false
	h := func(ctx context.Context, hostCtx any, args map[string]any) (any, error) {
		called = true
		return args["a"], nil
	}

	ph := Attach(h, Info{Price: 0.19, Currency: "USD"})
	assert.Equal(t, Info{Price: 0.19, Currency: "USD"}, ph.PriceInfo())

	result, err := ph.Handler(context.Background(), nil, map[string]any{"a": 5})
	assert.NoError(t, err)
	assert.Equal(t, 5, result)
	assert.True(t, called)
}
