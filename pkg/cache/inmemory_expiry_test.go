package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemory_Expired(t *testing.T) {
	c, err := NewInMemory()
	assert.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	err = c.SetExp(context.Background(), "key", "value", time.Minute)
	assert.NoError(t, err)

	now = now.Add(2 * time.Minute)

	var out string
	err = c.GetAs(context.Background(), "key", &out)
	assert.ErrorIs(t, err, ErrKeyNotExist)

	// expired entry is evicted on read
	assert.Nil(t, c.DB.Get(nil, []byte("key")))
}
