package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	created := time.Date(2026, time.May, 1, 9, 30, 0, 0, time.UTC)
	reg := NewRegistry(func() time.Time { return created })

	sess := reg.Create()
	_, err := uuid.Parse(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, created, sess.CreatedAt)
	assert.Equal(t, 1, reg.Len())

	got, err := reg.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	require.NoError(t, reg.Delete(sess.ID))
	assert.Equal(t, 0, reg.Len())

	_, err = reg.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, reg.Delete(sess.ID), ErrSessionNotFound)
}

func TestRegistryConcurrentCreate(t *testing.T) {
	reg := NewRegistry(time.Now)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Create()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, reg.Len())
}
