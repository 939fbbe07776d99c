package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

func TestCreateAndGet(t *testing.T) {
	s := NewStore()
	userID := uuid.New()

	id := s.Create(models.Session{
		UserID:   userID,
		Provider: "password",
		Expiry:   time.Now().Add(time.Hour),
	})
	require.NotEmpty(t, id)

	sess, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, userID, sess.UserID)
	assert.Equal(t, "password", sess.Provider)

	_, ok = s.Get("no-such-session")
	assert.False(t, ok)
}

func TestExpiredSessionIsGone(t *testing.T) {
	s := NewStore()
	id := s.Create(models.Session{
		UserID: uuid.New(),
		Expiry: time.Now().Add(-time.Minute),
	})

	_, ok := s.Get(id)
	assert.False(t, ok)

	// Lazy deletion means a second lookup misses too.
	_, ok = s.Get(id)
	assert.False(t, ok)
}

func TestZeroExpiryNeverExpires(t *testing.T) {
	s := NewStore()
	id := s.Create(models.Session{UserID: uuid.New()})
	_, ok := s.Get(id)
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	s := NewStore()
	id := s.Create(models.Session{UserID: uuid.New(), Expiry: time.Now().Add(time.Hour)})

	s.Delete(id)
	_, ok := s.Get(id)
	assert.False(t, ok)

	// Deleting twice is harmless.
	s.Delete(id)
}

func TestDeleteForUser(t *testing.T) {
	s := NewStore()
	alice := uuid.New()
	bob := uuid.New()
	exp := time.Now().Add(time.Hour)

	a1 := s.Create(models.Session{UserID: alice, Expiry: exp})
	a2 := s.Create(models.Session{UserID: alice, Expiry: exp})
	b1 := s.Create(models.Session{UserID: bob, Expiry: exp})

	s.DeleteForUser(alice)

	_, ok := s.Get(a1)
	assert.False(t, ok)
	_, ok = s.Get(a2)
	assert.False(t, ok)
	_, ok = s.Get(b1)
	assert.True(t, ok)
}
