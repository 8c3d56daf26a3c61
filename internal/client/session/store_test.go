package session

import (
	"fmt"
	"testing"

	"github.com/iudanet/esps-console/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() *api.UserProfile {
	return &api.UserProfile{
		Username: "budi",
		Name:     "Budi Santoso",
		Detil:    []api.RoleAssignment{{RoleName: "QO", AppsID: "APP001"}},
	}
}

func TestStore_Empty(t *testing.T) {
	s := NewStore()

	_, ok := s.Snapshot()
	assert.False(t, ok)
	assert.Empty(t, s.Token())
}

func TestStore_SetAndSnapshot(t *testing.T) {
	s := NewStore()
	user := testProfile()

	s.Set("tok-1", user)

	sess, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, user, sess.User)

	// снимок не должен разделять память с хранилищем
	sess.User.Detil[0].RoleName = "SA"
	again, _ := s.Snapshot()
	assert.Equal(t, "QO", again.User.Detil[0].RoleName)

	// и исходный профиль тоже
	user.Name = "changed"
	again, _ = s.Snapshot()
	assert.Equal(t, "Budi Santoso", again.User.Name)
}

func TestStore_ReplaceUser(t *testing.T) {
	s := NewStore()
	s.Set("tok-1", testProfile())

	fresh := &api.UserProfile{Username: "budi", Name: "Budi S."}
	assert.True(t, s.ReplaceUser("tok-1", fresh))

	sess, _ := s.Snapshot()
	assert.Equal(t, "Budi S.", sess.User.Name)
	assert.Empty(t, sess.User.Detil, "profile is replaced, not merged")

	assert.False(t, s.ReplaceUser("tok-other", testProfile()))
	sess, _ = s.Snapshot()
	assert.Equal(t, "Budi S.", sess.User.Name)
}

func TestStore_ReplaceUserWithoutSession(t *testing.T) {
	s := NewStore()
	assert.False(t, s.ReplaceUser("", testProfile()))
	_, ok := s.Snapshot()
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Set("tok-1", testProfile())

	s.Clear()

	_, ok := s.Snapshot()
	assert.False(t, ok)
	assert.Empty(t, s.Token())
}

func TestStore_Invalidate(t *testing.T) {
	s := NewStore()
	s.Set("tok-1", testProfile())

	assert.False(t, s.Invalidate("tok-2"))
	assert.Equal(t, "tok-1", s.Token())

	assert.True(t, s.Invalidate("tok-1"))
	assert.Empty(t, s.Token())
	assert.False(t, s.Invalidate("tok-1"))
}

func TestAttemptTracker(t *testing.T) {
	tr := NewAttemptTracker(0)
	assert.Equal(t, DefaultMaxAttempts, tr.Max())

	for i := 1; i <= 4; i++ {
		n := tr.Fail()
		assert.Equal(t, i, n)
		assert.Equal(t, fmt.Sprintf("attempt %d of 5", i), tr.Warning(n))
	}

	n := tr.Fail()
	assert.Equal(t, 5, n)
	assert.Contains(t, tr.Warning(n), "may now be locked")

	tr.Reset()
	assert.Zero(t, tr.Failed())
}
