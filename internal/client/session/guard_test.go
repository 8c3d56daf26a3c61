package session

import (
	"context"
	"errors"
	"testing"

	"github.com/iudanet/esps-console/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_NoTokenSkipsNetwork(t *testing.T) {
	mock := &AuthAPIMock{}
	var states []State
	g := NewGuard(NewStore(), mock, testLogger(), WithObserver(func(s State) { states = append(states, s) }))

	d := g.Enter(context.Background())

	assert.Equal(t, StateUnauthenticated, d.State)
	assert.Nil(t, d.User)
	assert.Empty(t, mock.MeCalls())
	assert.Equal(t, []State{StateUnauthenticated}, states)
}

func TestGuard_ValidToken(t *testing.T) {
	fresh := &api.UserProfile{
		Username: "budi",
		Name:     "Budi Fresh",
		Detil:    []api.RoleAssignment{{RoleName: "SA", AppsID: "APP004"}},
	}
	mock := &AuthAPIMock{
		MeFunc: func(ctx context.Context, token string) (*api.MeResponse, error) {
			return &api.MeResponse{Status: true, User: fresh}, nil
		},
	}
	store := NewStore()
	store.Set("tok-1", testProfile())
	var states []State
	g := NewGuard(store, mock, testLogger(), WithObserver(func(s State) { states = append(states, s) }))

	d := g.Enter(context.Background())

	require.Equal(t, StateAuthenticated, d.State)
	assert.Equal(t, "Budi Fresh", d.User.Name)
	assert.Equal(t, []State{StateLoading, StateAuthenticated}, states)
	require.Len(t, mock.MeCalls(), 1)
	assert.Equal(t, "tok-1", mock.MeCalls()[0].Token)

	sess, _ := store.Snapshot()
	assert.Equal(t, "Budi Fresh", sess.User.Name, "cached profile is replaced")

	// повторный вход в пределах защищенной части не обращается к backend
	d = g.Enter(context.Background())
	assert.Equal(t, StateAuthenticated, d.State)
	assert.Len(t, mock.MeCalls(), 1)

	// после Reset проверка выполняется снова
	g.Reset()
	g.Enter(context.Background())
	assert.Len(t, mock.MeCalls(), 2)
}

func TestGuard_RejectedTokenNoRetry(t *testing.T) {
	tests := []struct {
		meFunc func(ctx context.Context, token string) (*api.MeResponse, error)
		name   string
	}{
		{
			name: "transport error",
			meFunc: func(ctx context.Context, token string) (*api.MeResponse, error) {
				return nil, errors.New("unauthorized")
			},
		},
		{
			name: "status false",
			meFunc: func(ctx context.Context, token string) (*api.MeResponse, error) {
				return &api.MeResponse{Status: false}, nil
			},
		},
		{
			name: "nil response",
			meFunc: func(ctx context.Context, token string) (*api.MeResponse, error) {
				return nil, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &AuthAPIMock{MeFunc: tt.meFunc}
			store := NewStore()
			store.Set("expired", testProfile())
			g := NewGuard(store, mock, testLogger())

			d := g.Enter(context.Background())

			assert.Equal(t, StateUnauthenticated, d.State)
			assert.Len(t, mock.MeCalls(), 1)
			_, ok := store.Snapshot()
			assert.False(t, ok, "rejected session is destroyed")
		})
	}
}

func TestGuard_RejectionKeepsNewerSession(t *testing.T) {
	store := NewStore()
	store.Set("tok-old", testProfile())
	mock := &AuthAPIMock{
		MeFunc: func(ctx context.Context, token string) (*api.MeResponse, error) {
			// пользователь успел войти заново, пока шла проверка старого токена
			store.Set("tok-new", testProfile())
			return nil, errors.New("unauthorized")
		},
	}
	g := NewGuard(store, mock, testLogger())

	d := g.Enter(context.Background())

	assert.Equal(t, StateUnauthenticated, d.State)
	assert.Equal(t, "tok-new", store.Token())
}

func TestGuard_SessionChangedDuringCheck(t *testing.T) {
	store := NewStore()
	store.Set("tok-old", testProfile())
	mock := &AuthAPIMock{
		MeFunc: func(ctx context.Context, token string) (*api.MeResponse, error) {
			store.Clear()
			return &api.MeResponse{Status: true, User: testProfile()}, nil
		},
	}
	g := NewGuard(store, mock, testLogger())

	d := g.Enter(context.Background())

	assert.Equal(t, StateUnauthenticated, d.State)
	_, ok := store.Snapshot()
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
}
