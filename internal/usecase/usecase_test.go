package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pharmacy-guard-backend/internal/domain"
	"pharmacy-guard-backend/internal/repository/memory"
	"pharmacy-guard-backend/internal/usecase"
	"pharmacy-guard-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock Repositories
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *MockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) ListByRoles(ctx context.Context, roles []domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, roles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

type MockLatchRepo struct {
	mock.Mock
}

func (m *MockLatchRepo) Get(ctx context.Context, mountID string) (*domain.LatchState, error) {
	args := m.Called(ctx, mountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LatchState), args.Error(1)
}
func (m *MockLatchRepo) CompareAndSwap(ctx context.Context, mountID string, old, next *domain.LatchState, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, mountID, old, next, ttl)
	return args.Bool(0), args.Error(1)
}
func (m *MockLatchRepo) Clear(ctx context.Context, mountID string) error {
	return m.Called(ctx, mountID).Error(0)
}

func adminCtx() context.Context {
	return context.WithValue(context.Background(), domain.KeyUserRole, domain.RoleAdmin)
}

func TestAuthPrivilege(t *testing.T) {
	mockRepo := new(MockUserRepo)
	uc := usecase.NewAuthUsecase(mockRepo)

	t.Run("Should fail if role is not admin", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), domain.KeyUserRole, domain.RolePharmacyOwner)
		err := uc.AssignRole(ctx, "target_user", domain.RoleAdmin)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Only admins can assign roles")
	})

	t.Run("Should fail safe if role is nil", func(t *testing.T) {
		err := uc.AssignRole(context.Background(), "target_user", domain.RoleAdmin)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Only admins can assign roles")
	})

	t.Run("Should reject unknown roles", func(t *testing.T) {
		err := uc.AssignRole(adminCtx(), "target_user", "pharmacist")
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
	})

	t.Run("Should return not found for missing user", func(t *testing.T) {
		mockRepo.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrUserNotFound).Once()
		err := uc.AssignRole(adminCtx(), "ghost", domain.RoleCustomer)
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusNotFound, appErr.Code)
	})

	t.Run("Should update role", func(t *testing.T) {
		mockRepo.On("GetByID", mock.Anything, "u1").Return(&domain.User{ID: "u1", Role: domain.RoleCustomer}, nil).Once()
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.ID == "u1" && u.Role == domain.RoleDeliveryPerson
		})).Return(nil).Once()

		require.NoError(t, uc.AssignRole(adminCtx(), "u1", domain.RoleDeliveryPerson))
		mockRepo.AssertExpectations(t)
	})
}

func TestEnsureUserExists(t *testing.T) {
	t.Run("Should default new users to customer", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)

		mockRepo.On("GetByID", mock.Anything, "new").Return(nil, domain.ErrUserNotFound)
		mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil).Run(func(args mock.Arguments) {
			u := args.Get(1).(*domain.User)
			assert.Equal(t, domain.RoleCustomer, u.Role)
			assert.False(t, u.CreatedAt.IsZero())
		})

		require.NoError(t, uc.EnsureUserExists(context.Background(), &domain.User{ID: "new", Email: " c@example.com "}))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should sync a changed role", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)

		mockRepo.On("GetByID", mock.Anything, "u2").Return(&domain.User{ID: "u2", Role: domain.RoleCustomer}, nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Role == domain.RolePharmacyOwner
		})).Return(nil)

		require.NoError(t, uc.EnsureUserExists(context.Background(), &domain.User{ID: "u2", Role: domain.RolePharmacyOwner}))
		mockRepo.AssertExpectations(t)
	})

	t.Run("Should propagate store errors", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)
		boom := errors.New("connection reset")

		mockRepo.On("GetByID", mock.Anything, "u3").Return(nil, boom)
		err := uc.EnsureUserExists(context.Background(), &domain.User{ID: "u3"})
		assert.ErrorIs(t, err, boom)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Should refuse to create a user without email", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		uc := usecase.NewAuthUsecase(mockRepo)

		mockRepo.On("GetByID", mock.Anything, "u4").Return(nil, domain.ErrUserNotFound)
		err := uc.EnsureUserExists(context.Background(), &domain.User{ID: "u4", Email: "  "})

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.Code)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCheckEmailExists(t *testing.T) {
	mockRepo := new(MockUserRepo)
	uc := usecase.NewAuthUsecase(mockRepo)

	mockRepo.On("GetByEmail", mock.Anything, "taken@example.com").Return(&domain.User{ID: "x"}, nil)
	mockRepo.On("GetByEmail", mock.Anything, "free@example.com").Return(nil, domain.ErrUserNotFound)

	ok, err := uc.CheckEmailExists(context.Background(), "taken@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = uc.CheckEmailExists(context.Background(), "free@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListUsers(t *testing.T) {
	mockRepo := new(MockUserRepo)
	uc := usecase.NewAuthUsecase(mockRepo)

	_, err := uc.ListUsers(context.Background(), nil)
	assert.Error(t, err)

	_, err = uc.ListUsers(adminCtx(), []domain.Role{"root"})
	assert.Error(t, err)

	roles := []domain.Role{domain.RoleDeliveryPerson}
	mockRepo.On("ListByRoles", mock.Anything, roles).Return([]domain.User{{ID: "d1", Role: domain.RoleDeliveryPerson}}, nil)
	users, err := uc.ListUsers(adminCtx(), roles)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

const mountID = "6f1c2a7e-3b9d-4c41-9a55-0d6f2f7f8e10"

func navRequest(segments ...string) *domain.NavigationRequest {
	return &domain.NavigationRequest{MountID: mountID, Segments: segments, NavigationKey: "root-stack"}
}

func TestResolveRedirectsOncePerSettleCycle(t *testing.T) {
	uc := usecase.NewNavigationUsecase(memory.NewLatchRepository(), usecase.NavigationConfig{
		LatchTTL:       time.Minute,
		SuppressWindow: 150 * time.Millisecond,
	})
	ctx := context.Background()
	admin := &domain.User{ID: "a1", Email: "admin@example.com", Role: domain.RoleAdmin}

	d, err := uc.Resolve(ctx, navRequest(domain.GroupTabs), admin)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionRedirect, d.Action)
	assert.Equal(t, "/(admin)/dashboard", d.Target)
	assert.Equal(t, int64(150), d.SuppressMS)

	d, err = uc.Resolve(ctx, navRequest(domain.GroupTabs), admin)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNone, d.Action)
	assert.Equal(t, "latched", d.Reason)

	d, err = uc.Resolve(ctx, navRequest(domain.GroupAdmin, "dashboard"), admin)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNone, d.Action)
	assert.True(t, d.Render)
}

func TestResolveSignedOut(t *testing.T) {
	uc := usecase.NewNavigationUsecase(memory.NewLatchRepository(), usecase.NavigationConfig{})

	d, err := uc.Resolve(context.Background(), navRequest(domain.GroupPharmacy), nil)
	require.NoError(t, err)
	assert.Equal(t, "/login", d.Target)
	assert.Equal(t, int64(100), d.SuppressMS)
}

func TestResolveWhileLoading(t *testing.T) {
	uc := usecase.NewNavigationUsecase(memory.NewLatchRepository(), usecase.NavigationConfig{})
	req := navRequest(domain.GroupAdmin)
	req.IsLoading = true

	d, err := uc.Resolve(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionNone, d.Action)
	assert.False(t, d.Render)
}

func TestResolveStoreFailure(t *testing.T) {
	latches := new(MockLatchRepo)
	uc := usecase.NewNavigationUsecase(latches, usecase.NavigationConfig{})

	latches.On("Get", mock.Anything, mountID).Return(nil, errors.New("redis down"))
	_, err := uc.Resolve(context.Background(), navRequest(domain.GroupTabs), nil)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
}

func TestResolveSkipsSaveWhenLatchUnchanged(t *testing.T) {
	latches := new(MockLatchRepo)
	uc := usecase.NewNavigationUsecase(latches, usecase.NavigationConfig{LatchTTL: time.Hour})
	customer := &domain.User{ID: "c1", Role: domain.RoleCustomer}

	var saved *domain.LatchState
	latches.On("Get", mock.Anything, mountID).Return(nil, nil).Once()
	latches.On("CompareAndSwap", mock.Anything, mountID, (*domain.LatchState)(nil), mock.AnythingOfType("*domain.LatchState"), time.Hour).
		Return(true, nil).Once().
		Run(func(args mock.Arguments) { saved = args.Get(3).(*domain.LatchState) })

	_, err := uc.Resolve(context.Background(), navRequest(domain.GroupTabs), customer)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, domain.LatchIdle, saved.Status)

	latches.On("Get", mock.Anything, mountID).Return(saved, nil).Once()
	_, err = uc.Resolve(context.Background(), navRequest(domain.GroupTabs), customer)
	require.NoError(t, err)

	latches.AssertNumberOfCalls(t, "CompareAndSwap", 1)
}

func TestResolveGivesUpAfterRepeatedConflicts(t *testing.T) {
	latches := new(MockLatchRepo)
	uc := usecase.NewNavigationUsecase(latches, usecase.NavigationConfig{})

	latches.On("Get", mock.Anything, mountID).Return(nil, nil)
	latches.On("CompareAndSwap", mock.Anything, mountID, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	_, err := uc.Resolve(context.Background(), navRequest(domain.GroupTabs), nil)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)
	latches.AssertNumberOfCalls(t, "CompareAndSwap", 3)
}

// barrierLatches holds the first n reads until all n have happened, so every
// reader sees the same stored latch before anyone writes.
type barrierLatches struct {
	*memory.LatchRepository
	reads   atomic.Int32
	n       int32
	arrived sync.WaitGroup
}

func newBarrierLatches(n int) *barrierLatches {
	b := &barrierLatches{LatchRepository: memory.NewLatchRepository(), n: int32(n)}
	b.arrived.Add(n)
	return b
}

func (b *barrierLatches) Get(ctx context.Context, id string) (*domain.LatchState, error) {
	st, err := b.LatchRepository.Get(ctx, id)
	if b.reads.Add(1) <= b.n {
		b.arrived.Done()
		b.arrived.Wait()
	}
	return st, err
}

func TestResolveOverlappingReportsRedirectOnce(t *testing.T) {
	const reporters = 4
	latches := newBarrierLatches(reporters)
	uc := usecase.NewNavigationUsecase(latches, usecase.NavigationConfig{LatchTTL: time.Minute})
	admin := &domain.User{ID: "a1", Email: "admin@example.com", Role: domain.RoleAdmin}

	var wg sync.WaitGroup
	decisions := make(chan *domain.Decision, reporters)
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := uc.Resolve(context.Background(), navRequest(domain.GroupTabs), admin)
			if assert.NoError(t, err) {
				decisions <- d
			}
		}()
	}
	wg.Wait()
	close(decisions)

	redirects, latched := 0, 0
	for d := range decisions {
		switch {
		case d.Redirected():
			redirects++
		case d.Reason == "latched":
			latched++
		}
	}
	assert.Equal(t, 1, redirects)
	assert.Equal(t, reporters-1, latched)
}

func TestReset(t *testing.T) {
	latches := new(MockLatchRepo)
	uc := usecase.NewNavigationUsecase(latches, usecase.NavigationConfig{})

	latches.On("Clear", mock.Anything, mountID).Return(nil)
	require.NoError(t, uc.Reset(context.Background(), mountID))
	latches.AssertExpectations(t)

	assert.Len(t, uc.Routes(), 6)
}

func TestHealthCheck(t *testing.T) {
	t.Run("Should report ok when every dependency answers", func(t *testing.T) {
		uc := usecase.NewHealthUsecase(map[string]usecase.HealthCheck{
			"postgres": func(context.Context) error { return nil },
		})
		status, ok := uc.Check(context.Background())
		assert.True(t, ok)
		assert.Equal(t, "ok", status["status"])
		assert.Equal(t, "ok", status["postgres"])
	})

	t.Run("Should degrade when a dependency is down", func(t *testing.T) {
		uc := usecase.NewHealthUsecase(map[string]usecase.HealthCheck{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
		})
		status, ok := uc.Check(context.Background())
		assert.False(t, ok)
		assert.Equal(t, "degraded", status["status"])
		assert.Equal(t, "down", status["redis"])
		assert.NotContains(t, status["redis"], "refused")
	})
}
