package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/role-task-api/internal/auth"
	"github.com/yukikurage/role-task-api/internal/dto"
	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
	"github.com/yukikurage/role-task-api/internal/repository"
	"github.com/yukikurage/role-task-api/internal/services"
	"github.com/yukikurage/role-task-api/internal/testutil"
	"gorm.io/gorm"
)

const (
	testPassword   = "password123"
	managerRegKey  = "manager-key"
	superAdminName = "root"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	users  *services.UserService
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()
	return setupTestEnvWith(t, nil)
}

// setupTestEnvWith lets a test adjust the router config before it is built
func setupTestEnvWith(t *testing.T, configure func(*RouterConfig)) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)

	roles := services.NewRoleRegistry(repository.NewRoleRepository(db))
	require.NoError(t, roles.EnsureDefaultRoles(context.Background()))

	tokens, err := auth.NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)
	revoker := auth.NewMemoryRevoker()

	verify := func(role models.RoleTitle, key string) bool {
		return role == models.RoleManager && key == managerRegKey
	}

	users := services.NewUserService(userRepo, roles)
	cfg := RouterConfig{
		DB:                 db,
		Identity:           services.NewIdentityService(userRepo, tokens, revoker),
		Auth:               services.NewAuthService(userRepo, roles, tokens, revoker, verify),
		Users:              users,
		Tasks:              services.NewTaskService(taskRepo, userRepo),
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		RateLimitPerMinute: 1000,
	}
	if configure != nil {
		configure(&cfg)
	}
	router := NewRouter(cfg)

	return testEnv{db: db, router: router, users: users}
}

// do sends a JSON request through the full router
func (e testEnv) do(t *testing.T, method, url, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register signs up an account through the API and returns its token
func (e testEnv) register(t *testing.T, name, roleTitle, key string) dto.AuthResponse {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username":        name,
		"email":           name + "@example.com",
		"password":        testPassword,
		"phone":           "555-0100",
		"address":         "1 Main St",
		"roleTitle":       roleTitle,
		"registrationKey": key,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decode[dto.AuthResponse](t, w)
}

// superAdmin bootstraps a super-admin through the user service, since
// tests configure no registration key for that role, and logs it in
func (e testEnv) superAdmin(t *testing.T) dto.AuthResponse {
	t.Helper()

	bootstrap := policy.Actor{Role: models.RoleSuperAdmin}
	_, err := e.users.CreateUser(context.Background(), bootstrap, services.CreateUserInput{
		AccountInput: services.AccountInput{
			Username: superAdminName,
			Email:    superAdminName + "@example.com",
			Password: testPassword,
			Phone:    "1",
			Address:  "hq",
		},
		RoleTitle: string(models.RoleSuperAdmin),
	})
	require.NoError(t, err)

	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    superAdminName + "@example.com",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[dto.AuthResponse](t, w)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
