package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/role-task-api/internal/auth"
	"github.com/yukikurage/role-task-api/internal/models"
	"github.com/yukikurage/role-task-api/internal/policy"
	"github.com/yukikurage/role-task-api/internal/repository"
	"github.com/yukikurage/role-task-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "password123"

// ServiceTestSuite runs the lifecycle managers against in-memory SQLite
type ServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	roles    *RoleRegistry
	tokens   *auth.TokenManager
	revoker  *auth.MemoryRevoker
	identity *IdentityService
	authSvc  *AuthService
	users    *UserService
	tasks    *TaskService

	admin    policy.Actor
	manager  policy.Actor
	employee policy.Actor
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = testutil.NewDB(s.T())
	s.userRepo = repository.NewUserRepository(s.db)
	s.taskRepo = repository.NewTaskRepository(s.db)
	s.roles = NewRoleRegistry(repository.NewRoleRepository(s.db))
	s.Require().NoError(s.roles.EnsureDefaultRoles(s.ctx))

	var err error
	s.tokens, err = auth.NewTokenManager("test-secret", time.Hour)
	s.Require().NoError(err)
	s.revoker = auth.NewMemoryRevoker()

	verify := func(role models.RoleTitle, key string) bool {
		return role == models.RoleManager && key == "mgr-key"
	}
	s.identity = NewIdentityService(s.userRepo, s.tokens, s.revoker)
	s.authSvc = NewAuthService(s.userRepo, s.roles, s.tokens, s.revoker, verify)
	s.users = NewUserService(s.userRepo, s.roles)
	s.tasks = NewTaskService(s.taskRepo, s.userRepo)

	s.admin = s.actorFor(s.createUser("admin", models.RoleSuperAdmin))
	s.manager = s.actorFor(s.createUser("manager", models.RoleManager))
	s.employee = s.actorFor(s.createUser("employee", models.RoleUser))
}

func (s *ServiceTestSuite) createUser(name string, title models.RoleTitle) *models.User {
	role, err := s.roles.FindRoleByTitle(s.ctx, string(title))
	s.Require().NoError(err)

	user, err := createAccount(s.ctx, s.userRepo, AccountInput{
		Username: name,
		Email:    name + "@example.com",
		Password: testPassword,
		Phone:    "555-0100",
		Address:  "1 Main St",
	}, role)
	s.Require().NoError(err)
	return user
}

func (s *ServiceTestSuite) actorFor(user *models.User) policy.Actor {
	return policy.Actor{ID: user.ID, Role: user.RoleTitle(), RoleID: user.RoleID}
}

func (s *ServiceTestSuite) requireKind(err error, kind Kind) {
	s.T().Helper()
	var svcErr *Error
	s.Require().True(errors.As(err, &svcErr), "expected service error, got %v", err)
	s.Equal(kind, svcErr.Kind, svcErr.Message)
}

func (s *ServiceTestSuite) createTask(actor policy.Actor, owner *uint64) *models.Task {
	task, err := s.tasks.CreateTask(s.ctx, actor, CreateTaskInput{
		TaskTitle:   "Write report",
		Description: "Quarterly numbers",
		UserID:      owner,
	})
	s.Require().NoError(err)
	return task
}

func ptr[T any](v T) *T {
	return &v
}

// Role registry

func (s *ServiceTestSuite) TestEnsureDefaultRoles_ConcurrentIsIdempotent() {
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.roles.EnsureDefaultRoles(s.ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	var count int64
	s.Require().NoError(s.db.Model(&models.Role{}).Count(&count).Error)
	s.Equal(int64(3), count)
}

type countingRoleRepo struct {
	repository.RoleRepository
	lookups int
}

func (r *countingRoleRepo) FindByTitle(ctx context.Context, title models.RoleTitle) (*models.Role, error) {
	r.lookups++
	return r.RoleRepository.FindByTitle(ctx, title)
}

func (s *ServiceTestSuite) TestEnsureDefaultRoles_WarmsCache() {
	repo := &countingRoleRepo{RoleRepository: repository.NewRoleRepository(s.db)}
	registry := NewRoleRegistry(repo)
	s.Require().NoError(registry.EnsureDefaultRoles(s.ctx))

	for _, title := range []string{"super-admin", "manager", "user"} {
		role, err := registry.FindRoleByTitle(s.ctx, title)
		s.Require().NoError(err)
		s.Equal(models.RoleTitle(title), role.Title)
	}
	s.Zero(repo.lookups)
}

func (s *ServiceTestSuite) TestFindRoleByTitle() {
	role, err := s.roles.FindRoleByTitle(s.ctx, " MANAGER ")
	s.Require().NoError(err)
	s.Equal(models.RoleManager, role.Title)

	_, err = s.roles.FindRoleByTitle(s.ctx, "root")
	s.requireKind(err, KindValidation)
}

// Identity

func (s *ServiceTestSuite) TestResolve() {
	token, _, err := s.tokens.Issue(s.manager.ID)
	s.Require().NoError(err)

	actor, claims, err := s.identity.Resolve(s.ctx, "Bearer "+token)
	s.Require().NoError(err)
	s.Equal(s.manager, actor)
	s.Equal(s.manager.ID, claims.UserID)

	for _, header := range []string{"", "Bearer", "Bearer ", "Token " + token, "Bearer not-a-jwt"} {
		_, _, err := s.identity.Resolve(s.ctx, header)
		s.ErrorIs(err, ErrUnauthenticated, header)
	}
}

func (s *ServiceTestSuite) TestResolve_RejectsInactiveDeletedAndRevoked() {
	inactive := s.createUser("inactive", models.RoleUser)
	s.Require().NoError(s.userRepo.Update(s.ctx, inactive.ID, map[string]interface{}{"is_active": false}))
	deleted := s.createUser("deleted", models.RoleUser)
	s.Require().NoError(s.userRepo.SoftDelete(s.ctx, deleted.ID))

	for _, id := range []uint64{inactive.ID, deleted.ID, 9999} {
		token, _, err := s.tokens.Issue(id)
		s.Require().NoError(err)
		_, _, err = s.identity.Resolve(s.ctx, "Bearer "+token)
		s.ErrorIs(err, ErrUnauthenticated)
	}

	token, claims, err := s.tokens.Issue(s.employee.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.authSvc.Logout(s.ctx, claims))
	_, _, err = s.identity.Resolve(s.ctx, "Bearer "+token)
	s.ErrorIs(err, ErrUnauthenticated)
}

// Registration and login

func (s *ServiceTestSuite) TestRegister_DefaultsToUser() {
	result, err := s.authSvc.Register(s.ctx, RegisterInput{AccountInput: AccountInput{
		Username: "newbie",
		Email:    "  NewBie@Example.com ",
		Password: testPassword,
		Phone:    "555",
		Address:  "here",
	}})
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.Equal("newbie@example.com", result.User.Email)
	s.Equal(models.RoleUser, result.User.RoleTitle())
	s.True(result.User.IsActive)

	actor, _, err := s.identity.Resolve(s.ctx, "Bearer "+result.Token)
	s.Require().NoError(err)
	s.Equal(result.User.ID, actor.ID)
}

func (s *ServiceTestSuite) TestRegister_PrivilegedRoleNeedsKey() {
	input := RegisterInput{
		AccountInput: AccountInput{Username: "boss", Email: "boss@example.com", Password: testPassword, Phone: "1", Address: "a"},
		RoleTitle:    "manager",
	}

	input.RegistrationKey = "wrong"
	_, err := s.authSvc.Register(s.ctx, input)
	s.ErrorIs(err, ErrRegistrationKeyInvalid)

	// The failed attempt must not have created a downgraded account.
	_, err = s.userRepo.FindByEmail(s.ctx, "boss@example.com")
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	input.RoleTitle = "super-admin"
	input.RegistrationKey = "mgr-key"
	_, err = s.authSvc.Register(s.ctx, input)
	s.ErrorIs(err, ErrRegistrationKeyInvalid)

	input.RoleTitle = "manager"
	result, err := s.authSvc.Register(s.ctx, input)
	s.Require().NoError(err)
	s.Equal(models.RoleManager, result.User.RoleTitle())
}

func (s *ServiceTestSuite) TestRegister_Validation() {
	_, err := s.authSvc.Register(s.ctx, RegisterInput{AccountInput: AccountInput{Username: "x", Email: "x@example.com"}})
	s.requireKind(err, KindValidation)

	_, err = s.authSvc.Register(s.ctx, RegisterInput{
		AccountInput: AccountInput{Username: "x", Email: "x@example.com", Password: testPassword, Phone: "1", Address: "a"},
		RoleTitle:    "owner",
	})
	s.ErrorIs(err, ErrRoleNotFound)
}

func (s *ServiceTestSuite) TestRegister_DuplicateEmailIncludingDeleted() {
	input := RegisterInput{AccountInput: AccountInput{Username: "dup", Email: "EMPLOYEE@example.com", Password: testPassword, Phone: "1", Address: "a"}}
	_, err := s.authSvc.Register(s.ctx, input)
	s.ErrorIs(err, ErrEmailTaken)

	s.Require().NoError(s.users.DeleteUser(s.ctx, s.admin, s.employee.ID))
	_, err = s.authSvc.Register(s.ctx, input)
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *ServiceTestSuite) TestLogin() {
	result, err := s.authSvc.Login(s.ctx, LoginInput{Email: "Manager@Example.com", Password: testPassword})
	s.Require().NoError(err)
	s.Equal(s.manager.ID, result.User.ID)
	s.NotEmpty(result.Token)

	_, err = s.authSvc.Login(s.ctx, LoginInput{Email: "manager@example.com"})
	s.ErrorIs(err, ErrLoginFieldsRequired)
}

func (s *ServiceTestSuite) TestLogin_FailuresAreIndistinguishable() {
	s.Require().NoError(s.userRepo.Update(s.ctx, s.manager.ID, map[string]interface{}{"is_active": false}))
	s.Require().NoError(s.userRepo.SoftDelete(s.ctx, s.admin.ID))

	attempts := []LoginInput{
		{Email: "nobody@example.com", Password: testPassword},
		{Email: "employee@example.com", Password: "wrong"},
		{Email: "manager@example.com", Password: testPassword},
		{Email: "admin@example.com", Password: testPassword},
	}
	for _, in := range attempts {
		_, err := s.authSvc.Login(s.ctx, in)
		s.ErrorIs(err, ErrInvalidCredentials, in.Email)
	}
}

func (s *ServiceTestSuite) TestLogin_FailuresAlwaysComparePassword() {
	s.Require().NoError(s.userRepo.Update(s.ctx, s.manager.ID, map[string]interface{}{"is_active": false}))
	s.Require().NoError(s.userRepo.SoftDelete(s.ctx, s.admin.ID))

	var compared []string
	s.authSvc.comparePassword = func(hash, password []byte) error {
		compared = append(compared, string(password))
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	for _, email := range []string{"nobody@example.com", "manager@example.com", "admin@example.com", "employee@example.com"} {
		_, err := s.authSvc.Login(s.ctx, LoginInput{Email: email, Password: "attempt-" + email})
		s.ErrorIs(err, ErrInvalidCredentials, email)
	}

	s.Equal([]string{
		"attempt-nobody@example.com",
		"attempt-manager@example.com",
		"attempt-admin@example.com",
		"attempt-employee@example.com",
	}, compared)
}

// Users

func (s *ServiceTestSuite) TestListUsers_ByRole() {
	otherManager := s.createUser("manager2", models.RoleManager)
	inactive := s.createUser("sleepy", models.RoleUser)
	s.Require().NoError(s.userRepo.Update(s.ctx, inactive.ID, map[string]interface{}{"is_active": false}))
	gone := s.createUser("gone", models.RoleUser)
	s.Require().NoError(s.userRepo.SoftDelete(s.ctx, gone.ID))

	ids := func(users []models.User) []uint64 {
		out := make([]uint64, 0, len(users))
		for _, u := range users {
			out = append(out, u.ID)
		}
		return out
	}

	all, err := s.users.ListUsers(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Equal([]uint64{s.admin.ID, s.manager.ID, s.employee.ID, otherManager.ID, inactive.ID}, ids(all))

	managed, err := s.users.ListUsers(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Equal([]uint64{s.manager.ID, s.employee.ID}, ids(managed))

	own, err := s.users.ListUsers(s.ctx, s.employee)
	s.Require().NoError(err)
	s.Equal([]uint64{s.employee.ID}, ids(own))
}

func (s *ServiceTestSuite) TestGetUser_OutOfScopeIsNotFound() {
	user, err := s.users.GetUser(s.ctx, s.manager, s.employee.ID)
	s.Require().NoError(err)
	s.Equal(s.employee.ID, user.ID)

	_, err = s.users.GetUser(s.ctx, s.employee, s.manager.ID)
	s.ErrorIs(err, ErrUserNotFound)

	_, err = s.users.GetUser(s.ctx, s.admin, 9999)
	s.ErrorIs(err, ErrUserNotFound)

	me, err := s.users.Me(s.ctx, s.employee)
	s.Require().NoError(err)
	s.Equal("employee@example.com", me.Email)
}

func (s *ServiceTestSuite) TestCreateUser() {
	input := CreateUserInput{
		AccountInput: AccountInput{Username: "lead", Email: "Lead@Example.com", Password: testPassword, Phone: "1", Address: "a"},
		RoleTitle:    "Manager",
	}

	_, err := s.users.CreateUser(s.ctx, s.manager, input)
	s.ErrorIs(err, ErrForbidden)

	user, err := s.users.CreateUser(s.ctx, s.admin, input)
	s.Require().NoError(err)
	s.Equal("lead@example.com", user.Email)
	s.Equal(models.RoleManager, user.RoleTitle())
	s.NotEqual(testPassword, user.PasswordHash)

	_, err = s.users.CreateUser(s.ctx, s.admin, input)
	s.requireKind(err, KindConflict)

	input.Email = "other@example.com"
	input.RoleTitle = ""
	_, err = s.users.CreateUser(s.ctx, s.admin, input)
	s.ErrorIs(err, ErrRoleTitleRequired)

	input.RoleTitle = "owner"
	_, err = s.users.CreateUser(s.ctx, s.admin, input)
	s.ErrorIs(err, ErrRoleNotFound)
}

func (s *ServiceTestSuite) TestUpdateUser() {
	_, err := s.users.UpdateUser(s.ctx, s.manager, s.employee.ID, UpdateUserInput{Phone: ptr("1")})
	s.ErrorIs(err, ErrForbidden)

	updated, err := s.users.UpdateUser(s.ctx, s.admin, s.employee.ID, UpdateUserInput{
		Phone:     ptr("555-9999"),
		IsActive:  ptr(false),
		RoleTitle: ptr("manager"),
	})
	s.Require().NoError(err)
	s.Equal("555-9999", updated.Phone)
	s.False(updated.IsActive)
	s.Equal(models.RoleManager, updated.RoleTitle())
	s.Equal("employee", updated.Username)

	_, err = s.users.UpdateUser(s.ctx, s.admin, s.employee.ID, UpdateUserInput{Username: ptr("  ")})
	s.ErrorIs(err, ErrEmptyUserField)

	_, err = s.users.UpdateUser(s.ctx, s.admin, s.employee.ID, UpdateUserInput{RoleTitle: ptr("root")})
	s.ErrorIs(err, ErrRoleNotFound)

	_, err = s.users.UpdateUser(s.ctx, s.admin, 9999, UpdateUserInput{Phone: ptr("1")})
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceTestSuite) TestDeleteUser() {
	s.ErrorIs(s.users.DeleteUser(s.ctx, s.manager, s.employee.ID), ErrForbidden)

	s.Require().NoError(s.users.DeleteUser(s.ctx, s.admin, s.employee.ID))
	s.ErrorIs(s.users.DeleteUser(s.ctx, s.admin, s.employee.ID), ErrUserNotFound)

	_, err := s.users.UpdateUser(s.ctx, s.admin, s.employee.ID, UpdateUserInput{Phone: ptr("1")})
	s.ErrorIs(err, ErrUserNotFound)

	managed, err := s.users.ListUsers(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Len(managed, 1)
}

// Tasks

func (s *ServiceTestSuite) TestCreateTask_RecordsInitialHistory() {
	task := s.createTask(s.employee, nil)

	s.Equal(models.TaskStatusPending, task.Status)
	s.Equal(s.employee.ID, task.UserID)
	s.Equal(s.employee.ID, task.Owner.ID)
	s.Require().Len(task.StatusHistory, 1)
	s.Equal(models.TaskStatusPending, task.StatusHistory[0].Status)
	s.Equal(s.employee.ID, task.StatusHistory[0].ChangedBy)
	s.Equal("Task created", task.StatusHistory[0].Note)
}

func (s *ServiceTestSuite) TestCreateTask_Validation() {
	_, err := s.tasks.CreateTask(s.ctx, s.employee, CreateTaskInput{TaskTitle: "  ", Description: "d"})
	s.ErrorIs(err, ErrTaskFieldsRequired)

	_, err = s.tasks.CreateTask(s.ctx, s.employee, CreateTaskInput{TaskTitle: "t"})
	s.ErrorIs(err, ErrTaskFieldsRequired)
}

func (s *ServiceTestSuite) TestCreateTask_UserTargetIsIgnored() {
	task := s.createTask(s.employee, &s.manager.ID)
	s.Equal(s.employee.ID, task.UserID)
}

func (s *ServiceTestSuite) TestCreateTask_ManagerTargets() {
	task := s.createTask(s.manager, &s.employee.ID)
	s.Equal(s.employee.ID, task.UserID)
	s.Equal(s.manager.ID, task.StatusHistory[0].ChangedBy)

	own := s.createTask(s.manager, nil)
	s.Equal(s.manager.ID, own.UserID)

	other := s.createUser("manager2", models.RoleManager)
	_, err := s.tasks.CreateTask(s.ctx, s.manager, CreateTaskInput{TaskTitle: "t", Description: "d", UserID: &other.ID})
	s.ErrorIs(err, ErrAssignForbidden)

	_, err = s.tasks.CreateTask(s.ctx, s.manager, CreateTaskInput{TaskTitle: "t", Description: "d", UserID: &s.admin.ID})
	s.ErrorIs(err, ErrAssignForbidden)

	_, err = s.tasks.CreateTask(s.ctx, s.manager, CreateTaskInput{TaskTitle: "t", Description: "d", UserID: ptr(uint64(9999))})
	s.ErrorIs(err, ErrTargetUserNotFound)

	inactive := s.createUser("sleepy", models.RoleUser)
	s.Require().NoError(s.userRepo.Update(s.ctx, inactive.ID, map[string]interface{}{"is_active": false}))
	_, err = s.tasks.CreateTask(s.ctx, s.manager, CreateTaskInput{TaskTitle: "t", Description: "d", UserID: &inactive.ID})
	s.ErrorIs(err, ErrTargetUserNotFound)
}

func (s *ServiceTestSuite) TestCreateTask_SuperAdminTargets() {
	other := s.createUser("manager2", models.RoleManager)
	task := s.createTask(s.admin, &other.ID)
	s.Equal(other.ID, task.UserID)

	s.Require().NoError(s.userRepo.SoftDelete(s.ctx, other.ID))
	_, err := s.tasks.CreateTask(s.ctx, s.admin, CreateTaskInput{TaskTitle: "t", Description: "d", UserID: &other.ID})
	s.ErrorIs(err, ErrTargetUserNotFound)
}

func (s *ServiceTestSuite) TestListTasks_Visibility() {
	employeeTask := s.createTask(s.employee, nil)
	managerTask := s.createTask(s.manager, nil)
	other := s.createUser("manager2", models.RoleManager)
	otherTask := s.createTask(s.actorFor(other), nil)

	ids := func(tasks []models.Task) []uint64 {
		out := make([]uint64, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, t.ID)
		}
		return out
	}

	all, err := s.tasks.ListTasks(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Equal([]uint64{otherTask.ID, managerTask.ID, employeeTask.ID}, ids(all))

	managed, err := s.tasks.ListTasks(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Equal([]uint64{managerTask.ID, employeeTask.ID}, ids(managed))

	own, err := s.tasks.ListTasks(s.ctx, s.employee)
	s.Require().NoError(err)
	s.Equal([]uint64{employeeTask.ID}, ids(own))
	s.Require().Len(own[0].StatusHistory, 1)
	s.Equal(s.employee.ID, own[0].StatusHistory[0].ChangedByUser.ID)
}

func (s *ServiceTestSuite) TestManagerLosesInactiveEmployeeTasks() {
	task := s.createTask(s.employee, nil)
	s.Require().NoError(s.userRepo.Update(s.ctx, s.employee.ID, map[string]interface{}{"is_active": false}))

	tasks, err := s.tasks.ListTasks(s.ctx, s.manager)
	s.Require().NoError(err)
	s.Empty(tasks)

	_, err = s.tasks.GetTask(s.ctx, s.manager, task.ID)
	s.ErrorIs(err, ErrTaskForbidden)
}

func (s *ServiceTestSuite) TestStatusFlow() {
	task := s.createTask(s.manager, &s.employee.ID)

	updated, err := s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusInProgress)})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, updated.Status)
	s.Require().Len(updated.StatusHistory, 2)
	s.Equal("Status changed from pending to in-progress", updated.StatusHistory[1].Note)
	s.Equal(s.employee.ID, updated.StatusHistory[1].ChangedBy)

	updated, err = s.tasks.UpdateTask(s.ctx, s.manager, task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatusCompleted),
		Note:   ptr("Reviewed"),
	})
	s.Require().NoError(err)
	s.Require().Len(updated.StatusHistory, 3)
	s.Equal("Reviewed", updated.StatusHistory[2].Note)
	s.Equal(s.manager.ID, updated.StatusHistory[2].ChangedBy)

	// Same status again appends nothing.
	updated, err = s.tasks.UpdateTask(s.ctx, s.manager, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusCompleted)})
	s.Require().NoError(err)
	s.Len(updated.StatusHistory, 3)

	// Completed may go back to pending.
	updated, err = s.tasks.UpdateTask(s.ctx, s.admin, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusPending)})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusPending, updated.Status)
	s.Len(updated.StatusHistory, 4)
}

func (s *ServiceTestSuite) TestUpdateTask_Validation() {
	task := s.createTask(s.employee, nil)

	_, err := s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatus("done"))})
	s.ErrorIs(err, ErrInvalidStatus)

	_, err = s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{TaskTitle: ptr("")})
	s.ErrorIs(err, ErrTaskTitleEmpty)

	_, err = s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{Description: ptr(" ")})
	s.ErrorIs(err, ErrDescriptionEmpty)

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusCompleted), Note: ptr(string(long))})
	s.ErrorIs(err, ErrNoteTooLong)

	unchanged, err := s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusPending), Note: ptr(string(long))})
	s.Require().NoError(err, "same status is a no-op whatever the note")
	s.Len(unchanged.StatusHistory, 1)

	updated, err := s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{TaskTitle: ptr("Renamed")})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.TaskTitle)
	s.Len(updated.StatusHistory, 1)
}

func (s *ServiceTestSuite) TestUpdateTask_Authorization() {
	task := s.createTask(s.admin, nil)

	_, err := s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusCompleted)})
	s.ErrorIs(err, ErrTaskForbidden)

	_, err = s.tasks.UpdateTask(s.ctx, s.manager, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusCompleted)})
	s.ErrorIs(err, ErrTaskForbidden)

	_, err = s.tasks.UpdateTask(s.ctx, s.employee, 9999, UpdateTaskInput{Status: ptr(models.TaskStatusCompleted)})
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *ServiceTestSuite) TestDeleteTask() {
	task := s.createTask(s.employee, nil)
	_, err := s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusInProgress)})
	s.Require().NoError(err)

	other := s.createUser("employee2", models.RoleUser)
	s.ErrorIs(s.tasks.DeleteTask(s.ctx, s.actorFor(other), task.ID), ErrTaskForbidden)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, s.manager, task.ID))
	s.ErrorIs(s.tasks.DeleteTask(s.ctx, s.manager, task.ID), ErrTaskNotFound)

	_, err = s.tasks.GetTask(s.ctx, s.admin, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)
	_, err = s.tasks.UpdateTask(s.ctx, s.admin, task.ID, UpdateTaskInput{Status: ptr(models.TaskStatusCompleted)})
	s.ErrorIs(err, ErrTaskNotFound)

	tasks, err := s.tasks.ListTasks(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Empty(tasks)

	var events int64
	s.Require().NoError(s.db.Model(&models.StatusEvent{}).Where("task_id = ?", task.ID).Count(&events).Error)
	s.Equal(int64(2), events, "history survives soft delete")
}

// A manager assigns a task to an employee and the employee completes it.
// Manager visibility follows roles, not who assigned the task, so a second
// manager sees it too while another employee does not.
func (s *ServiceTestSuite) TestAssignmentScenario() {
	task := s.createTask(s.manager, &s.employee.ID)
	s.Equal(s.employee.ID, task.UserID)
	s.Equal(models.TaskStatusPending, task.Status)
	s.Len(task.StatusHistory, 1)

	done, err := s.tasks.UpdateTask(s.ctx, s.employee, task.ID, UpdateTaskInput{
		Status: ptr(models.TaskStatusCompleted),
		Note:   ptr("done"),
	})
	s.Require().NoError(err)
	s.Require().Len(done.StatusHistory, 2)
	last := done.StatusHistory[1]
	s.Equal(models.TaskStatusCompleted, last.Status)
	s.Equal(s.employee.ID, last.ChangedBy)
	s.Equal("done", last.Note)

	all, err := s.tasks.ListTasks(s.ctx, s.admin)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(task.ID, all[0].ID)

	secondManager := s.actorFor(s.createUser("manager2", models.RoleManager))
	s.createTask(s.admin, nil)
	visible, err := s.tasks.ListTasks(s.ctx, secondManager)
	s.Require().NoError(err)
	s.Require().Len(visible, 1, "admin-owned tasks stay hidden from managers")
	s.Equal(task.ID, visible[0].ID)

	bystander := s.actorFor(s.createUser("bystander", models.RoleUser))
	tasks, err := s.tasks.ListTasks(s.ctx, bystander)
	s.Require().NoError(err)
	s.Empty(tasks)
	_, err = s.tasks.GetTask(s.ctx, bystander, task.ID)
	s.ErrorIs(err, ErrTaskForbidden)
}
