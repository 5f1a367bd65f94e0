package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskmarket/internal/events"
	"taskmarket/internal/models"
)

// ---- roles

type fakeRoleRepo struct {
	roles      map[int64]models.Role
	perms      map[string]models.Permission
	userRoles  map[int64][]int64
	grants     []models.PermissionGrant
	rolesErr   error
	grantsErr  error
	keysErr    error
	grantCalls int
	keysCalls  int
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		roles:     map[int64]models.Role{},
		perms:     map[string]models.Permission{},
		userRoles: map[int64][]int64{},
	}
}

func (f *fakeRoleRepo) CreateRole(_ context.Context, role *models.Role) error {
	for _, r := range f.roles {
		if r.Key == role.Key {
			return models.ErrAlreadyExists
		}
	}
	role.ID = int64(len(f.roles) + 1)
	f.roles[role.ID] = *role
	return nil
}

func (f *fakeRoleRepo) GetRoleByID(_ context.Context, id int64) (*models.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRoleRepo) GetRoleByKey(_ context.Context, key string) (*models.Role, error) {
	for _, r := range f.roles {
		if r.Key == key {
			r := r
			return &r, nil
		}
	}
	return nil, fmt.Errorf("role %q: %w", key, models.ErrNotFound)
}

func (f *fakeRoleRepo) ListRoles(context.Context) ([]models.Role, error) {
	out := make([]models.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRoleRepo) CreatePermission(_ context.Context, p *models.Permission) error {
	if _, ok := f.perms[p.Key]; ok {
		return models.ErrAlreadyExists
	}
	p.ID = int64(len(f.perms) + 1)
	f.perms[p.Key] = *p
	return nil
}

func (f *fakeRoleRepo) GetPermissionByKey(_ context.Context, key string) (*models.Permission, error) {
	p, ok := f.perms[key]
	if !ok {
		return nil, fmt.Errorf("permission %q: %w", key, models.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeRoleRepo) ListPermissions(context.Context) ([]models.Permission, error) {
	out := make([]models.Permission, 0, len(f.perms))
	for _, p := range f.perms {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRoleRepo) ListPermissionKeys(context.Context) ([]string, error) {
	f.keysCalls++
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	keys := make([]string, 0, len(f.perms))
	for k := range f.perms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *fakeRoleRepo) keyOf(permissionID int64) string {
	for k, p := range f.perms {
		if p.ID == permissionID {
			return k
		}
	}
	return ""
}

func (f *fakeRoleRepo) GrantPermission(_ context.Context, rp *models.RolePermission) error {
	rp.ID = int64(len(f.grants) + 1)
	f.grants = append(f.grants, models.PermissionGrant{
		RoleID: rp.RoleID, PermissionKey: f.keyOf(rp.PermissionID), Mode: rp.Mode, Allow: rp.Allow,
	})
	return nil
}

func (f *fakeRoleRepo) RevokePermission(_ context.Context, roleID, permissionID int64, mode models.Mode) error {
	key := f.keyOf(permissionID)
	for i, g := range f.grants {
		if g.RoleID == roleID && g.PermissionKey == key && g.Mode == mode {
			f.grants = append(f.grants[:i], f.grants[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeRoleRepo) ListRoleGrants(_ context.Context, roleID int64) ([]models.PermissionGrant, error) {
	var out []models.PermissionGrant
	for _, g := range f.grants {
		if g.RoleID == roleID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeRoleRepo) AssignRoleToUser(_ context.Context, userID, roleID int64) error {
	for _, id := range f.userRoles[userID] {
		if id == roleID {
			return nil
		}
	}
	f.userRoles[userID] = append(f.userRoles[userID], roleID)
	return nil
}

func (f *fakeRoleRepo) RemoveRoleFromUser(_ context.Context, userID, roleID int64) error {
	ids := f.userRoles[userID]
	for i, id := range ids {
		if id == roleID {
			f.userRoles[userID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeRoleRepo) GetUserRoles(_ context.Context, userID int64) ([]models.Role, error) {
	if f.rolesErr != nil {
		return nil, f.rolesErr
	}
	var out []models.Role
	for _, id := range f.userRoles[userID] {
		out = append(out, f.roles[id])
	}
	return out, nil
}

// ListGrantsForRoles mirrors the SQL filter: allow rows of the given roles
// scoped to "all" or mode.
func (f *fakeRoleRepo) ListGrantsForRoles(_ context.Context, roleIDs []int64, mode models.Mode) ([]models.PermissionGrant, error) {
	f.grantCalls++
	if f.grantsErr != nil {
		return nil, f.grantsErr
	}
	held := map[int64]bool{}
	for _, id := range roleIDs {
		held[id] = true
	}
	var out []models.PermissionGrant
	for _, g := range f.grants {
		if held[g.RoleID] && g.Allow && (g.Mode == models.ModeAll || g.Mode == mode) {
			out = append(out, g)
		}
	}
	return out, nil
}

// ---- users

type fakeUserRepo struct {
	byID   map[int64]*models.User
	nextID int64
	// roles receives the role row written by Create; createErr fails
	// Create before anything is stored.
	roles         *fakeRoleRepo
	createErr     error
	updateModeErr error
}

func newFakeUserRepo() *fakeUserRepo { return &fakeUserRepo{byID: map[int64]*models.User{}} }

func (f *fakeUserRepo) Create(ctx context.Context, u *models.User, roleID int64) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return models.ErrAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	if f.roles != nil {
		return f.roles.AssignRoleToUser(ctx, u.ID, roleID)
	}
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserRepo) GetByRefreshToken(_ context.Context, token string) (*models.User, error) {
	for _, u := range f.byID {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserRepo) List(context.Context, int, int) ([]models.User, error) {
	var out []models.User
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateMode(_ context.Context, id int64, mode models.Mode) error {
	if f.updateModeErr != nil {
		return f.updateModeErr
	}
	u, ok := f.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Mode = mode
	return nil
}

func (f *fakeUserRepo) UpdateRefresh(_ context.Context, id int64, token string, exp time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	u.RefreshToken, u.RefreshExpiresAt, u.RefreshRevoked = &token, &exp, false
	return nil
}

func (f *fakeUserRepo) RotateRefresh(_ context.Context, oldToken, newToken string, exp time.Time) (*models.User, error) {
	for _, u := range f.byID {
		if u.RefreshToken != nil && *u.RefreshToken == oldToken && !u.RefreshRevoked {
			u.RefreshToken, u.RefreshExpiresAt = &newToken, &exp
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeUserRepo) ClearRefresh(_ context.Context, id int64) error {
	u, ok := f.byID[id]
	if !ok {
		return models.ErrNotFound
	}
	u.RefreshToken, u.RefreshExpiresAt, u.RefreshRevoked = nil, nil, true
	return nil
}

// ---- tasks and executions

type fakeTaskRepo struct {
	tasks map[int64]*models.Task
}

func newFakeTaskRepo() *fakeTaskRepo { return &fakeTaskRepo{tasks: map[int64]*models.Task{}} }

func (f *fakeTaskRepo) Store(_ context.Context, t *models.Task) error {
	t.ID = int64(len(f.tasks) + 1)
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTaskRepo) FindByID(_ context.Context, id int64) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskRepo) FindAll(context.Context, models.TaskFilter) ([]models.Task, error) {
	var out []models.Task
	for _, t := range f.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTaskRepo) UpdateStatus(_ context.Context, id int64, to models.TaskStatus) error {
	t, ok := f.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	t.Status = to
	return nil
}

func (f *fakeTaskRepo) UpdateAdminStatus(_ context.Context, id int64, to models.AdminStatus) error {
	t, ok := f.tasks[id]
	if !ok {
		return models.ErrNotFound
	}
	t.AdminStatus = to
	return nil
}

// fakeExecRepo shares the task map with fakeTaskRepo so quantity changes are
// visible on both sides, like the real tables.
type fakeExecRepo struct {
	mu       sync.Mutex
	tasks    *fakeTaskRepo
	execs    map[int64]*models.TaskExecution
	nextID   int64
	listErr  error
	failOn   map[int64]error
	reclaims []int64
}

func newFakeExecRepo(tasks *fakeTaskRepo) *fakeExecRepo {
	return &fakeExecRepo{tasks: tasks, execs: map[int64]*models.TaskExecution{}, failOn: map[int64]error{}}
}

func (f *fakeExecRepo) add(e models.TaskExecution) *models.TaskExecution {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = f.nextID
	f.execs[e.ID] = &e
	return &e
}

func (f *fakeExecRepo) get(id int64) models.TaskExecution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.execs[id]
}

func (f *fakeExecRepo) Claim(_ context.Context, taskID, userID int64, reservedAt, expiresAt time.Time) (*models.TaskExecution, error) {
	t, ok := f.tasks.tasks[taskID]
	if !ok {
		return nil, models.ErrNotFound
	}
	switch {
	case t.GiverID == userID:
		return nil, models.ErrOwnTask
	case t.Status != models.TaskActive || t.AdminStatus != models.AdminApproved:
		return nil, models.ErrTaskNotClaimable
	case t.RemainingQuantity <= 0:
		return nil, models.ErrNoQuantity
	}
	for _, e := range f.execs {
		if e.TaskID == taskID && e.UserID == userID && e.Status != models.ExecutionExpired && e.Status != models.ExecutionRejected {
			return nil, models.ErrAlreadyClaimed
		}
	}
	t.RemainingQuantity--
	return f.add(models.TaskExecution{
		TaskID: taskID, UserID: userID, Status: models.ExecutionPending, ReservedAt: reservedAt, ExpiresAt: expiresAt,
	}), nil
}

func (f *fakeExecRepo) FindByID(_ context.Context, id int64) (*models.TaskExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.execs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExecRepo) ListByUser(_ context.Context, userID int64) ([]models.TaskExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TaskExecution
	for _, e := range f.execs {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeExecRepo) SubmitProof(_ context.Context, id, userID int64, proofURL string, now time.Time) (*models.TaskExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.execs[id]
	if !ok || e.UserID != userID || e.Status != models.ExecutionPending || e.SubmittedAt != nil || !e.ExpiresAt.After(now) {
		return nil, models.ErrIllegalTransition
	}
	e.Status, e.ProofURL, e.SubmittedAt = models.ExecutionSubmitted, &proofURL, &now
	cp := *e
	return &cp, nil
}

func (f *fakeExecRepo) Review(_ context.Context, id int64, to models.ExecutionStatus, now time.Time) (*models.TaskExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.execs[id]
	if !ok || e.Status != models.ExecutionSubmitted {
		return nil, models.ErrIllegalTransition
	}
	e.Status, e.ReviewedAt = to, &now
	cp := *e
	return &cp, nil
}

func (f *fakeExecRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]models.TaskExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.TaskExecution
	for _, e := range f.execs {
		if e.Status == models.ExecutionPending && e.SubmittedAt == nil && !e.ExpiresAt.After(now) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Reclaim applies both writes or neither, like the real transaction.
func (f *fakeExecRepo) Reclaim(ctx context.Context, exec models.TaskExecution, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := f.failOn[exec.ID]; err != nil {
		return false, err
	}
	e, ok := f.execs[exec.ID]
	if !ok || e.Status != models.ExecutionPending || e.SubmittedAt != nil || e.ExpiresAt.After(now) {
		return false, nil
	}
	t, ok := f.tasks.tasks[e.TaskID]
	if !ok {
		return false, fmt.Errorf("task %d missing", e.TaskID)
	}
	e.Status = models.ExecutionExpired
	t.RemainingQuantity++
	f.reclaims = append(f.reclaims, exec.ID)
	return true, nil
}

// ---- events

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ExecutionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.ExecutionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// ---- email

type fakeEmail struct {
	sent      []string
	lastToken string
	err       error
}

func (e *fakeEmail) SendWelcomeEmail(email, _ string) error {
	e.sent = append(e.sent, email)
	return e.err
}

func (e *fakeEmail) SendPasswordResetEmail(email, token string) error {
	e.sent = append(e.sent, email)
	e.lastToken = token
	return e.err
}
