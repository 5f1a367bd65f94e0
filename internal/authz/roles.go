package authz

import "taskmarket/internal/models"

// Role keys seeded at startup.
const (
	RoleSuperAdmin = "super_admin"
	RoleModerator  = "moderator"
	RoleTaskDoer   = "task_doer"
	RoleTaskGiver  = "task_giver"
)

// Permission keys checked by the HTTP layer.
const (
	PermTasksCreate   = "tasks.create"
	PermTasksClaim    = "tasks.claim"
	PermTasksSubmit   = "tasks.submit"
	PermTasksReview   = "tasks.review"
	PermTasksModerate = "tasks.moderate"

	PermOrdersCreate       = "orders.create"
	PermOrdersRefund       = "orders.refund"
	PermWithdrawalsRequest = "withdrawals.request"
	PermWithdrawalsApprove = "withdrawals.approve"

	PermRolesManage = "roles.manage"
	PermUsersManage = "users.manage"
	PermJobsRun     = "jobs.run"
)

// PermissionSeed is one catalogue entry.
type PermissionSeed struct {
	Key   string
	Group string
}

var Catalogue = []PermissionSeed{
	{PermTasksCreate, "tasks"},
	{PermTasksClaim, "tasks"},
	{PermTasksSubmit, "tasks"},
	{PermTasksReview, "tasks"},
	{PermTasksModerate, "tasks"},
	{PermOrdersCreate, "orders"},
	{PermOrdersRefund, "orders"},
	{PermWithdrawalsRequest, "withdrawals"},
	{PermWithdrawalsApprove, "withdrawals"},
	{PermRolesManage, "admin"},
	{PermUsersManage, "admin"},
	{PermJobsRun, "admin"},
}

// RoleSeed describes a default role and its grants.
type RoleSeed struct {
	Key       string
	Label     string
	Universal bool
	Grants    []GrantSeed
}

type GrantSeed struct {
	Permission string
	Mode       models.Mode
}

var DefaultRoles = []RoleSeed{
	{Key: RoleSuperAdmin, Label: "Super admin", Universal: true},
	{Key: RoleModerator, Label: "Moderator", Grants: []GrantSeed{
		{PermTasksModerate, models.ModeAll},
		{PermOrdersRefund, models.ModeAll},
		{PermWithdrawalsApprove, models.ModeAll},
	}},
	// every registered user holds this role; what it grants depends on the mode
	{Key: RoleTaskDoer, Label: "Member", Grants: []GrantSeed{
		{PermTasksClaim, models.ModeTaskDoer},
		{PermTasksSubmit, models.ModeTaskDoer},
		{PermWithdrawalsRequest, models.ModeTaskDoer},
		{PermTasksCreate, models.ModeTaskGiver},
		{PermTasksReview, models.ModeTaskGiver},
		{PermOrdersCreate, models.ModeTaskGiver},
	}},
	{Key: RoleTaskGiver, Label: "Verified giver", Grants: []GrantSeed{
		{PermTasksCreate, models.ModeAll},
		{PermTasksReview, models.ModeAll},
	}},
}
