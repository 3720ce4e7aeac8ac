package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"learner": {
		"course:view",
		"plan:view",
		"enroll:self",
		"enroll:drop",
		"progress:view-own",
		"progress:signal",
		"attempt:submit",
		"attempt:view-own",
		"user:change_password",
	},
	"instructor": {
		"course:view",
		"plan:view",
		"authoring:write",
		"authoring:import",
		"enroll:approve",
		"enroll:list",
		"progress:view-any",
		"attempt:view-all",
		"events:read",
		"users:bulk_upsert",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
