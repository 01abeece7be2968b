package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"result:view-own",
		"user:change_password",
	},
	"lecturer": {
		"assignment:view",
		"result:roster",
		"result:edit",
		"result:submit",
		"user:change_password",
	},
	// head of department: assigns courses, approves and releases results
	"hod": {
		"assignment:create",
		"assignment:view",
		"course:create",
		"course:enroll",
		"result:roster",
		"result:approve",
		"result:publish",
		"audit:view",
		"users:list",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
