package rbac

// Default policy for the three panels. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"assessment:run",
		"courses:browse",
		"courses:enroll",
		"content:purchase",
		"results:view-own",
		"profile:view",
		"user:change_password",
	},
	"instructor": {
		"courses:create",
		"courses:manage-own",
		"enrollments:decide",
		"tokens:adjust",
		"tokens:reset",
		"tokens:logs",
		"analytics:view",
		"students:list",
	},
	"admin": {
		"*", // everything
	},
}
