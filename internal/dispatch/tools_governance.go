package dispatch

import (
	"context"

	"github.com/quiltdata/quilt-mcp-server/internal/apperr"
	"github.com/quiltdata/quilt-mcp-server/internal/catalogclient"
	"github.com/quiltdata/quilt-mcp-server/internal/governance"
	"github.com/quiltdata/quilt-mcp-server/internal/reqctx"
)

// registerGovernanceTools wires the consolidated admin client (L) — users,
// roles, policies, SSO config, and tabulator/open-query administration —
// replacing what spec.md §9 notes were three duplicated governance_impl
// variants in the original with one client behind these tool names.
func (r *Registry) registerGovernanceTools() {
	r.register(&Descriptor{Name: "governance_users_list", Description: "List catalog users.", Handler: r.handleUsersList})
	r.register(&Descriptor{Name: "governance_user_create", Description: "Create a catalog user.", Handler: r.handleUserCreate})
	r.register(&Descriptor{Name: "governance_user_delete", Description: "Delete a catalog user.", Handler: r.handleUserDelete})
	r.register(&Descriptor{Name: "governance_user_set_email", Description: "Change a user's email.", Handler: r.handleUserSetEmail})
	r.register(&Descriptor{Name: "governance_user_set_active", Description: "Activate or deactivate a user.", Handler: r.handleUserSetActive})
	r.register(&Descriptor{Name: "governance_user_set_admin", Description: "Grant or revoke admin on a user.", Handler: r.handleUserSetAdmin})
	r.register(&Descriptor{Name: "governance_user_add_role", Description: "Add a role to a user.", Handler: r.handleUserAddRole})
	r.register(&Descriptor{Name: "governance_user_remove_role", Description: "Remove a role from a user.", Handler: r.handleUserRemoveRole})

	r.register(&Descriptor{Name: "governance_roles_list", Description: "List catalog roles.", Handler: r.handleRolesList})
	r.register(&Descriptor{Name: "governance_role_create", Description: "Create a catalog role.", Handler: r.handleRoleCreate})
	r.register(&Descriptor{Name: "governance_role_delete", Description: "Delete a catalog role.", Handler: r.handleRoleDelete})

	r.register(&Descriptor{Name: "governance_sso_config_get", Description: "Read the catalog's SSO configuration.", Handler: r.handleSSOConfigGet})
	r.register(&Descriptor{Name: "governance_sso_config_set", Description: "Replace the catalog's SSO configuration.", Handler: r.handleSSOConfigSet})

	r.register(&Descriptor{Name: "governance_policy_create_managed", Description: "Create a managed policy from bucket/level permission pairs.", Handler: r.handlePolicyCreateManaged})
	r.register(&Descriptor{Name: "governance_policy_create_unmanaged", Description: "Create an unmanaged policy from an external IAM ARN.", Handler: r.handlePolicyCreateUnmanaged})
	r.register(&Descriptor{Name: "governance_policy_delete", Description: "Delete a policy.", Handler: r.handlePolicyDelete})

	r.register(&Descriptor{Name: "tabulator_tables_list", Description: "List a bucket's tabulator table definitions.", Handler: r.handleTabulatorList})
	r.register(&Descriptor{Name: "tabulator_table_create", Description: "Create or replace a tabulator table definition.", Handler: r.handleTabulatorCreate})
	r.register(&Descriptor{Name: "tabulator_table_delete", Description: "Delete a tabulator table definition.", Handler: r.handleTabulatorDelete})
	r.register(&Descriptor{Name: "tabulator_table_rename", Description: "Rename a tabulator table definition.", Handler: r.handleTabulatorRename})
	r.register(&Descriptor{Name: "tabulator_open_query_get", Description: "Read the tabulator open-query setting.", Handler: r.handleOpenQueryGet})
	r.register(&Descriptor{Name: "tabulator_open_query_set", Description: "Enable or disable tabulator open query.", Handler: r.handleOpenQuerySet})
}

func (r *Registry) governanceFor(state *reqctx.State) *governance.Client {
	return governance.New(r.catalogFor(state))
}

func (r *Registry) handleUsersList(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	users, err := r.governanceFor(state).UsersList(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"users": users, "count": len(users)}, nil
}

func (r *Registry) handleUserCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	user, err := r.governanceFor(state).UserCreate(ctx, stringArg(args, "name"), stringArg(args, "email"), stringArg(args, "role"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"user": user}, nil
}

func (r *Registry) handleUserDelete(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name := stringArg(args, "name")
	if err := r.governanceFor(state).UserDelete(ctx, name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": name}, nil
}

func (r *Registry) handleUserSetEmail(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name, email := stringArg(args, "name"), stringArg(args, "email")
	if err := r.governanceFor(state).UserSetEmail(ctx, name, email); err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "name": name, "email": email}, nil
}

func (r *Registry) handleUserSetActive(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name, active := stringArg(args, "name"), boolArg(args, "active", true)
	if err := r.governanceFor(state).UserSetActive(ctx, name, active); err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "name": name, "active": active}, nil
}

func (r *Registry) handleUserSetAdmin(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name, admin := stringArg(args, "name"), boolArg(args, "admin", true)
	if err := r.governanceFor(state).UserSetAdmin(ctx, name, admin); err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "name": name, "admin": admin}, nil
}

func (r *Registry) handleUserAddRole(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name, role := stringArg(args, "name"), stringArg(args, "role")
	if err := r.governanceFor(state).UserAddRole(ctx, name, role); err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "name": name, "role": role}, nil
}

func (r *Registry) handleUserRemoveRole(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name, role := stringArg(args, "name"), stringArg(args, "role")
	if err := r.governanceFor(state).UserRemoveRole(ctx, name, role); err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated", "name": name, "role": role}, nil
}

func (r *Registry) handleRolesList(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := r.governanceFor(state).RolesList(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"roles": roles, "count": len(roles)}, nil
}

func (r *Registry) handleRoleCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	input := mapArg(args, "input")
	if input == nil {
		input = map[string]any{"name": stringArg(args, "name")}
	}
	role, err := r.governanceFor(state).RoleCreate(ctx, input)
	if err != nil {
		return nil, err
	}
	return map[string]any{"role": role}, nil
}

func (r *Registry) handleRoleDelete(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name := stringArg(args, "name")
	if err := r.governanceFor(state).RoleDelete(ctx, name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": name}, nil
}

func (r *Registry) handleSSOConfigGet(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := r.governanceFor(state).SSOConfigGet(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"config": cfg}, nil
}

func (r *Registry) handleSSOConfigSet(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	configJSON := stringArg(args, "config")
	if err := r.governanceFor(state).SSOConfigSet(ctx, configJSON); err != nil {
		return nil, err
	}
	return map[string]any{"status": "updated"}, nil
}

func (r *Registry) handlePolicyCreateManaged(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	raw, _ := args["permissions"].([]any)
	perms := make([]catalogclient.PolicyPermission, 0, len(raw))
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		perms = append(perms, catalogclient.PolicyPermission{
			Bucket: stringArg(entry, "bucket"),
			Level:  stringArg(entry, "level"),
		})
	}
	policy, err := r.governanceFor(state).PolicyCreateManaged(ctx, stringArg(args, "title"), perms)
	if err != nil {
		return nil, err
	}
	return map[string]any{"policy": policy}, nil
}

func (r *Registry) handlePolicyCreateUnmanaged(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	policy, err := r.governanceFor(state).PolicyCreateUnmanaged(ctx, stringArg(args, "title"), stringArg(args, "arn"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"policy": policy}, nil
}

func (r *Registry) handlePolicyDelete(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	name := stringArg(args, "name")
	if err := r.governanceFor(state).PolicyDelete(ctx, name); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "name": name}, nil
}

func (r *Registry) handleTabulatorList(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket := stringArg(args, "bucket")
	if bucket == "" {
		return nil, apperr.Validationf("bucket is required")
	}
	tables, err := r.governanceFor(state).TabulatorList(ctx, bucket)
	if err != nil {
		return nil, err
	}
	return map[string]any{"bucket": bucket, "tables": tables, "count": len(tables)}, nil
}

func (r *Registry) handleTabulatorCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket, table, configYAML := stringArg(args, "bucket"), stringArg(args, "table"), stringArg(args, "config_yaml")
	if err := r.governanceFor(state).TabulatorCreate(ctx, bucket, table, configYAML); err != nil {
		return nil, err
	}
	return map[string]any{"status": "created", "bucket": bucket, "table": table}, nil
}

func (r *Registry) handleTabulatorDelete(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket, table := stringArg(args, "bucket"), stringArg(args, "table")
	if err := r.governanceFor(state).TabulatorDelete(ctx, bucket, table); err != nil {
		return nil, err
	}
	return map[string]any{"status": "deleted", "bucket": bucket, "table": table}, nil
}

func (r *Registry) handleTabulatorRename(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	bucket, oldName, newName := stringArg(args, "bucket"), stringArg(args, "old_name"), stringArg(args, "new_name")
	if err := r.governanceFor(state).TabulatorRename(ctx, bucket, oldName, newName); err != nil {
		return nil, err
	}
	return map[string]any{"status": "renamed", "bucket": bucket, "old_name": oldName, "new_name": newName}, nil
}

func (r *Registry) handleOpenQueryGet(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	enabled, err := r.governanceFor(state).OpenQueryGet(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"enabled": enabled}, nil
}

func (r *Registry) handleOpenQuerySet(ctx context.Context, args map[string]any) (map[string]any, error) {
	state, err := reqctx.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	enabled := boolArg(args, "enabled", true)
	if err := r.governanceFor(state).OpenQuerySet(ctx, enabled); err != nil {
		return nil, err
	}
	return map[string]any{"enabled": enabled}, nil
}
