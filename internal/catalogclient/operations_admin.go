package catalogclient

import (
	"context"
	"encoding/json"
)

// UserInfo is one row of the admin user-management surface of spec.md §4.7.
type UserInfo struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	IsActive bool     `json:"isActive"`
	IsAdmin  bool     `json:"isAdmin"`
	Roles    []string `json:"roles"`
}

func (c *Client) AdminUsersList(ctx context.Context) ([]UserInfo, error) {
	const query = `query { admin { usersList { name email isActive isAdmin roles } } }`
	var data struct {
		Admin struct {
			UsersList []UserInfo `json:"usersList"`
		} `json:"admin"`
	}
	if err := c.Query(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	return data.Admin.UsersList, nil
}

func (c *Client) AdminUserCreate(ctx context.Context, name, email, role string) (*UserInfo, error) {
	const mutation = `mutation($name: String!, $email: String!, $role: String!) {
		adminCreateUser(name: $name, email: $email, role: $role) {
			__typename
			... on User { name email isActive isAdmin roles }
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	variables := map[string]any{"name": name, "email": email, "role": role}
	var raw struct {
		Result json.RawMessage `json:"adminCreateUser"`
	}
	if err := c.Query(ctx, mutation, variables, &raw); err != nil {
		return nil, err
	}
	var user UserInfo
	if err := decodeUnion(raw.Result, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) AdminUserDelete(ctx context.Context, name string) error {
	const mutation = `mutation($name: String!) {
		adminDeleteUser(name: $name) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name}, "adminDeleteUser")
}

func (c *Client) AdminUserSetEmail(ctx context.Context, name, email string) error {
	const mutation = `mutation($name: String!, $email: String!) {
		adminSetUserEmail(name: $name, email: $email) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name, "email": email}, "adminSetUserEmail")
}

func (c *Client) AdminUserSetActive(ctx context.Context, name string, active bool) error {
	const mutation = `mutation($name: String!, $active: Boolean!) {
		adminSetUserActive(name: $name, active: $active) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name, "active": active}, "adminSetUserActive")
}

func (c *Client) AdminUserSetAdmin(ctx context.Context, name string, admin bool) error {
	const mutation = `mutation($name: String!, $admin: Boolean!) {
		adminSetUserAdmin(name: $name, admin: $admin) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name, "admin": admin}, "adminSetUserAdmin")
}

func (c *Client) AdminUserAddRole(ctx context.Context, name, role string) error {
	const mutation = `mutation($name: String!, $role: String!) {
		adminAddUserRole(name: $name, role: $role) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name, "role": role}, "adminAddUserRole")
}

func (c *Client) AdminUserRemoveRole(ctx context.Context, name, role string) error {
	const mutation = `mutation($name: String!, $role: String!) {
		adminRemoveUserRole(name: $name, role: $role) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name, "role": role}, "adminRemoveUserRole")
}

// RoleInfo is one row of the role-management surface of spec.md §4.7.
type RoleInfo struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

func (c *Client) AdminRolesList(ctx context.Context) ([]RoleInfo, error) {
	const query = `query { admin { rolesList { name arn } } }`
	var data struct {
		Admin struct {
			RolesList []RoleInfo `json:"rolesList"`
		} `json:"admin"`
	}
	if err := c.Query(ctx, query, nil, &data); err != nil {
		return nil, err
	}
	return data.Admin.RolesList, nil
}

// AdminRoleCreate accepts the complex role input verbatim; spec.md §4.7
// notes the core exposes role creation but does not synthesize the input
// shape, so callers pass it through as a pre-built map.
func (c *Client) AdminRoleCreate(ctx context.Context, input map[string]any) (*RoleInfo, error) {
	const mutation = `mutation($input: RoleInput!) {
		adminCreateRole(input: $input) {
			__typename
			... on Role { name arn }
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	var raw struct {
		Result json.RawMessage `json:"adminCreateRole"`
	}
	if err := c.Query(ctx, mutation, map[string]any{"input": input}, &raw); err != nil {
		return nil, err
	}
	var role RoleInfo
	if err := decodeUnion(raw.Result, &role); err != nil {
		return nil, err
	}
	return &role, nil
}

func (c *Client) AdminRoleDelete(ctx context.Context, name string) error {
	const mutation = `mutation($name: String!) {
		adminDeleteRole(name: $name) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name}, "adminDeleteRole")
}

func (c *Client) AdminSSOConfigGet(ctx context.Context) (string, error) {
	const query = `query { admin { ssoConfig { config } } }`
	var data struct {
		Admin struct {
			SSOConfig struct {
				Config string `json:"config"`
			} `json:"ssoConfig"`
		} `json:"admin"`
	}
	if err := c.Query(ctx, query, nil, &data); err != nil {
		return "", err
	}
	return data.Admin.SSOConfig.Config, nil
}

func (c *Client) AdminSSOConfigSet(ctx context.Context, configJSON string) error {
	const mutation = `mutation($config: String!) {
		adminSetSSOConfig(config: $config) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"config": nonEmptyOrNil(configJSON)}, "adminSetSSOConfig")
}

// PolicyPermission is one bucket/level pair of a policy grant, per spec.md §4.7.
type PolicyPermission struct {
	Bucket string `json:"bucket"`
	Level  string `json:"level"`
}

// PolicyInfo is one row of the policy-management surface.
type PolicyInfo struct {
	Name        string             `json:"name"`
	Title       string             `json:"title"`
	Managed     bool               `json:"managed"`
	Permissions []PolicyPermission `json:"permissions"`
	ARN         string             `json:"arn"`
}

func (c *Client) AdminPolicyCreateManaged(ctx context.Context, title string, permissions []PolicyPermission) (*PolicyInfo, error) {
	const mutation = `mutation($title: String!, $permissions: [PolicyPermissionInput!]!) {
		adminCreateManagedPolicy(title: $title, permissions: $permissions) {
			__typename
			... on Policy { name title managed permissions { bucket level } }
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	var raw struct {
		Result json.RawMessage `json:"adminCreateManagedPolicy"`
	}
	if err := c.Query(ctx, mutation, map[string]any{"title": title, "permissions": permissions}, &raw); err != nil {
		return nil, err
	}
	var policy PolicyInfo
	if err := decodeUnion(raw.Result, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (c *Client) AdminPolicyCreateUnmanaged(ctx context.Context, title, arn string) (*PolicyInfo, error) {
	const mutation = `mutation($title: String!, $arn: String!) {
		adminCreateUnmanagedPolicy(title: $title, arn: $arn) {
			__typename
			... on Policy { name title managed arn }
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	var raw struct {
		Result json.RawMessage `json:"adminCreateUnmanagedPolicy"`
	}
	if err := c.Query(ctx, mutation, map[string]any{"title": title, "arn": arn}, &raw); err != nil {
		return nil, err
	}
	var policy PolicyInfo
	if err := decodeUnion(raw.Result, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (c *Client) AdminPolicyDelete(ctx context.Context, name string) error {
	const mutation = `mutation($name: String!) {
		adminDeletePolicy(name: $name) {
			__typename
			... on InvalidInput { errors { name message } }
			... on OperationError { message }
		}
	}`
	return c.adminUnionMutation(ctx, mutation, map[string]any{"name": name}, "adminDeletePolicy")
}

// adminUnionMutation runs a mutation whose result field is a bare union
// with no success payload beyond Ok, consolidating the repeated
// query-then-decode shape spec.md §9 asks to de-duplicate across the three
// original "governance_impl" variants.
func (c *Client) adminUnionMutation(ctx context.Context, mutation string, variables map[string]any, resultField string) error {
	raw := map[string]json.RawMessage{}
	if err := c.Query(ctx, mutation, variables, &raw); err != nil {
		return err
	}
	return decodeUnion(raw[resultField], nil)
}
