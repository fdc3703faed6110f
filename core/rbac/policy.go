package rbac

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `
[request_definition]
r = sub, perm

[policy_definition]
p = sub, perm

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.perm == p.perm
`

// Permissions known to the service.
const (
	PermReportsView    = "reports.view"
	PermImportsAnalyze = "imports.analyze"
	PermImportsConfirm = "imports.confirm"
	PermLogsView       = "logs.view"
)

type Policy struct {
	enforcer *casbin.Enforcer
}

// NewPolicy builds the in-memory role policy. Roles: viewer can read,
// analyst can additionally run analyses, admin can confirm imports and read
// the audit trail.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	rules := [][]string{
		{"viewer", PermReportsView},
		{"analyst", PermImportsAnalyze},
		{"admin", PermImportsConfirm},
		{"admin", PermLogsView},
	}
	for _, rule := range rules {
		if _, err := e.AddPolicy(rule[0], rule[1]); err != nil {
			return nil, err
		}
	}
	// role inheritance: analyst ⊇ viewer, admin ⊇ analyst
	groupings := [][]string{
		{"analyst", "viewer"},
		{"admin", "analyst"},
	}
	for _, g := range groupings {
		if _, err := e.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(role, perm string) bool {
	if p == nil || p.enforcer == nil {
		return false
	}
	ok, err := p.enforcer.Enforce(role, perm)
	return err == nil && ok
}
