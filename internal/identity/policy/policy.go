// Package policy builds the authorization enforcer from the role
// permission map compiled into the entity package.
package policy

import (
	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// NewEnforcer returns an in-memory enforcer holding one policy per role
// permission. Subjects are role names.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	var rules [][]string
	for _, role := range entity.Roles() {
		for _, p := range role.Permissions() {
			rules = append(rules, []string{role.String(), p.Object, p.Action})
		}
	}

	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, err
		}
	}

	return e, nil
}
