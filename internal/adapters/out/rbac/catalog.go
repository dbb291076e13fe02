// Package rbac answers role/resource/action questions from a static role
// catalogue. The catalogue ships embedded in the binary and can be replaced by
// a YAML file at start-up.
package rbac

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

// Wildcard matches any resource or any action.
const Wildcard = "*"

// Resources and actions granted outside the transition table.
const (
	ResourceWorkflowRun = "WORKFLOW_RUN"
	ActionStart         = "start"
	ActionApprove       = "approve"
)

//go:embed roles.yaml
var defaultCatalogYAML []byte

type catalogDocument struct {
	Roles map[kernel.Role]map[string][]string `yaml:"roles"`
}

// Catalog is an immutable role catalogue. It is safe for concurrent use.
type Catalog struct {
	grants map[kernel.Role]map[string][]string
}

// Default returns the catalogue compiled into the binary.
func Default() (*Catalog, error) {
	return Load(defaultCatalogYAML)
}

// LoadFile reads a catalogue from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role catalogue %s: %w", path, err)
	}
	return Load(data)
}

// Load parses a YAML catalogue. Unknown role names are rejected so a typo
// cannot silently revoke access.
func Load(data []byte) (*Catalog, error) {
	var doc catalogDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse role catalogue: %w", err)
	}
	if len(doc.Roles) == 0 {
		return nil, errs.NewValueIsRequiredError("roles")
	}

	c := &Catalog{grants: make(map[kernel.Role]map[string][]string, len(doc.Roles))}
	for role, resources := range doc.Roles {
		if err := role.Validate(); err != nil {
			return nil, err
		}
		granted := make(map[string][]string, len(resources))
		for resource, actions := range resources {
			if len(actions) == 0 {
				return nil, errs.NewValueIsRequiredErrorWithCause(
					"actions", fmt.Errorf("role %s lists %s without actions", role, resource),
				)
			}
			granted[resource] = slices.Clone(actions)
		}
		c.grants[role] = granted
	}
	return c, nil
}

// RoleHasAccess reports whether role may perform action on resource.
func (c *Catalog) RoleHasAccess(role kernel.Role, resource, action string) bool {
	resources, ok := c.grants[role]
	if !ok {
		return false
	}
	for _, key := range []string{resource, Wildcard} {
		actions, ok := resources[key]
		if !ok {
			continue
		}
		if slices.Contains(actions, action) || slices.Contains(actions, Wildcard) {
			return true
		}
	}
	return false
}

// Roles returns the roles that have at least one grant, sorted.
func (c *Catalog) Roles() []kernel.Role {
	roles := make([]kernel.Role, 0, len(c.grants))
	for role := range c.grants {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}
