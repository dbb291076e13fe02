package kernel

import (
	"fmt"
	"slices"

	"tradeflow/internal/pkg/errs"
)

// Role is an RBAC role name as issued by the identity catalogue.
type Role string

const (
	RoleSalesExecutive     Role = "SALES_EXECUTIVE"
	RoleSalesManager       Role = "SALES_MANAGER"
	RoleTechnicalEngineer  Role = "TECHNICAL_ENGINEER"
	RoleTechnicalManager   Role = "TECHNICAL_MANAGER"
	RoleComplianceOfficer  Role = "COMPLIANCE_OFFICER"
	RoleSourcingExecutive  Role = "SOURCING_EXECUTIVE"
	RolePricingAnalyst     Role = "PRICING_ANALYST"
	RolePricingManager     Role = "PRICING_MANAGER"
	RoleProcurementOfficer Role = "PROCUREMENT_OFFICER"
	RoleProcurementManager Role = "PROCUREMENT_MANAGER"
	RoleStoresExecutive    Role = "STORES_EXECUTIVE"
	RoleQCInspector        Role = "QC_INSPECTOR"
	RoleQualityManager     Role = "QUALITY_MANAGER"
	RoleLogisticsExecutive Role = "LOGISTICS_EXECUTIVE"
	RoleFinanceExecutive   Role = "FINANCE_EXECUTIVE"
	RoleFinanceManager     Role = "FINANCE_MANAGER"
	RoleDirector           Role = "DIRECTOR"
	RoleManagingDirector   Role = "MANAGING_DIRECTOR"

	// RoleSystem is used by the scheduler and the orchestrator for automatic edges.
	RoleSystem Role = "SYSTEM"
)

// Roles lists every role known to the platform, including RoleSystem.
func Roles() []Role {
	return []Role{
		RoleSalesExecutive, RoleSalesManager, RoleTechnicalEngineer, RoleTechnicalManager,
		RoleComplianceOfficer, RoleSourcingExecutive, RolePricingAnalyst, RolePricingManager,
		RoleProcurementOfficer, RoleProcurementManager, RoleStoresExecutive, RoleQCInspector,
		RoleQualityManager, RoleLogisticsExecutive, RoleFinanceExecutive, RoleFinanceManager,
		RoleDirector, RoleManagingDirector, RoleSystem,
	}
}

func (r Role) String() string {
	return string(r)
}

func (r Role) Validate() error {
	if !slices.Contains(Roles(), r) {
		return errs.NewValueIsInvalidErrorWithCause("role", fmt.Errorf("%q is not a known role", string(r)))
	}
	return nil
}

// Actor is whoever requests a mutation: a user with a role, or the system.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// SystemActor triggers automatic transitions and SLA bookkeeping.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

func NewActor(id string, role Role) (Actor, error) {
	if id == "" {
		return Actor{}, errs.NewValueIsRequiredError("actor id")
	}
	if role == "" {
		return Actor{}, errs.NewValueIsRequiredErrorWithCause("actor role", fmt.Errorf("actor %s has no role", id))
	}
	return Actor{ID: id, Role: role}, nil
}

func (a Actor) Validate() error {
	if a.ID == "" || a.Role == "" {
		return errs.NewValueIsRequiredError("actor")
	}
	return nil
}

func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}
