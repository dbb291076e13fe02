package rbac_test

import (
	"os"
	"path/filepath"
	"testing"

	"tradeflow/internal/adapters/out/rbac"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/domain/services"
	"tradeflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_GrantsEveryRoleNamedOnAnEdge(t *testing.T) {
	catalog, err := rbac.Default()
	require.NoError(t, err)
	table, err := transition.Default()
	require.NoError(t, err)

	for _, kind := range item.Kinds() {
		for _, def := range table.Edges(kind) {
			if def.IsAutomatic {
				continue
			}
			for _, role := range def.AllowedRoles {
				assert.True(t,
					catalog.RoleHasAccess(role, string(kind), services.ActionTransition),
					"%s on %s", role, def.Key(),
				)
			}
		}
	}
}

func TestRoleHasAccess(t *testing.T) {
	catalog, err := rbac.Default()
	require.NoError(t, err)

	tests := []struct {
		name     string
		role     kernel.Role
		resource string
		action   string
		want     bool
	}{
		{"sales on rfq", kernel.RoleSalesExecutive, "RFQ_ITEM", "transition", true},
		{"sales on order", kernel.RoleSalesExecutive, "ORDER_ITEM", "transition", false},
		{"inspector records verdicts", kernel.RoleQCInspector, "QC_INSPECTION", "record", true},
		{"stores cannot record verdicts", kernel.RoleStoresExecutive, "QC_INSPECTION", "record", false},
		{"director wildcard", kernel.RoleDirector, "ANYTHING", "delete", true},
		{"system wildcard", kernel.RoleSystem, "ORDER_ITEM", "transition", true},
		{"unknown action", kernel.RoleSalesManager, "RFQ_ITEM", "delete", false},
		{"sales starts runs", kernel.RoleSalesExecutive, rbac.ResourceWorkflowRun, rbac.ActionStart, true},
		{"unlisted role", kernel.Role("AUDITOR"), "RFQ_ITEM", "transition", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, catalog.RoleHasAccess(tt.role, tt.resource, tt.action))
		})
	}
}

func TestLoad_Rejects(t *testing.T) {
	_, err := rbac.Load([]byte("roles: {}"))
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = rbac.Load([]byte("roles:\n  AUDITOR:\n    RFQ_ITEM: [transition]\n"))
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)

	_, err = rbac.Load([]byte("roles:\n  DIRECTOR:\n    RFQ_ITEM: []\n"))
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	_, err = rbac.Load([]byte("roles: ["))
	require.Error(t, err)
}

func TestLoadFile_OverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles:\n  SALES_EXECUTIVE:\n    \"*\": [transition]\n"), 0o600))

	catalog, err := rbac.LoadFile(path)
	require.NoError(t, err)
	assert.True(t, catalog.RoleHasAccess(kernel.RoleSalesExecutive, "ORDER_ITEM", "transition"))
	assert.False(t, catalog.RoleHasAccess(kernel.RoleDirector, "ORDER_ITEM", "transition"))
	assert.Equal(t, []kernel.Role{kernel.RoleSalesExecutive}, catalog.Roles())

	_, err = rbac.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
