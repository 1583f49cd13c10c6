package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/llm"
)

func TestCapabilitiesForRole(t *testing.T) {
	t.Parallel()

	t.Run("staff is read-only", func(t *testing.T) {
		t.Parallel()
		caps := CapabilitiesForRole(domain.RoleStaff)
		assert.Equal(t, []Capability{CapabilityQuery}, caps)
	})

	t.Run("admin may propose", func(t *testing.T) {
		t.Parallel()
		caps := CapabilitiesForRole(domain.RoleAdmin)
		assert.True(t, HasCapability(caps, CapabilityQuery))
		assert.True(t, HasCapability(caps, CapabilityDataChange))
		assert.True(t, HasCapability(caps, CapabilityKnowledgeUpdate))
	})

	t.Run("approver may propose", func(t *testing.T) {
		t.Parallel()
		caps := CapabilitiesForRole(domain.RoleApprover)
		assert.True(t, HasCapability(caps, CapabilityDataChange))
	})

	t.Run("unknown role has no capabilities", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, CapabilitiesForRole("superuser"))
	})
}

func TestRequiredCapability(t *testing.T) {
	t.Parallel()

	c, ok := RequiredCapability(ToolProposeDataChange)
	require.True(t, ok)
	assert.Equal(t, CapabilityDataChange, c)

	c, ok = RequiredCapability(ToolLookupStudent)
	require.True(t, ok)
	assert.Equal(t, CapabilityQuery, c)

	_, ok = RequiredCapability("drop_tables")
	assert.False(t, ok)
}

func TestToolDefs(t *testing.T) {
	t.Parallel()

	names := func(tools []llm.Tool) []string {
		out := make([]string, 0, len(tools))
		for _, tool := range tools {
			out = append(out, tool.Function.Name)
		}
		return out
	}

	t.Run("read-only set omits proposal tools", func(t *testing.T) {
		t.Parallel()
		got := names(ToolDefs(CapabilitiesForRole(domain.RoleStaff)))
		assert.Contains(t, got, ToolLookupStudent)
		assert.Contains(t, got, ToolSearchKnowledge)
		assert.NotContains(t, got, ToolProposeDataChange)
		assert.NotContains(t, got, ToolProposeKnowledgeUpdate)
	})

	t.Run("admin set includes proposal tools", func(t *testing.T) {
		t.Parallel()
		got := names(ToolDefs(CapabilitiesForRole(domain.RoleAdmin)))
		assert.Contains(t, got, ToolProposeDataChange)
		assert.Contains(t, got, ToolProposeKnowledgeUpdate)
	})

	t.Run("no capabilities yields no tools", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, ToolDefs(nil))
	})
}

func TestBuildPreamble(t *testing.T) {
	t.Parallel()

	staff := BuildPreamble(domain.RoleStaff)
	admin := BuildPreamble(domain.RoleAdmin)

	assert.Contains(t, staff, "read-only")
	assert.NotContains(t, admin, "read-only")
	assert.Contains(t, admin, "NEVER modify records")
}
