// Package chat implements the conversation pipeline: capability policy,
// proposal decoding, turn orchestration, and approved-mutation execution.
package chat

import (
	"github.com/campusops/aula/internal/domain"
	"github.com/campusops/aula/internal/llm"
)

// Capability names one class of action the assistant may take on behalf of
// the signed-in user. Capabilities derive from the user role alone and are
// fixed for the duration of a turn.
type Capability string

const (
	CapabilityQuery           Capability = "query"
	CapabilityDataChange      Capability = "data_change"
	CapabilityKnowledgeUpdate Capability = "knowledge_update"
)

// CapabilitiesForRole maps a user role to its capability set. Staff are
// read-only; admins and approvers may additionally propose mutations. No
// role grants direct writes: every mutation still goes through approval.
func CapabilitiesForRole(role string) []Capability {
	switch role {
	case domain.RoleAdmin, domain.RoleApprover:
		return []Capability{CapabilityQuery, CapabilityDataChange, CapabilityKnowledgeUpdate}
	case domain.RoleStaff:
		return []Capability{CapabilityQuery}
	default:
		return nil
	}
}

// HasCapability reports whether caps contains c.
func HasCapability(caps []Capability, c Capability) bool {
	for _, have := range caps {
		if have == c {
			return true
		}
	}
	return false
}

// Tool names the model may invoke. Query tools execute immediately;
// proposal tools only ever produce pending approval requests.
const (
	ToolLookupStudent       = "lookup_student"
	ToolListStudentInvoices = "list_student_invoices"
	ToolListFacilities      = "list_facilities"
	ToolSearchKnowledge     = "search_knowledge"

	ToolProposeDataChange      = "propose_data_change"
	ToolProposeKnowledgeUpdate = "propose_knowledge_update"
)

// toolCapabilities maps each tool to the capability required to invoke it.
var toolCapabilities = map[string]Capability{
	ToolLookupStudent:          CapabilityQuery,
	ToolListStudentInvoices:    CapabilityQuery,
	ToolListFacilities:         CapabilityQuery,
	ToolSearchKnowledge:        CapabilityQuery,
	ToolProposeDataChange:      CapabilityDataChange,
	ToolProposeKnowledgeUpdate: CapabilityKnowledgeUpdate,
}

// RequiredCapability returns the capability a tool needs, or false for an
// unknown tool name.
func RequiredCapability(tool string) (Capability, bool) {
	c, ok := toolCapabilities[tool]
	return c, ok
}

// BuildPreamble returns the system prompt for a turn. The preamble states
// the hard rule of the platform: the assistant never changes records
// directly, it only proposes.
func BuildPreamble(role string) string {
	base := `You are the records assistant for a school administration platform.
You answer questions about students, invoices, facilities, documents, and the
internal knowledge base using the query tools.

You can NEVER modify records yourself. When the user asks for a change, emit a
proposal tool call describing the exact change; a human reviewer decides it
later. Tell the user the change was submitted for review, never that it was
applied. If a request is outside your tools, say so plainly.`

	if role == domain.RoleStaff {
		return base + `

The current user has read-only access. Do not emit proposal tool calls;
explain that their role cannot request changes.`
	}
	return base
}

// ToolDefs returns the tool definitions to advertise for a capability set.
// Proposal tools are withheld entirely from read-only users rather than
// advertised and refused.
func ToolDefs(caps []Capability) []llm.Tool {
	var tools []llm.Tool

	if HasCapability(caps, CapabilityQuery) {
		tools = append(tools,
			funcTool(ToolLookupStudent, "Look up a single student record by id.", map[string]any{
				"type": "object",
				"properties": map[string]any{
					"student_id": map[string]any{"type": "string", "description": "student UUID"},
				},
				"required": []string{"student_id"},
			}),
			funcTool(ToolListStudentInvoices, "List all invoices for a student.", map[string]any{
				"type": "object",
				"properties": map[string]any{
					"student_id": map[string]any{"type": "string", "description": "student UUID"},
				},
				"required": []string{"student_id"},
			}),
			funcTool(ToolListFacilities, "List the school's facilities.", map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}),
			funcTool(ToolSearchKnowledge, "Search the internal knowledge base by title.", map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
				},
				"required": []string{"query"},
			}),
		)
	}

	if HasCapability(caps, CapabilityDataChange) {
		tools = append(tools, funcTool(ToolProposeDataChange,
			"Propose a create, update, or delete of a student, invoice, facility, or document record. The change is queued for human approval.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity":    map[string]any{"type": "string", "enum": []string{"student", "invoice", "facility", "document"}},
					"op":        map[string]any{"type": "string", "enum": []string{"create", "update", "delete"}},
					"target_id": map[string]any{"type": "string", "description": "target record UUID; omit for create"},
					"fields":    map[string]any{"type": "object", "description": "field values to set; omit for delete"},
				},
				"required": []string{"entity", "op"},
			}))
	}

	if HasCapability(caps, CapabilityKnowledgeUpdate) {
		tools = append(tools, funcTool(ToolProposeKnowledgeUpdate,
			"Propose a create, update, or delete of a knowledge base note. The change is queued for human approval.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"op":        map[string]any{"type": "string", "enum": []string{"create", "update", "delete"}},
					"target_id": map[string]any{"type": "string", "description": "note UUID; omit for create"},
					"fields":    map[string]any{"type": "object", "description": "title, body, tags; omit for delete"},
				},
				"required": []string{"op"},
			}))
	}

	return tools
}

func funcTool(name, description string, params map[string]any) llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}
