// ABOUTME: Execution report types: the sandbox's account of created, updated, and deleted nodes.
// ABOUTME: The report is the sole ground truth the verification matcher trusts.
package plan

// CreatedNode describes one node the sandbox created.
type CreatedNode struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	ParentID     string `json:"parentId,omitempty"`
	VariantProps []Prop `json:"variantProps,omitempty"`
}

// UpdatedNode describes one node the sandbox modified, with the properties it changed.
type UpdatedNode struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type,omitempty"`
	ChangedProps []string `json:"changedProps,omitempty"`
	VariantProps []Prop   `json:"variantProps,omitempty"`
}

// ExecutionReport is the sandbox's authoritative account of one script run.
type ExecutionReport struct {
	CreatedNodes   []CreatedNode `json:"createdNodes,omitempty"`
	UpdatedNodes   []UpdatedNode `json:"updatedNodes,omitempty"`
	DeletedNodeIDs []string      `json:"deletedNodeIds,omitempty"`
	Selection      []string      `json:"selection,omitempty"`
	DurationMillis int64         `json:"durationMs,omitempty"`

	// Error is set when the script threw part-way; created/updated lists may
	// still hold the nodes that landed before the failure.
	Error *ExecutionError `json:"error,omitempty"`
}

// Deleted reports whether the given node id appears in DeletedNodeIDs.
func (r *ExecutionReport) Deleted(nodeID string) bool {
	for _, id := range r.DeletedNodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// ExecutionError is the structured failure the sandbox returns when a script throws.
type ExecutionError struct {
	Message           string   `json:"message"`
	Stack             string   `json:"stack,omitempty"`
	Code              string   `json:"code,omitempty"`
	PartialCreatedIDs []string `json:"partialCreatedIds,omitempty"`
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return e.Message
}
