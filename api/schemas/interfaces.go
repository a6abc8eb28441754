package schemas

import (
	"context"
	"fmt"
	"strings"
)

// RuleEngine is a pluggable accessibility rule evaluator. How the engine gets
// into the page (bundled asset, remote script) is the implementation's concern.
type RuleEngine interface {
	Run(ctx context.Context, page PageContext) (*AuditResults, error)
}

// AuditResults mirrors the engine's run() output.
type AuditResults struct {
	Violations []Violation `json:"violations"`
}

// Violation is one failed rule together with every node it failed on.
type Violation struct {
	ID          string          `json:"id"`
	Impact      Impact          `json:"impact"`
	Description string          `json:"description"`
	Help        string          `json:"help"`
	Tags        []string        `json:"tags"`
	Nodes       []ViolationNode `json:"nodes"`
}

// ViolationNode identifies one offending element. Target entries are
// selectors; nested arrays address elements inside frames or shadow roots.
type ViolationNode struct {
	Target []interface{} `json:"target"`
}

// Selector flattens the node's target path into a single readable selector.
func (n ViolationNode) Selector() string {
	parts := make([]string, 0, len(n.Target))
	for _, t := range n.Target {
		switch v := t.(type) {
		case string:
			parts = append(parts, v)
		case []interface{}:
			inner := ViolationNode{Target: v}
			parts = append(parts, inner.Selector())
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, " >>> ")
}
