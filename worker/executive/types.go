// Package executive is the Executive Worker (C4): given the user query, the
// conversation, and the Speaker's output so far, it retrieves relevant
// knowledge, produces an EvalVerdict, and best-effort writes the exchange
// back into the graph.
package executive

import "github.com/loglattice/orchestrator/graphstore"

// Action is the closed set of verdict actions. Per §9's resolved Open
// Question, "restart" is explicitly out of scope.
type Action string

const (
	ActionNone      Action = "none"
	ActionInterrupt Action = "interrupt"
)

// EvalVerdict is the Executive's evaluation result.
type EvalVerdict struct {
	Action   Action `json:"action"`
	Reason   string `json:"reason"`
	Document string `json:"document"`
}

// KnowledgeDocument is the retrieval protocol's output: the Knowledge
// and/or Topic hits folded into a single text block for prompting.
type KnowledgeDocument struct {
	Topics []graphstore.VectorHit
	Items  []graphstore.HybridHit
	Text   string
}
