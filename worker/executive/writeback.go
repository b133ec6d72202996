package executive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/loglattice/orchestrator/graphstore"
	"github.com/loglattice/orchestrator/knowledge"
)

// writeback persists the (user, assistant) exchange into the graph,
// best-effort (§4.4): locate or create a Topic matching userQuery by exact
// name, then attach a Knowledge node for the exchange via BELONGS_TO.
// Failures are logged and swallowed; they never reach the caller.
func (w *Worker) writeback(ctx context.Context, userQuery, assistantOutput string) {
	topicID, err := w.findOrCreateTopic(ctx, userQuery)
	if err != nil {
		w.Logger.Warn("executive: writeback topic resolution failed", zap.Error(err))
		return
	}

	summary := fmt.Sprintf("Q: %s\nA: %s", userQuery, assistantOutput)
	_, err = knowledge.Dispatch(ctx, w.Tools, knowledge.CreateNodeCall{
		Kind:      graphstore.Knowledge,
		Name:      userQuery,
		Summary:   summary,
		BelongsTo: []graphstore.NodeRef{{ID: topicID}},
	})
	if err != nil {
		w.Logger.Warn("executive: writeback knowledge node failed", zap.Error(err))
	}
}

// findOrCreateTopic looks up a Topic by exact name match first (§4.4: "exact
// name search first, then createNode(Topic, ...)").
func (w *Worker) findOrCreateTopic(ctx context.Context, name string) (int64, error) {
	res, err := knowledge.Dispatch(ctx, w.Tools, knowledge.StructuralSearchCall{
		Where:  "kind = $1 AND name = $2",
		Return: "id",
		Params: map[string]any{"kind": string(graphstore.Topic), "name": name},
	})
	if err != nil {
		return 0, err
	}
	if rows := res.([]graphstore.Row); len(rows) > 0 {
		if id, ok := rows[0]["id"].(int64); ok {
			return id, nil
		}
	}

	created, err := knowledge.Dispatch(ctx, w.Tools, knowledge.CreateNodeCall{
		Kind: graphstore.Topic, Name: name,
	})
	if err != nil {
		return 0, err
	}
	return created.(int64), nil
}
