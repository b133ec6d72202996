package executive

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/loglattice/orchestrator/graphstore"
	"github.com/loglattice/orchestrator/knowledge"
)

// retrieve implements the retrieval protocol (§4.4, steps 1-4):
//  1. vectorSearch(Topic, userQuery, k=5, minScore=0.6)
//  2. if empty, vectorSearch(Knowledge, userQuery, k=5, minScore=0.5)
//  3. for each topic found, hybridSearch(Topic, topic.name, BELONGS_TO,
//     Knowledge, 5, 0.6) and accumulate Knowledge hits
//  4. fold into a KnowledgeDocument whose text concatenates item
//     name/description with their similarity scores.
func (w *Worker) retrieve(ctx context.Context, userQuery string) KnowledgeDocument {
	var doc KnowledgeDocument

	topicHits, err := knowledge.Dispatch(ctx, w.Tools, knowledge.VectorSearchCall{
		Kind: graphstore.Topic, Text: userQuery, K: 5, MinScore: 0.6,
	})
	if err != nil {
		w.Logger.Warn("executive: topic vector search failed", zap.Error(err))
		topicHits = []graphstore.VectorHit{}
	}
	doc.Topics = topicHits.([]graphstore.VectorHit)

	if len(doc.Topics) == 0 {
		knowledgeHits, err := knowledge.Dispatch(ctx, w.Tools, knowledge.VectorSearchCall{
			Kind: graphstore.Knowledge, Text: userQuery, K: 5, MinScore: 0.5,
		})
		if err != nil {
			w.Logger.Warn("executive: knowledge vector search failed", zap.Error(err))
			knowledgeHits = []graphstore.VectorHit{}
		}
		for _, h := range knowledgeHits.([]graphstore.VectorHit) {
			doc.Items = append(doc.Items, graphstore.HybridHit{
				Target: graphstore.Node{ID: h.ID, Kind: graphstore.Knowledge, Name: h.Name, Description: h.Description},
				Score:  h.Score,
			})
		}
	} else {
		for _, topic := range doc.Topics {
			hits, err := knowledge.Dispatch(ctx, w.Tools, knowledge.HybridSearchCall{
				SrcKind: graphstore.Topic, DstKind: graphstore.Knowledge,
				Text: topic.Name, Relationship: graphstore.BelongsTo, K: 5, MinScore: 0.6,
			})
			if err != nil {
				w.Logger.Warn("executive: hybrid search failed", zap.Error(err))
				continue
			}
			doc.Items = append(doc.Items, hits.([]graphstore.HybridHit)...)
		}
	}

	doc.Text = renderDocument(doc)
	return doc
}

// renderDocument folds a KnowledgeDocument into the text block forwarded to
// the Speaker (as a system message) and the Executive's own LLM prompt.
func renderDocument(doc KnowledgeDocument) string {
	if len(doc.Topics) == 0 && len(doc.Items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range doc.Topics {
		fmt.Fprintf(&b, "Topic: %s — %s (score=%.2f)\n", t.Name, t.Description, t.Score)
	}
	for _, it := range doc.Items {
		fmt.Fprintf(&b, "Knowledge: %s — %s (score=%.2f)\n", it.Target.Name, it.Target.Description, it.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}
