package message

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/agentcore/runtime"
)

// mongoMessage is the BSON document shape for one stored message.
type mongoMessage struct {
	ContextID  string        `bson:"contextId"`
	Index      int           `bson:"index"`
	Role       Role          `bson:"role"`
	Content    string        `bson:"content"`
	ToolCallID string        `bson:"toolCallId,omitempty"`
	Name       string        `bson:"name,omitempty"`
	ToolCalls  []ToolCallRef `bson:"toolCalls,omitempty"`
	Timestamp  time.Time     `bson:"timestamp"`
}

// MongoStore is a durable Store backed by a MongoDB collection, for
// deployments that need message history to outlive a single process.
// It implements the exact contract as InMemoryStore; compaction rewrites
// are applied by loading, transforming, and replacing the context's
// document set as two separate writes (delete, then insert), not in a
// transaction.
type MongoStore struct {
	coll       *mongo.Collection
	summarizer Summarizer
	now        func() time.Time
}

// NewMongoStore constructs a MongoStore over the given collection. Callers
// are expected to have created a unique index on (contextId, index).
func NewMongoStore(coll *mongo.Collection, opts ...Option) *MongoStore {
	inmem := &InMemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(inmem)
	}
	return &MongoStore{coll: coll, summarizer: inmem.summarizer, now: inmem.now}
}

func (s *MongoStore) Append(ctx context.Context, contextID agentcore.ContextID, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	count, err := s.coll.CountDocuments(ctx, bson.M{"contextId": string(contextID)})
	if err != nil {
		return fmt.Errorf("message: count existing: %w", err)
	}
	now := s.now()
	docs := make([]any, len(messages))
	for i, m := range messages {
		docs[i] = mongoMessage{
			ContextID: string(contextID), Index: int(count) + i, Role: m.Role,
			Content: m.Content, ToolCallID: m.ToolCallID, Name: m.Name,
			ToolCalls: m.ToolCalls, Timestamp: now,
		}
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("message: insert: %w", err)
	}
	return nil
}

func (s *MongoStore) loadAll(ctx context.Context, contextID agentcore.ContextID) ([]Message, error) {
	cur, err := s.coll.Find(ctx, bson.M{"contextId": string(contextID)},
		options.Find().SetSort(bson.D{{Key: "index", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("message: find: %w", err)
	}
	defer cur.Close(ctx)

	var out []Message
	for cur.Next(ctx) {
		var doc mongoMessage
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("message: decode: %w", err)
		}
		out = append(out, Message{
			Role: doc.Role, Content: doc.Content, ToolCallID: doc.ToolCallID,
			Name: doc.Name, ToolCalls: doc.ToolCalls, Index: doc.Index, Timestamp: doc.Timestamp,
		})
	}
	return out, cur.Err()
}

func (s *MongoStore) GetAll(ctx context.Context, contextID agentcore.ContextID) ([]Message, error) {
	return s.loadAll(ctx, contextID)
}

func (s *MongoStore) GetCount(ctx context.Context, contextID agentcore.ContextID) (int, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"contextId": string(contextID)})
	return int(count), err
}

func (s *MongoStore) GetRange(ctx context.Context, contextID agentcore.ContextID, start, end int) ([]Message, error) {
	all, err := s.loadAll(ctx, contextID)
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if end > len(all) {
		end = len(all)
	}
	if start >= end {
		return nil, nil
	}
	return all[start:end], nil
}

func (s *MongoStore) GetRecent(ctx context.Context, contextID agentcore.ContextID, opts RecentOptions) ([]Message, error) {
	all, err := s.loadAll(ctx, contextID)
	if err != nil {
		return nil, err
	}
	suffix := all
	if opts.MaxMessages > 0 && len(suffix) > opts.MaxMessages {
		suffix = suffix[len(suffix)-opts.MaxMessages:]
	}
	if opts.MaxTokens > 0 {
		suffix = trimToTokenBudget(suffix, opts.MaxTokens)
	}
	return suffix, nil
}

func (s *MongoStore) Clear(ctx context.Context, contextID agentcore.ContextID) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"contextId": string(contextID)})
	if err != nil {
		return fmt.Errorf("message: clear: %w", err)
	}
	return nil
}

func (s *MongoStore) Compact(ctx context.Context, contextID agentcore.ContextID, opts CompactOptions) (CompactResult, error) {
	all, err := s.loadAll(ctx, contextID)
	if err != nil {
		return CompactResult{}, err
	}

	rewritten, result, err := rewriteForCompaction(ctx, s.summarizer, all, opts)
	if err != nil {
		return CompactResult{}, err
	}

	if _, err := s.coll.DeleteMany(ctx, bson.M{"contextId": string(contextID)}); err != nil {
		return CompactResult{}, fmt.Errorf("message: clear before rewrite: %w", err)
	}
	if len(rewritten) > 0 {
		now := s.now()
		docs := make([]any, len(rewritten))
		for i, m := range rewritten {
			docs[i] = mongoMessage{
				ContextID: string(contextID), Index: i, Role: m.Role, Content: m.Content,
				ToolCallID: m.ToolCallID, Name: m.Name, ToolCalls: m.ToolCalls, Timestamp: now,
			}
		}
		if _, err := s.coll.InsertMany(ctx, docs); err != nil {
			return CompactResult{}, fmt.Errorf("message: insert rewritten: %w", err)
		}
	}
	return result, nil
}
