package contextstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/agentcore/runtime"
)

// mongoLock is the BSON shape of an advisory lock, embedded in the context
// document so acquisition can be expressed as one atomic filtered update.
type mongoLock struct {
	Holder     string    `bson:"holder"`
	AcquiredAt time.Time `bson:"acquiredAt"`
	ExpiresAt  time.Time `bson:"expiresAt"`
}

type mongoContext struct {
	ContextID string            `bson:"_id"`
	AgentID   string            `bson:"agentId"`
	Status    Status            `bson:"status"`
	CreatedAt time.Time         `bson:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt"`
	TurnCount int               `bson:"turnCount"`

	Title       string            `bson:"title,omitempty"`
	Description string            `bson:"description,omitempty"`
	Tags        []string          `bson:"tags,omitempty"`

	Owner       string            `bson:"owner,omitempty"`
	Shared      bool              `bson:"shared,omitempty"`
	Permissions map[string]string `bson:"permissions,omitempty"`

	Lock *mongoLock `bson:"lock,omitempty"`

	MessageCount    int `bson:"messageCount"`
	ArtifactCount   int `bson:"artifactCount"`
	TotalTokensUsed int `bson:"totalTokensUsed"`
}

// MongoStore is a durable Store backed by a MongoDB collection. Callers are
// expected to have created a unique index on _id (the contextId) — the
// driver enforces this implicitly since _id is always unique.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore constructs a MongoStore over the given collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll, now: time.Now}
}

func toDoc(s ContextState) mongoContext {
	return mongoContext{
		ContextID: string(s.ContextID), AgentID: string(s.AgentID), Status: s.Status,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, TurnCount: s.TurnCount,
		Title: s.Title, Description: s.Description, Tags: s.Tags,
		Owner: s.Owner, Shared: s.Shared, Permissions: s.Permissions,
		MessageCount: s.Statistics.MessageCount, ArtifactCount: s.Statistics.ArtifactCount,
		TotalTokensUsed: s.Statistics.TotalTokensUsed,
	}
}

func fromDoc(d mongoContext) ContextState {
	state := ContextState{
		ContextID: agentcore.ContextID(d.ContextID), AgentID: agentcore.AgentID(d.AgentID), Status: d.Status,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt, TurnCount: d.TurnCount,
		Title: d.Title, Description: d.Description, Tags: d.Tags,
		Owner: d.Owner, Shared: d.Shared, Permissions: d.Permissions,
		Statistics: Statistics{MessageCount: d.MessageCount, ArtifactCount: d.ArtifactCount, TotalTokensUsed: d.TotalTokensUsed},
	}
	if d.Lock != nil {
		state.Lock = &LockState{Holder: d.Lock.Holder, AcquiredAt: d.Lock.AcquiredAt, ExpiresAt: d.Lock.ExpiresAt}
	}
	return state
}

func (s *MongoStore) Create(ctx context.Context, state ContextState) error {
	now := s.now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	state.UpdatedAt = now
	if state.Status == "" {
		state.Status = StatusActive
	}
	_, err := s.coll.InsertOne(ctx, toDoc(state))
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("contextstore: create: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, contextID agentcore.ContextID) (ContextState, error) {
	var doc mongoContext
	err := s.coll.FindOne(ctx, bson.M{"_id": string(contextID)}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return ContextState{}, ErrNotFound
	}
	if err != nil {
		return ContextState{}, fmt.Errorf("contextstore: get: %w", err)
	}
	return fromDoc(doc), nil
}

func (s *MongoStore) Update(ctx context.Context, state ContextState) error {
	state.UpdatedAt = s.now()
	doc := toDoc(state)
	update := bson.M{"$set": bson.M{
		"agentId": doc.AgentID, "status": doc.Status, "updatedAt": doc.UpdatedAt,
		"turnCount": doc.TurnCount, "title": doc.Title, "description": doc.Description,
		"tags": doc.Tags, "owner": doc.Owner, "shared": doc.Shared, "permissions": doc.Permissions,
		"messageCount": doc.MessageCount, "artifactCount": doc.ArtifactCount, "totalTokensUsed": doc.TotalTokensUsed,
	}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": string(state.ContextID)}, update)
	if err != nil {
		return fmt.Errorf("contextstore: update: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, contextID agentcore.ContextID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": string(contextID)})
	if err != nil {
		return fmt.Errorf("contextstore: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, filter Filter) ([]ContextState, error) {
	query := bson.M{}
	if filter.AgentID != nil {
		query["agentId"] = string(*filter.AgentID)
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}
	if filter.Tag != "" {
		query["tags"] = filter.Tag
	}
	cur, err := s.coll.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("contextstore: list: %w", err)
	}
	defer cur.Close(ctx)

	var out []ContextState
	for cur.Next(ctx) {
		var doc mongoContext
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("contextstore: decode: %w", err)
		}
		out = append(out, fromDoc(doc))
	}
	return out, cur.Err()
}

// Search delegates to a text index on title/description. Deployments must
// create that index (`db.contexts.createIndex({title: "text", description: "text"})`);
// without one MongoDB returns a query-plan error surfaced to the caller.
func (s *MongoStore) Search(ctx context.Context, query string) ([]ContextState, error) {
	cur, err := s.coll.Find(ctx, bson.M{"$text": bson.M{"$search": strings.TrimSpace(query)}})
	if err != nil {
		return nil, fmt.Errorf("contextstore: search: %w", err)
	}
	defer cur.Close(ctx)

	var out []ContextState
	for cur.Next(ctx) {
		var doc mongoContext
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("contextstore: decode: %w", err)
		}
		out = append(out, fromDoc(doc))
	}
	return out, cur.Err()
}

func (s *MongoStore) AcquireLock(ctx context.Context, contextID agentcore.ContextID, owner string, ttl time.Duration) (bool, error) {
	now := s.now()
	filter := bson.M{
		"_id": string(contextID),
		"$or": bson.A{
			bson.M{"lock": nil},
			bson.M{"lock.holder": owner},
			bson.M{"lock.expiresAt": bson.M{"$lte": now}},
		},
	}
	update := bson.M{"$set": bson.M{"lock": mongoLock{Holder: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)}}}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("contextstore: acquire lock: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.Get(ctx, contextID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *MongoStore) ReleaseLock(ctx context.Context, contextID agentcore.ContextID, owner string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": string(contextID), "lock.holder": owner},
		bson.M{"$set": bson.M{"lock": nil}})
	if err != nil {
		return fmt.Errorf("contextstore: release lock: %w", err)
	}
	return nil
}

func (s *MongoStore) RefreshLock(ctx context.Context, contextID agentcore.ContextID, owner string, ttl time.Duration) error {
	now := s.now()
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": string(contextID), "lock.holder": owner},
		bson.M{"$set": bson.M{"lock.expiresAt": now.Add(ttl)}})
	if err != nil {
		return fmt.Errorf("contextstore: refresh lock: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) IsLocked(ctx context.Context, contextID agentcore.ContextID) (bool, error) {
	state, err := s.Get(ctx, contextID)
	if err != nil {
		return false, err
	}
	return state.Lock != nil && s.now().Before(state.Lock.ExpiresAt), nil
}

var _ Store = (*MongoStore)(nil)
