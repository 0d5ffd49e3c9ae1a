package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/calendo/core/internal/domain/entities"
	"github.com/calendo/core/internal/ports"
)

// TodoCollection is the collection todos are stored in.
const TodoCollection = "todos"

type todoDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Text     string             `bson:"text"`
	Priority string             `bson:"priority"`
	Date     time.Time          `bson:"date"`
	Category string             `bson:"category"`
	IsDone   bool               `bson:"isDone"`
}

func (d *todoDocument) toEntity() *entities.Todo {
	return &entities.Todo{
		ID:       d.ID.Hex(),
		Text:     d.Text,
		Priority: entities.Priority(d.Priority),
		Category: d.Category,
		Date:     d.Date,
		IsDone:   d.IsDone,
	}
}

// MongoTodoRepository implements the TodoRepository interface on MongoDB
type MongoTodoRepository struct {
	coll *mongo.Collection
}

// NewMongoTodoRepository creates a new todo repository backed by db
func NewMongoTodoRepository(db *mongo.Database) *MongoTodoRepository {
	return &MongoTodoRepository{coll: db.Collection(TodoCollection)}
}

var _ ports.TodoRepository = (*MongoTodoRepository)(nil)

// EnsureIndexes creates the unique (text, category) index backing the upsert.
func (r *MongoTodoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "text", Value: 1}, {Key: "category", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("text_category_unique"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: -1}},
			Options: options.Index().SetName("date_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure todo indexes: %w", err)
	}
	return nil
}

func (r *MongoTodoRepository) List(ctx context.Context) ([]*entities.Todo, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "date", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer cur.Close(ctx)

	todos := make([]*entities.Todo, 0)
	for cur.Next(ctx) {
		var doc todoDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode todo: %w", err)
		}
		todos = append(todos, doc.toEntity())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}

	return todos, nil
}

func (r *MongoTodoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, entities.ErrTodoNotFound
	}

	var doc todoDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "get todo by id")
	}
	return doc.toEntity(), nil
}

func (r *MongoTodoRepository) UpsertByTextAndCategory(ctx context.Context, in entities.UpsertInput) (*entities.Todo, error) {
	filter := bson.M{"text": in.Text, "category": in.Category}
	update := bson.M{
		"$set": bson.M{
			"text":     in.Text,
			"priority": string(in.Priority),
			"category": in.Category,
			"date":     in.Date,
		},
		"$setOnInsert": bson.M{"isDone": false},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc todoDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, fmt.Errorf("upsert todo: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *MongoTodoRepository) SetDone(ctx context.Context, id string, isDone bool) (*entities.Todo, error) {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"isDone": isDone}}, "set todo done")
}

func (r *MongoTodoRepository) Toggle(ctx context.Context, id string) (*entities.Todo, error) {
	negate := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "isDone", Value: bson.D{{Key: "$not", Value: bson.A{"$isDone"}}}}}}},
	}
	return r.updateOne(ctx, id, negate, "toggle todo")
}

func (r *MongoTodoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, entities.ErrTodoNotFound
	}

	var doc todoDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, notFoundOr(err, "delete todo")
	}
	return doc.toEntity(), nil
}

func (r *MongoTodoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *MongoTodoRepository) updateOne(ctx context.Context, id string, update interface{}, op string) (*entities.Todo, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, entities.ErrTodoNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc todoDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&doc); err != nil {
		return nil, notFoundOr(err, op)
	}
	return doc.toEntity(), nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return entities.ErrTodoNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
