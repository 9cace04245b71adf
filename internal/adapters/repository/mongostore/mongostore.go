// Package mongostore implements repository.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/learnstyle/internal/adapters/repository"
	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/metrics"
)

const (
	templatesCollection   = "templates"
	submissionsCollection = "submissions"
)

// submissionDoc adds an insertion sequence used to order submissions that
// share a timestamp.
type submissionDoc struct {
	model.Submission `bson:",inline"`
	Seq              int64 `bson:"seq"`
}

// Store is a repository.Store backed by MongoDB.
type Store struct {
	client      *mongo.Client
	templates   *mongo.Collection
	submissions *mongo.Collection
	seq         atomic.Int64
	owned       bool
}

// Connect dials uri, pings the server and ensures indexes on database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s, err := New(ctx, client.Database(database))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s.client = client
	s.owned = true
	return s, nil
}

// New uses an existing database handle. Close does not disconnect it.
func New(ctx context.Context, db *mongo.Database) (*Store, error) {
	s := &Store{
		templates:   db.Collection(templatesCollection),
		submissions: db.Collection(submissionsCollection),
	}
	s.seq.Store(time.Now().UnixNano())

	_, err := s.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("ensure submission index: %w", err)
	}
	return s, nil
}

// Close disconnects the client when the store owns it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateTemplate(ctx context.Context, t model.Template) error {
	_, err := s.templates.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("template %q: %w", t.ID, repository.ErrAlreadyExists)
	}
	return storageErr("create_template", err)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	var t model.Template
	err := s.templates.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Template{}, model.NewNotFound("survey", id)
	}
	if err != nil {
		return model.Template{}, storageErr("get_template", err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]model.TemplateSummary, error) {
	cursor, err := s.templates.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, storageErr("list_templates", err)
	}
	defer cursor.Close(ctx)

	out := []model.TemplateSummary{}
	for cursor.Next(ctx) {
		var t model.Template
		if err := cursor.Decode(&t); err != nil {
			return nil, storageErr("list_templates", err)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t.Summary())
	}
	return out, storageErr("list_templates", cursor.Err())
}

func (s *Store) CreateSubmission(ctx context.Context, sub model.Submission) error {
	doc := submissionDoc{Submission: sub, Seq: s.seq.Add(1)}
	_, err := s.submissions.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("submission %q: %w", sub.ID, repository.ErrAlreadyExists)
	}
	return storageErr("create_submission", err)
}

func (s *Store) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	var doc submissionDoc
	err := s.submissions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Submission{}, model.NewNotFound("submission", id)
	}
	if err != nil {
		return model.Submission{}, storageErr("get_submission", err)
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	return doc.Submission, nil
}

func (s *Store) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	cursor, err := s.submissions.Find(ctx, bson.M{"studentId": studentID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "seq", Value: -1}}))
	if err != nil {
		return nil, storageErr("list_submissions", err)
	}
	defer cursor.Close(ctx)

	var docs []submissionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("list_submissions", err)
	}
	out := make([]model.Submission, len(docs))
	for i, d := range docs {
		d.CreatedAt = d.CreatedAt.UTC()
		out[i] = d.Submission
	}
	return out, nil
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	metrics.RecordStorageError(op)
	return model.NewStorageError(op, err)
}
