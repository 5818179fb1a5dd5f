package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vibast-solutions/ms-go-website/app/entity"
)

const submissionsCollection = "submissions"

type SubmissionRepository struct {
	collection *mongo.Collection
}

// NewSubmissionRepository constructs a repository backed by MongoDB.
func NewSubmissionRepository(db *mongo.Database) *SubmissionRepository {
	return &SubmissionRepository{collection: db.Collection(submissionsCollection)}
}

// Save stores a form submission.
func (r *SubmissionRepository) Save(ctx context.Context, submission *entity.Submission) error {
	if _, err := r.collection.InsertOne(ctx, submission); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListRecent returns the newest submissions of the given type, or of any type when empty.
func (r *SubmissionRepository) ListRecent(ctx context.Context, submissionType string, limit int64) ([]entity.Submission, error) {
	filter := bson.D{}
	if submissionType != "" {
		filter = bson.D{{Key: "type", Value: submissionType}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find submissions: %w", err)
	}

	var submissions []entity.Submission
	if err := cursor.All(ctx, &submissions); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}
	return submissions, nil
}
