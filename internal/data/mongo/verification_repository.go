// Package mongo provides the MongoDB implementation of the verification audit trail.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/loan-slip-reconciler/internal/domain/shared"
	"github.com/loan-slip-reconciler/internal/domain/verification"
)

const (
	// VerificationCollectionName is the name of the audit collection in MongoDB
	VerificationCollectionName = "slip_verifications"
)

// VerificationRepository implements the verification.Repository interface for MongoDB
type VerificationRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

var _ verification.Repository = (*VerificationRepository)(nil)

// NewVerificationRepository creates a new MongoDB verification repository
func NewVerificationRepository(logger *slog.Logger, db *mongo.Database) *VerificationRepository {
	return &VerificationRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the unique submission index and the per-contract listing index
func (r *VerificationRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(VerificationCollectionName)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "submission_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "contract_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		r.logger.Error("Failed to create verification indexes", "error", err)
		return fmt.Errorf("failed to create verification indexes: %w", err)
	}

	return nil
}

// Create stores a new verification record.
// Returns ErrDuplicateRecord if the submission is already recorded.
func (r *VerificationRepository) Create(ctx context.Context, record *verification.Record) error {
	collection := r.db.Collection(VerificationCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return verification.ErrDuplicateRecord{SubmissionID: record.SubmissionID}
		}
		r.logger.Error("Failed to create verification record",
			"submission_id", record.SubmissionID.String(),
			"error", err)
		return fmt.Errorf("failed to create verification record: %w", err)
	}

	return nil
}

// Save replaces the record of the submission, inserting it when absent
func (r *VerificationRepository) Save(ctx context.Context, record *verification.Record) error {
	collection := r.db.Collection(VerificationCollectionName)

	filter := bson.M{"submission_id": record.SubmissionID}
	_, err := collection.ReplaceOne(ctx, filter, record, options.Replace().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to save verification record",
			"submission_id", record.SubmissionID.String(),
			"error", err)
		return fmt.Errorf("failed to save verification record: %w", err)
	}

	return nil
}

// GetBySubmissionID retrieves a record by submission id.
// Returns ErrRecordNotFound if the submission is unknown.
func (r *VerificationRepository) GetBySubmissionID(ctx context.Context, submissionID uuid.UUID) (*verification.Record, error) {
	collection := r.db.Collection(VerificationCollectionName)

	filter := bson.M{"submission_id": submissionID}
	var record verification.Record
	err := collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, verification.ErrRecordNotFound{SubmissionID: submissionID}
		}
		r.logger.Error("Failed to get verification record",
			"submission_id", submissionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get verification record: %w", err)
	}

	return &record, nil
}

// GetByContractID retrieves a contract's verification history, newest first
func (r *VerificationRepository) GetByContractID(ctx context.Context, contractID uuid.UUID, limit, offset int) ([]*verification.Record, error) {
	collection := r.db.Collection(VerificationCollectionName)

	filter := bson.M{"contract_id": contractID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get verification records",
			"contract_id", contractID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get verification records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*verification.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode verification records",
			"contract_id", contractID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode verification records: %w", err)
	}

	return records, nil
}

// CountByContractID counts the verification records of a contract
func (r *VerificationRepository) CountByContractID(ctx context.Context, contractID uuid.UUID) (int64, error) {
	collection := r.db.Collection(VerificationCollectionName)

	filter := bson.M{"contract_id": contractID}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count verification records",
			"contract_id", contractID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count verification records: %w", err)
	}

	return count, nil
}

// UpdateStatus moves a record through the processing states. Terminal states also
// stamp processed_at. Returns ErrRecordNotFound if the record doesn't exist.
func (r *VerificationRepository) UpdateStatus(ctx context.Context, submissionID uuid.UUID, status shared.VerificationStatus, reason shared.FailureReason) error {
	collection := r.db.Collection(VerificationCollectionName)

	set := bson.M{
		"status":         status,
		"failure_reason": reason,
	}
	if status.IsTerminal() {
		set["processed_at"] = time.Now().UTC()
	}

	filter := bson.M{"submission_id": submissionID}
	result, err := collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Failed to update verification status",
			"submission_id", submissionID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update verification status: %w", err)
	}

	if result.MatchedCount == 0 {
		return verification.ErrRecordNotFound{SubmissionID: submissionID}
	}

	return nil
}
