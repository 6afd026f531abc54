package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

const (
	maxCountOfResults = 1000
)

// SaveSubmission upsert by id
func (s *Store) SaveSubmission(rec *types.SubmissionRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := s.collSubmissions.ReplaceOne(context.Background(), bson.M{"_id": rec.ID}, rec, opts)
	if err != nil {
		log.Warn("[mongodb] save submission failed", "id", rec.ID, "err", err)
	} else {
		log.Debug("[mongodb] save submission success", "id", rec.ID, "status", rec.Status)
	}
	return mgoError(err)
}

// GetSubmission by id
func (s *Store) GetSubmission(id string) (*types.SubmissionRecord, error) {
	var rec types.SubmissionRecord
	err := s.collSubmissions.FindOne(context.Background(), bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		return nil, mgoError(err)
	}
	return &rec, nil
}

// FindSubmissions of address newest first
func (s *Store) FindSubmissions(address string, offset, limit int) ([]*types.SubmissionRecord, error) {
	opts := findOptions(offset, limit)
	ctx := context.Background()
	cur, err := s.collSubmissions.Find(ctx, bson.M{"address": address}, opts)
	if err != nil {
		return nil, mgoError(err)
	}
	result := make([]*types.SubmissionRecord, 0, 20)
	if err = cur.All(ctx, &result); err != nil {
		return nil, mgoError(err)
	}
	return result, nil
}

func findOptions(offset, limit int) *options.FindOptions {
	if limit <= 0 || limit > maxCountOfResults {
		limit = maxCountOfResults
	}
	if offset < 0 {
		offset = 0
	}
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
}
