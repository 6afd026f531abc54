package leveldb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/QuantumFusion-network/pvm-dapp-demo/log"
	"github.com/QuantumFusion-network/pvm-dapp-demo/types"
)

const (
	identifierKey = "calc-identifier"

	submissionPrefix = "sub:"
	addressPrefix    = "addr:"
)

// ErrIdentifierMismatch the database belongs to another deployment
var ErrIdentifierMismatch = errors.New("leveldb identifier mismatch")

// HistoryStore keeps submission records: one json value per id plus an
// address index ordered newest first
type HistoryStore struct {
	db *Database
}

// OpenHistory opens the history database at path and binds it to identifier
func OpenHistory(path, identifier string) (*HistoryStore, error) {
	db, err := New(path, 16, 16, false)
	if err != nil {
		return nil, err
	}
	if err := checkIdentifier(db, identifier); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info("open history database success", "path", path)
	return &HistoryStore{db: db}, nil
}

func checkIdentifier(db *Database, identifier string) error {
	if identifier == "" {
		return nil
	}
	val, err := db.Get([]byte(identifierKey))
	if err != nil {
		if !IsNotFoundErr(err) {
			return err
		}
		log.Info("write identifier to database", "identifier", identifier)
		return db.Put([]byte(identifierKey), []byte(identifier))
	}
	if string(val) != identifier {
		return fmt.Errorf("%w: indb %q inconfig %q", ErrIdentifierMismatch, val, identifier)
	}
	return nil
}

func int64ToBytes(i int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(i))
	return buf
}

func submissionKey(id string) []byte {
	return []byte(submissionPrefix + id)
}

func addressIndexPrefix(address string) []byte {
	return []byte(addressPrefix + address + ":")
}

// addressIndexKey sorts newer submissions first
func addressIndexKey(rec *types.SubmissionRecord) []byte {
	key := addressIndexPrefix(rec.Address)
	key = append(key, int64ToBytes(math.MaxInt64-rec.Timestamp)...)
	return append(key, rec.ID...)
}

// SaveSubmission inserts or replaces rec
func (s *HistoryStore) SaveSubmission(rec *types.SubmissionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	batch.Put(submissionKey(rec.ID), data)
	batch.Put(addressIndexKey(rec), []byte(rec.ID))
	return batch.Write()
}

// GetSubmission by id
func (s *HistoryStore) GetSubmission(id string) (*types.SubmissionRecord, error) {
	data, err := s.db.Get(submissionKey(id))
	if err != nil {
		if IsNotFoundErr(err) {
			return nil, types.ErrRecordNotFound
		}
		return nil, err
	}
	var rec types.SubmissionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindSubmissions of address newest first, limit <= 0 means no limit
func (s *HistoryStore) FindSubmissions(address string, offset, limit int) ([]*types.SubmissionRecord, error) {
	iter := s.db.NewIterator(addressIndexPrefix(address), nil)
	defer iter.Release()

	var result []*types.SubmissionRecord
	for skipped := 0; iter.Next(); {
		if skipped < offset {
			skipped++
			continue
		}
		rec, err := s.GetSubmission(string(iter.Value()))
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, iter.Error()
}

// Close the database
func (s *HistoryStore) Close() error {
	err := s.db.Close()
	if err != nil {
		log.Error("close leveldb failed", "err", err)
	} else {
		log.Info("close leveldb success")
	}
	return err
}
