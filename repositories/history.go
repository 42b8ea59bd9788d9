//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=../mocks/mock_history_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"campus-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IHistoryRepository interface {
	Store(record HistoryRecord) error
	Recent(scope string, cursor *string) ([]HistoryRecord, *string, error)
}

// HistoryRepository persists delivered chat and notification records in
// BadgerDB, scoped per conversation so a client can page one conversation
// without scanning the others.
type HistoryRepository struct {
	db           *badger.DB
	log          *slog.Logger
	limitRecords *int
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger, limitRecords *int) HistoryRepository {
	return HistoryRepository{db: db, log: log, limitRecords: limitRecords}
}

// HistoryRecord is the durable form of a relayed chat or notification.
// Values are stored as JSON; the key carries scope and ordering.
type HistoryRecord struct {
	ID      uuid.UUID     `json:"id"`
	Scope   string        `json:"scope"`
	Kind    string        `json:"kind"`
	Sender  domain.Sender `json:"sender"`
	Title   string        `json:"title,omitempty"`
	Body    string        `json:"body"`
	MsgType string        `json:"msg_type,omitempty"`
	At      time.Time     `json:"at"`
}

// Store persists one record. The key is "hist:{scope}:{timestamp_padded}:{uuid}":
//  1. The 19-digit zero-padded nanosecond timestamp makes lexicographic
//     order chronological within a scope.
//  2. The trailing UUID disambiguates two records landing on the same
//     nanosecond.
func (r HistoryRepository) Store(record HistoryRecord) error {
	key := fmt.Sprintf("hist:%s:%019d:%s",
		record.Scope,
		record.At.UnixNano(),
		record.ID,
	)
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// Recent pages a scope's records newest-first. A nil cursor starts from the
// most recent record; passing back the returned cursor resumes just past
// the last record of the previous page.
func (r HistoryRepository) Recent(scope string, cursor *string) ([]HistoryRecord, *string, error) {
	var rawRecords [][]byte
	var lastKey string
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("hist:%s:", scope)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitRecords != nil && len(rawRecords) == *r.limitRecords {
				r.log.Debug(fmt.Sprintf("Maximum of %d records reached", *r.limitRecords))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				rawRecords = append(rawRecords, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	records := make([]HistoryRecord, 0, len(rawRecords))
	for _, b := range rawRecords {
		var record HistoryRecord
		if err = json.Unmarshal(b, &record); err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}
	return records, lo.ToPtr(lastKey), nil
}
