// Package reflog journals every ref mutation made through the contribution
// manager so the history of a branch can be inspected after it is amended,
// merged or deleted.
package reflog

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Op string

const (
	OpCreate  Op = "create"
	OpCommit  Op = "commit"
	OpAmend   Op = "amend"
	OpMerge   Op = "merge"
	OpDelete  Op = "delete"
	OpPublish Op = "publish"
)

// Entry is one ref transition. Old is empty for a created ref and New is
// empty for a deleted one.
type Entry struct {
	ID    uuid.UUID `json:"id"`
	Repo  string    `json:"repo"`
	Ref   string    `json:"ref"`
	Old   string    `json:"old,omitempty"`
	New   string    `json:"new,omitempty"`
	Op    Op        `json:"op"`
	Actor string    `json:"actor,omitempty"`
	At    time.Time `json:"at"`
}

type Journal struct {
	db *badger.DB
}

// Open opens the journal stored in dir. An empty dir keeps the journal in memory.
func Open(dir string, logger *zap.Logger) (*Journal, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if logger == nil {
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(badgerLogger{logger.Named("reflog").Sugar()})
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open reflog: %w", err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func prefix(repo, ref string) []byte {
	return []byte(fmt.Sprintf("reflog:%s:%s:", repo, ref))
}

// Record stores e, filling in ID and At when they are zero.
func (j *Journal) Record(e Entry) error {
	if e.Repo == "" || e.Ref == "" {
		return errors.New("reflog: repo and ref are required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}
	key := append(prefix(e.Repo, e.Ref), []byte(fmt.Sprintf("%020d:%s", e.At.UnixNano(), e.ID))...)
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// History returns the entries of ref newest first. A limit of zero or less
// returns everything.
func (j *Journal) History(repo, ref string, limit int) ([]Entry, error) {
	p := prefix(repo, ref)
	var out []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = p
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(append([]byte{}, p...), 0xff)); it.ValidForPrefix(p); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading reflog: %w", err)
	}
	return out, nil
}

// badgerLogger routes badger's logging through zap.
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.Warnf(format, args...)
}
