package store

import (
	"database/sql"
	"sync"

	"github.com/techmengg/wnreader/internal/store/db"
)

type Store struct {
	db        *db.DB
	dbLock    sync.Mutex // dbLock serializes write transactions
	BookCache sync.Map   // map[int]*model.Book
	JobCache  sync.Map   // map[int]*model.ImportJob
}

func NewStore(db *db.DB) *Store {
	return &Store{
		db: db,
	}
}

func (s *Store) DBStats() sql.DBStats {
	return s.db.Stats()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) Close() error {
	return s.db.Close()
}
