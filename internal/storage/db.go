package storage

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var ErrNotFound = errors.New("key not found")

// Database is the key-value store the round state lives in. Iteration
// visits keys in raw byte order.
type Database interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// Iterate calls fn for every key under prefix in ascending byte order.
	// Key and value are only valid for the duration of the call.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
	// Write applies the batch atomically.
	Write(batch *leveldb.Batch) error
	Close() error
}

// LevelDB is a Database backed by goleveldb, either on disk or in memory.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// NewMemDB returns a LevelDB instance that keeps everything in memory.
func NewMemDB() *LevelDB {
	db, err := leveldb.Open(lvlstorage.NewMemStorage(), nil)
	if err != nil {
		// A memory storage cannot be locked or corrupted at open time.
		panic(err)
	}
	return &LevelDB{db: db}
}

func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

func (ldb *LevelDB) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	iter := ldb.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (ldb *LevelDB) Write(batch *leveldb.Batch) error {
	return ldb.db.Write(batch, nil)
}

// Close closes the database connection.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}
