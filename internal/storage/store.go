package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"luckyroll/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	keyOwner        = []byte("owner")
	keyConfigs      = []byte("configs")
	keyPrizes       = []byte("prizes")
	keyDistribution = []byte("distribute_prizes")
	keyEndRound     = []byte("end_round")

	prefixWhitelist = []byte("whitelist/")
	prefixAttendee  = []byte("attendee/")
)

// Map entries are keyed by the raw 20 address bytes, so iterating a prefix
// yields ascending address order.
func addressKey(prefix []byte, addr common.Address) []byte {
	key := make([]byte, 0, len(prefix)+common.AddressLength)
	key = append(key, prefix...)
	return append(key, addr.Bytes()...)
}

// Store exposes the round records kept in a Database.
type Store struct {
	db Database
}

func NewStore(db Database) *Store {
	return &Store{db: db}
}

func (s *Store) load(key []byte, v any) error {
	raw, err := s.db.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// Owner returns ErrNotFound until the round has been instantiated.
func (s *Store) Owner() (common.Address, error) {
	var owner common.Address
	err := s.load(keyOwner, &owner)
	return owner, err
}

func (s *Store) Configs() (models.Configs, error) {
	var cfg models.Configs
	err := s.load(keyConfigs, &cfg)
	return cfg, err
}

func (s *Store) Prizes() (models.Prizes, error) {
	var prizes models.Prizes
	err := s.load(keyPrizes, &prizes)
	return prizes, err
}

func (s *Store) Distribution() ([]models.DistributePrize, error) {
	var dist []models.DistributePrize
	if err := s.load(keyDistribution, &dist); err != nil {
		return nil, err
	}
	if dist == nil {
		dist = []models.DistributePrize{}
	}
	return dist, nil
}

func (s *Store) RoundEnded() (bool, error) {
	var ended bool
	err := s.load(keyEndRound, &ended)
	return ended, err
}

// WhitelistStatus reports the entry for addr and whether it exists.
func (s *Store) WhitelistStatus(addr common.Address) (models.Status, bool, error) {
	var status models.Status
	err := s.load(addressKey(prefixWhitelist, addr), &status)
	if errors.Is(err, ErrNotFound) {
		return models.Status{}, false, nil
	}
	if err != nil {
		return models.Status{}, false, err
	}
	return status, true, nil
}

// Whitelist returns every entry in ascending address order.
func (s *Store) Whitelist() ([]models.WhitelistEntry, error) {
	entries := []models.WhitelistEntry{}
	err := s.db.Iterate(prefixWhitelist, func(key, value []byte) error {
		var status models.Status
		if err := json.Unmarshal(value, &status); err != nil {
			return fmt.Errorf("decode whitelist entry: %w", err)
		}
		entries = append(entries, models.WhitelistEntry{
			Address: common.BytesToAddress(key[len(prefixWhitelist):]),
			Status:  status,
		})
		return nil
	})
	return entries, err
}

// Attendee reports the attendee registered under addr and whether it exists.
func (s *Store) Attendee(addr common.Address) (models.Attendee, bool, error) {
	var attendee models.Attendee
	err := s.load(addressKey(prefixAttendee, addr), &attendee)
	if errors.Is(err, ErrNotFound) {
		return models.Attendee{}, false, nil
	}
	if err != nil {
		return models.Attendee{}, false, err
	}
	return attendee, true, nil
}

// Attendees returns every attendee in ascending address order.
func (s *Store) Attendees() ([]models.Attendee, error) {
	attendees := []models.Attendee{}
	err := s.db.Iterate(prefixAttendee, func(_, value []byte) error {
		var attendee models.Attendee
		if err := json.Unmarshal(value, &attendee); err != nil {
			return fmt.Errorf("decode attendee: %w", err)
		}
		attendees = append(attendees, attendee)
		return nil
	})
	return attendees, err
}

// Begin starts a write transaction. Nothing reaches the database until
// Commit, and Commit applies every staged write at once.
func (s *Store) Begin() *Tx {
	return &Tx{store: s, batch: new(leveldb.Batch)}
}

// Tx stages writes in a single batch.
type Tx struct {
	store *Store
	batch *leveldb.Batch
	err   error
}

func (tx *Tx) put(key []byte, v any) {
	if tx.err != nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		tx.err = fmt.Errorf("encode %s: %w", key, err)
		return
	}
	tx.batch.Put(key, raw)
}

func (tx *Tx) clear(prefix []byte) {
	if tx.err != nil {
		return
	}
	tx.err = tx.store.db.Iterate(prefix, func(key, _ []byte) error {
		tx.batch.Delete(append([]byte(nil), key...))
		return nil
	})
}

func (tx *Tx) SaveOwner(owner common.Address) { tx.put(keyOwner, owner) }

func (tx *Tx) SaveConfigs(cfg models.Configs) { tx.put(keyConfigs, cfg) }

func (tx *Tx) SavePrizes(prizes models.Prizes) {
	if prizes.Prizes == nil {
		prizes.Prizes = []string{}
	}
	tx.put(keyPrizes, prizes)
}

func (tx *Tx) SaveDistribution(dist []models.DistributePrize) {
	if dist == nil {
		dist = []models.DistributePrize{}
	}
	tx.put(keyDistribution, dist)
}

func (tx *Tx) SaveRoundEnded(ended bool) { tx.put(keyEndRound, ended) }

func (tx *Tx) SaveWhitelistStatus(addr common.Address, status models.Status) {
	tx.put(addressKey(prefixWhitelist, addr), status)
}

func (tx *Tx) SaveAttendee(attendee models.Attendee) {
	tx.put(addressKey(prefixAttendee, attendee.Address), attendee)
}

// ClearWhitelist deletes every whitelist entry present when it is called.
func (tx *Tx) ClearWhitelist() { tx.clear(prefixWhitelist) }

// ClearAttendees deletes every attendee present when it is called.
func (tx *Tx) ClearAttendees() { tx.clear(prefixAttendee) }

// Commit writes the staged batch. A Tx must not be reused afterwards.
func (tx *Tx) Commit() error {
	if tx.err != nil {
		return tx.err
	}
	if tx.batch.Len() == 0 {
		return nil
	}
	return tx.store.db.Write(tx.batch)
}
