package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"lstaking/core/events"
	"lstaking/core/types"
	"lstaking/storage"
	"lstaking/storage/trie"
)

var (
	errTxClosed = errors.New("state: transaction already closed")
	errNilDB    = errors.New("state: database not configured")
)

// Manager owns the persistent key-value store. All writes go through a Tx
// obtained from Begin; nothing reaches the database until Commit.
type Manager struct {
	db storage.Database
	mu sync.Mutex
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a write overlay. Commits are serialised by the manager so the
// event sequence stays dense.
func (m *Manager) Begin() *Tx {
	return &Tx{
		manager: m,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// View runs fn against a read-only overlay that is always discarded.
func (m *Manager) View(fn func(tx *Tx) error) error {
	tx := m.Begin()
	defer tx.Discard()
	return fn(tx)
}

// StateRoot commits to the account, pool, ledger, oracle and balance records
// currently persisted. The event journal is excluded.
func (m *Manager) StateRoot() (common.Hash, error) {
	if m == nil || m.db == nil {
		return common.Hash{}, errNilDB
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return trie.Root(m.db, stateRootPrefixes...)
}

func (m *Manager) get(key []byte) ([]byte, error) {
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return value, err
}

// Tx buffers record and balance writes plus emitted events. It satisfies
// the staking engine's state interface and the bank's balance store.
type Tx struct {
	manager *Manager
	writes  map[string][]byte
	deletes map[string]struct{}
	events  []*types.Event
	closed  bool
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	k := string(key)
	if v, ok := tx.writes[k]; ok {
		return v, nil
	}
	if _, ok := tx.deletes[k]; ok {
		return nil, nil
	}
	return tx.manager.get(key)
}

func (tx *Tx) put(key, value []byte) error {
	if tx.closed {
		return errTxClosed
	}
	k := string(key)
	delete(tx.deletes, k)
	tx.writes[k] = append([]byte(nil), value...)
	return nil
}

func (tx *Tx) del(key []byte) error {
	if tx.closed {
		return errTxClosed
	}
	k := string(key)
	delete(tx.writes, k)
	tx.deletes[k] = struct{}{}
	return nil
}

// Emit records an event. Events that cannot render themselves are dropped.
func (tx *Tx) Emit(evt events.Event) {
	if tx == nil || tx.closed || evt == nil {
		return
	}
	renderer, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	if rendered := renderer.Event(); rendered != nil {
		tx.events = append(tx.events, rendered)
	}
}

// Events returns the events emitted so far.
func (tx *Tx) Events() []*types.Event {
	out := make([]*types.Event, len(tx.events))
	copy(out, tx.events)
	return out
}

// Pending reports the number of buffered writes.
func (tx *Tx) Pending() int { return len(tx.writes) + len(tx.deletes) }

// Commit flushes every buffered write and journals the emitted events in a
// single atomic batch.
func (tx *Tx) Commit() ([]*types.Event, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	m := tx.manager
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := m.db.NewBatch()
	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		batch.Put([]byte(k), tx.writes[k])
	}
	for k := range tx.deletes {
		batch.Delete([]byte(k))
	}

	if len(tx.events) > 0 {
		seq, err := m.eventSeq()
		if err != nil {
			return nil, err
		}
		for _, evt := range tx.events {
			encoded, err := encodeEvent(seq, evt)
			if err != nil {
				return nil, err
			}
			batch.Put(eventKey(seq), encoded)
			seq++
		}
		var raw [8]byte
		binary.BigEndian.PutUint64(raw[:], seq)
		batch.Put(eventSeqKey, raw[:])
	}

	if err := batch.Write(); err != nil {
		return nil, fmt.Errorf("state: commit: %w", err)
	}
	tx.closed = true
	return tx.events, nil
}

// Discard drops every buffered write. It is safe to call after Commit.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.writes = nil
	tx.deletes = nil
	tx.events = nil
}

func (m *Manager) eventSeq() (uint64, error) {
	raw, err := m.get(eventSeqKey)
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

type storedAttr struct {
	Key   string
	Value string
}

type storedEvent struct {
	Seq   uint64
	Type  string
	Attrs []storedAttr
}

func encodeEvent(seq uint64, evt *types.Event) ([]byte, error) {
	keys := make([]string, 0, len(evt.Attributes))
	for k := range evt.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	stored := storedEvent{Seq: seq, Type: evt.Type, Attrs: make([]storedAttr, 0, len(keys))}
	for _, k := range keys {
		stored.Attrs = append(stored.Attrs, storedAttr{Key: k, Value: evt.Attributes[k]})
	}
	return rlp.EncodeToBytes(stored)
}

// JournaledEvent is an event read back from the journal.
type JournaledEvent struct {
	Seq uint64 `json:"seq"`
	types.Event
}

// Events returns up to limit journaled events starting at sequence from.
func (m *Manager) Events(from uint64, limit int) ([]JournaledEvent, error) {
	if m == nil || m.db == nil {
		return nil, errNilDB
	}
	var (
		out     []JournaledEvent
		decodeE error
	)
	err := m.db.Iterate(eventPrefix, func(key, value []byte) bool {
		if len(key) != len(eventPrefix)+8 || binary.BigEndian.Uint64(key[len(eventPrefix):]) < from {
			return true
		}
		var stored storedEvent
		if err := rlp.DecodeBytes(value, &stored); err != nil {
			decodeE = err
			return false
		}
		attrs := make(map[string]string, len(stored.Attrs))
		for _, a := range stored.Attrs {
			attrs[a.Key] = a.Value
		}
		out = append(out, JournaledEvent{Seq: stored.Seq, Event: types.Event{Type: stored.Type, Attributes: attrs}})
		return limit <= 0 || len(out) < limit
	})
	if err != nil {
		return nil, err
	}
	return out, decodeE
}
