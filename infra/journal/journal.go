// Package journal is the durable event outbox. Every event the exchange
// emits is appended here synchronously; the broadcaster drains pending
// records to Kafka and acks them, so a crash between emit and publish
// never loses an event.
package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/sedoy107/iot-dex/domain/event"
	"github.com/sedoy107/iot-dex/infra/sequence"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

// Record is one journaled event.
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Name        string
	Payload     []byte
}

// binary value encoding: [state:1][retries:4][lastAttempt:8][nameLen:2][name][payload]
func encodeRecord(r Record) []byte {
	buf := make([]byte, 1+4+8+2, 1+4+8+2+len(r.Name)+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	binary.BigEndian.PutUint16(buf[13:15], uint16(len(r.Name)))
	buf = append(buf, r.Name...)
	buf = append(buf, r.Payload...)
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	if len(b) < 15 {
		return Record{}, errors.New("journal: record too short")
	}
	nameLen := int(binary.BigEndian.Uint16(b[13:15]))
	if len(b) < 15+nameLen {
		return Record{}, errors.New("journal: truncated record name")
	}
	return Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Name:        string(b[15 : 15+nameLen]),
		Payload:     append([]byte(nil), b[15+nameLen:]...),
	}, nil
}

// Journal is a pebble-backed outbox. Appends are synced to disk before
// returning.
type Journal struct {
	mu  sync.Mutex
	db  *pebble.DB
	seq *sequence.Sequencer
}

func Open(dir string) (*Journal, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // durability is the point
	})
	if err != nil {
		return nil, errors.Wrap(err, "journal: open")
	}
	j := &Journal{db: db, seq: sequence.New(0)}
	if err := j.recoverSeq(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// recoverSeq positions the sequencer one past the highest stored record.
func (j *Journal) recoverSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return errors.Wrap(err, "journal: recover")
	}
	defer iter.Close()

	if iter.Last() && iter.Valid() {
		id, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		j.seq.Reset(id + 1)
	}
	return iter.Error()
}

// Publish appends an event as a NEW record. Implements service.Sink.
func (j *Journal) Publish(ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrapf(err, "journal: marshal %s", ev.Name())
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := Record{
		Seq:   j.seq.Next(),
		State: StateNew,
		Name:  ev.Name(),
	}
	rec.Payload = payload
	return errors.Wrap(j.db.Set(keyFor(rec.Seq), encodeRecord(rec), pebble.Sync), "journal: append")
}

// MarkSent transitions a record to SENT and bumps its retry count.
func (j *Journal) MarkSent(seq uint64) error {
	return j.update(seq, StateSent)
}

// MarkAcked transitions a record to ACKED after the broker confirmed it.
func (j *Journal) MarkAcked(seq uint64) error {
	return j.update(seq, StateAcked)
}

func (j *Journal) update(seq uint64, state State) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	val, closer, err := j.db.Get(keyFor(seq))
	if err != nil {
		return errors.Wrapf(err, "journal: update %d", seq)
	}
	rec, derr := decodeRecord(val)
	_ = closer.Close()
	if derr != nil {
		return derr
	}
	rec.Seq = seq
	rec.State = state
	rec.LastAttempt = time.Now().UnixNano()
	if state == StateSent {
		rec.Retries++
	}
	return errors.Wrapf(j.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync), "journal: update %d", seq)
}

// Delete removes an ACKED record during compaction.
func (j *Journal) Delete(seq uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return errors.Wrapf(j.db.Delete(keyFor(seq), pebble.Sync), "journal: delete %d", seq)
}

// Get returns one record by sequence.
func (j *Journal) Get(seq uint64) (Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	val, closer, err := j.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, errors.Wrapf(err, "journal: get %d", seq)
	}
	defer closer.Close()
	rec, err := decodeRecord(val)
	if err != nil {
		return Record{}, err
	}
	rec.Seq = seq
	return rec, nil
}

// ScanPending visits every NEW or SENT record in sequence order. SENT records
// are included so records stranded by a crash between send and ack get
// republished (consumers must dedupe on seq).
func (j *Journal) ScanPending(fn func(rec Record) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	iter, err := j.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return errors.Wrap(err, "journal: scan")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State == StateAcked {
			continue
		}
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec.Seq = seq
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("event/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("event/"))), "%d", &seq)
	return seq, errors.Wrap(err, "journal: bad key")
}
