package archive

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/j13tw/Mycodo/pubsub"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	timestamp TEXT NOT NULL,
	topic TEXT NOT NULL,
	device TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS events_timestamp ON events (timestamp);
CREATE INDEX IF NOT EXISTS events_device ON events (device, timestamp);
`

// Archive is the sqlite event history.
type Archive struct {
	db *sql.DB
}

func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "opening archive")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating archive schema")
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Insert(ev *pubsub.Event, device string) error {
	_, err := a.db.Exec(
		"INSERT INTO events (timestamp, topic, device, payload) VALUES (?, ?, ?, ?)",
		ev.Timestamp.UTC().Format(pubsub.TimeFormat), ev.Topic, device, ev.String())
	return errors.Wrap(err, "inserting event")
}

// Prune deletes events older than the cutoff, returning the number
// removed.
func (a *Archive) Prune(before time.Time) (int64, error) {
	result, err := a.db.Exec("DELETE FROM events WHERE timestamp < ?",
		before.UTC().Format(pubsub.TimeFormat))
	if err != nil {
		return 0, errors.Wrap(err, "pruning events")
	}
	return result.RowsAffected()
}

// History returns the most recent events for a device, newest first.
func (a *Archive) History(device string, since time.Time, limit int) ([]*pubsub.Event, error) {
	rows, err := a.db.Query(
		"SELECT payload FROM events WHERE device = ? AND timestamp >= ? ORDER BY timestamp DESC LIMIT ?",
		device, since.UTC().Format(pubsub.TimeFormat), limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying history")
	}
	defer rows.Close()

	var events []*pubsub.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		if ev := pubsub.Parse(payload, ""); ev != nil {
			events = append(events, ev)
		}
	}
	return events, rows.Err()
}

func (a *Archive) Close() error {
	return a.db.Close()
}
