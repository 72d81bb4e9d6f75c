// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// =============================================================================
// MESSAGE ARCHIVE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS lines (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	channel    TEXT NOT NULL,
	written_at TIMESTAMP NOT NULL,
	line       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_lines_session ON lines(session_id);
CREATE INDEX IF NOT EXISTS idx_lines_written ON lines(written_at);
`

// queueSize bounds the pending write buffer. When full, new lines are
// dropped rather than stalling the caller.
const queueSize = 256

// ansiPattern strips terminal escape sequences before lines hit disk.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Line is one archived output line.
type Line struct {
	ID        string
	SessionID string
	Channel   string
	WrittenAt time.Time
	Text      string
}

// Archive appends output lines to a SQLite database. One Archive is
// opened per client run; all lines written during the run share a
// session id.
type Archive struct {
	db        *sql.DB
	sessionID string
	channel   string

	queue chan Line
	done  chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open creates or opens the archive database at path and starts the
// background writer.
func Open(path, channel string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	a := &Archive{
		db:        db,
		sessionID: uuid.NewString(),
		channel:   channel,
		queue:     make(chan Line, queueSize),
		done:      make(chan struct{}),
	}

	a.wg.Add(1)
	go a.writer()
	return a, nil
}

// SessionID returns the id shared by all lines from this run.
func (a *Archive) SessionID() string {
	return a.sessionID
}

// Append queues one line for archiving. Never blocks; lines are dropped
// when the queue is full. Styling escapes are stripped first.
func (a *Archive) Append(line string) {
	entry := Line{
		ID:        uuid.NewString(),
		SessionID: a.sessionID,
		Channel:   a.channel,
		WrittenAt: time.Now(),
		Text:      ansiPattern.ReplaceAllString(line, ""),
	}
	select {
	case a.queue <- entry:
	default:
	}
}

// writer drains the queue into the database until Close.
func (a *Archive) writer() {
	defer a.wg.Done()
	for {
		select {
		case entry := <-a.queue:
			a.insert(entry)
		case <-a.done:
			// Flush whatever is still queued.
			for {
				select {
				case entry := <-a.queue:
					a.insert(entry)
				default:
					return
				}
			}
		}
	}
}

func (a *Archive) insert(entry Line) {
	// An individual failed insert loses one line, not the session.
	_, _ = a.db.Exec(
		`INSERT INTO lines (id, session_id, channel, written_at, line) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.SessionID, entry.Channel, entry.WrittenAt, entry.Text,
	)
}

// Close flushes pending lines and closes the database.
func (a *Archive) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
		err = a.db.Close()
	})
	return err
}

// =============================================================================
// QUERIES
// =============================================================================

// Recent returns the newest lines across all sessions, oldest first,
// capped at limit.
func (a *Archive) Recent(limit int) ([]Line, error) {
	rows, err := a.db.Query(
		`SELECT id, session_id, channel, written_at, line
		 FROM lines ORDER BY written_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	lines, err := scanLines(rows)
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines, nil
}

// Search returns lines whose text contains the query, oldest first.
func (a *Archive) Search(query string, limit int) ([]Line, error) {
	rows, err := a.db.Query(
		`SELECT id, session_id, channel, written_at, line
		 FROM lines WHERE line LIKE ? ORDER BY written_at ASC LIMIT ?`,
		"%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search archive: %w", err)
	}
	defer rows.Close()
	return scanLines(rows)
}

func scanLines(rows *sql.Rows) ([]Line, error) {
	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Channel, &l.WrittenAt, &l.Text); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
