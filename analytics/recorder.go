/*
 * This file is part of Anomos.
 *
 * Anomos is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * Anomos is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with Anomos.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package analytics is an optional, best-effort audit trail of tracker
// events (peer churn, onion construction, NID exhaustion) flushed to MySQL.
// It is never on the request-latency critical path: every Record* call only
// ever enqueues onto a buffered channel, mirroring the flush-channel
// discipline the tracker uses for its own state persistence. Leaving
// analytics_dsn unset yields a nil *Recorder, and every method on it is a
// no-op -- callers never need to branch on whether analytics is enabled.
package analytics

import (
	"bytes"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/lingyu0w0/Anomos/log"
	"github.com/lingyu0w0/Anomos/util"
)

// eventChannelSize bounds how many pending events may queue before a
// Record* call blocks; mirrors the teacher's per-kind flush-buffer sizing,
// collapsed to one channel since analytics events share a single table.
const eventChannelSize = 2048

// Recorder batches tracker events into periodic multi-row INSERTs.
type Recorder struct {
	db *sql.DB

	events     chan *bytes.Buffer
	bufferPool *util.BufferPool

	terminate atomic.Bool
	wg        sync.WaitGroup
}

// New opens a Recorder against dsn and starts its background flush loop. An
// empty dsn is not an error: it returns (nil, nil), and every method on a
// nil *Recorder is a safe no-op.
func New(dsn string) (*Recorder, error) {
	if dsn == "" {
		return nil, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("analytics: open: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("analytics: ping: %w", err)
	}

	r := &Recorder{
		db:         db,
		events:     make(chan *bytes.Buffer, eventChannelSize),
		bufferPool: util.NewBufferPool(64),
	}

	r.wg.Add(1)
	go r.flushLoop()

	return r, nil
}

// Close stops accepting new events, flushes what remains, and closes the
// underlying connection. Safe to call on a nil Recorder.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}

	r.terminate.Store(true)
	close(r.events)
	r.wg.Wait()

	return r.db.Close()
}

// RecordChurn notes that count peers were expired or disconnected in one
// maintenance sweep.
func (r *Recorder) RecordChurn(count int) {
	r.enqueue("churn", strconv.Itoa(count))
}

// RecordOnionBuilt notes one tracking code was issued for a path of the
// given length (the hops after the source, destination included, i.e.
// len(path)-1).
func (r *Recorder) RecordOnionBuilt(chainLen int) {
	r.enqueue("onion_built", strconv.Itoa(chainLen))
}

// RecordNidExhaustion notes one Connect attempt failed for lack of a shared
// available NID.
func (r *Recorder) RecordNidExhaustion() {
	r.enqueue("nid_exhaustion", "")
}

func (r *Recorder) enqueue(eventType, detail string) {
	if r == nil || r.terminate.Load() {
		return
	}

	buf := r.bufferPool.Take()

	buf.WriteString("(FROM_UNIXTIME(")
	buf.WriteString(strconv.FormatInt(time.Now().Unix(), 10))
	buf.WriteString("),'")
	buf.WriteString(eventType)
	buf.WriteString("','")
	buf.WriteString(detail)
	buf.WriteString("')")

	r.events <- buf
}

// flushLoop mirrors the teacher's flushSnatches shape: drain whatever is
// queued right now into one multi-row INSERT, sleep briefly when the
// channel was under half full, and exit once terminate is set and the
// channel has drained.
func (r *Recorder) flushLoop() {
	defer r.wg.Done()

	var query bytes.Buffer

	for {
		length := util.Max(1, len(r.events))

		query.Reset()
		query.WriteString("INSERT INTO tracker_events (ts, event_type, detail) VALUES\n")

		count := 0
		drained := false

		for ; count < length; count++ {
			b, ok := <-r.events
			if !ok {
				drained = true
				break
			}

			if count > 0 {
				query.WriteRune(',')
			}

			query.Write(b.Bytes())
			r.bufferPool.Give(b)
		}

		if count > 0 {
			if _, err := r.db.Exec(query.String()); err != nil {
				log.Error.Printf("analytics: flush failed: %v", err)
			}
		}

		if drained || (r.terminate.Load() && len(r.events) == 0) {
			return
		}

		if length < eventChannelSize/2 {
			time.Sleep(time.Second)
		}
	}
}
