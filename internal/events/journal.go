// Package events records run history as an append-only journal in an
// embedded NATS JetStream stream. Each run appends a started event, one
// event per finished hook, and a finished event; history commands
// rebuild run records by replaying the stream.
package events

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/gosimple/slug"
	ierr "github.com/mark3labs/latch/internal/errors"
	"github.com/mark3labs/latch/internal/logger"
	"github.com/mark3labs/latch/internal/runner"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	streamName = "latch_runs"

	// Event kinds, also the final subject token.
	KindStarted  = "started"
	KindHook     = "hook"
	KindFinished = "finished"
)

// ErrNotFound is returned when no journal entries exist for a run ID.
var ErrNotFound = errors.New("run not found")

// Event is one journal entry. Events are published to subjects
// following the pattern latch.{runID}.{kind}.
type Event struct {
	Timestamp time.Time          `json:"timestamp"`
	RunID     string             `json:"run_id"`
	Kind      string             `json:"kind"`
	Stage     string             `json:"stage,omitempty"`
	Branch    string             `json:"branch,omitempty"`
	Hash      string             `json:"hash,omitempty"`
	Files     int                `json:"files,omitempty"`
	Hook      *runner.HookResult `json:"hook,omitempty"`
	Failed    bool               `json:"failed,omitempty"`
	Duration  time.Duration      `json:"duration,omitempty"`
}

// Run is one recorded execution, rebuilt by replaying its events.
// Hooks appear in finish order. Complete stays false for runs that were
// interrupted before their finished event landed.
type Run struct {
	RunID      string              `json:"run_id"`
	Stage      string              `json:"stage"`
	Branch     string              `json:"branch,omitempty"`
	Hash       string              `json:"hash,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at,omitempty"`
	Files      int                 `json:"files"`
	Hooks      []runner.HookResult `json:"hooks,omitempty"`
	Failed     bool                `json:"failed"`
	Complete   bool                `json:"complete"`
	Duration   time.Duration       `json:"duration,omitempty"`
}

// Apply folds one event into the run. Events must arrive oldest first,
// which stream order guarantees.
func (r *Run) Apply(ev Event) {
	switch ev.Kind {
	case KindStarted:
		r.Stage = ev.Stage
		r.Branch = ev.Branch
		r.Hash = ev.Hash
		r.Files = ev.Files
		r.StartedAt = ev.Timestamp
	case KindHook:
		if ev.Hook != nil {
			r.Hooks = append(r.Hooks, *ev.Hook)
		}
	case KindFinished:
		r.Complete = true
		r.Failed = ev.Failed
		r.Duration = ev.Duration
		r.FinishedAt = ev.Timestamp
		if r.Stage == "" {
			r.Stage = ev.Stage
		}
		if r.Files == 0 {
			r.Files = ev.Files
		}
	}
}

// Journal owns the embedded server, the in-process connection, and the
// stream. It satisfies runner.EventSink; publish failures are logged
// rather than returned because journaling must never fail a run.
type Journal struct {
	ns     *server.Server
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	lock   *flock.Flock
	log    *logger.Logger
}

// Open starts the embedded server over dataDir and ensures the run
// stream exists. A file lock keeps concurrent latch processes from
// mounting the same store; Close releases it.
func Open(ctx context.Context, dataDir string) (*Journal, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, ".lock"))
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("acquire journal lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire journal lock: not acquired")
	}

	ns, err := startEmbedded(dataDir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	nc, err := connectInProcess(ns)
	if err != nil {
		_ = stop(nil, ns)
		_ = lock.Unlock()
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		_ = stop(nc, ns)
		_ = lock.Unlock()
		return nil, err
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"latch.>"},
		Storage:  jetstream.FileStorage,
		MaxAge:   30 * 24 * time.Hour,
	})
	if err != nil {
		_ = stop(nc, ns)
		_ = lock.Unlock()
		return nil, fmt.Errorf("create run stream: %w", err)
	}

	return &Journal{
		ns:     ns,
		nc:     nc,
		js:     js,
		stream: stream,
		lock:   lock,
		log:    logger.Default.Component("journal"),
	}, nil
}

// Close drains and stops the embedded server and releases the store
// lock. Transient shutdown failures are logged rather than returned.
func (j *Journal) Close() error {
	err := stop(j.nc, j.ns)
	if j.lock != nil {
		_ = j.lock.Unlock()
	}
	if ierr.IsTransient(err) {
		j.log.Warn("Close: %v", err)
		return nil
	}
	return err
}

// RunStarted records the beginning of a run.
func (j *Journal) RunStarted(ctx context.Context, res *runner.Result) {
	j.append(ctx, Event{
		RunID:  res.RunID,
		Kind:   KindStarted,
		Stage:  res.Stage,
		Branch: res.Branch,
		Hash:   res.Hash,
		Files:  res.Files,
	})
}

// HookFinished records one hook outcome.
func (j *Journal) HookFinished(ctx context.Context, runID string, hr runner.HookResult) {
	j.append(ctx, Event{RunID: runID, Kind: KindHook, Hook: &hr})
}

// RunFinished records the aggregate outcome. An interrupted run never
// reaches this point, leaving its record incomplete in the journal.
func (j *Journal) RunFinished(ctx context.Context, res *runner.Result) {
	j.append(ctx, Event{
		RunID:    res.RunID,
		Kind:     KindFinished,
		Stage:    res.Stage,
		Files:    res.Files,
		Failed:   res.Failed(),
		Duration: res.Duration,
	})
}

func (j *Journal) append(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		j.log.Warn("Write failed: %v", err)
		return
	}

	if _, err := j.js.Publish(ctx, subjectFor(ev.RunID, ev.Kind), data); err != nil {
		j.log.Warn("Write failed: %v", err)
		return
	}
	j.log.Debug("Entry recorded: run=%s kind=%s", ev.RunID, ev.Kind)
}

// LoadRuns replays the whole stream and returns every recorded run,
// oldest first.
func (j *Journal) LoadRuns(ctx context.Context) ([]*Run, error) {
	byID := make(map[string]*Run)
	var runs []*Run

	err := j.replay(ctx, "latch.>", func(ev Event) {
		run, ok := byID[ev.RunID]
		if !ok {
			run = &Run{RunID: ev.RunID}
			byID[ev.RunID] = run
			runs = append(runs, run)
		}
		run.Apply(ev)
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// LoadRun replays the events of a single run.
func (j *Journal) LoadRun(ctx context.Context, runID string) (*Run, error) {
	run := &Run{RunID: runID}
	seen := false

	err := j.replay(ctx, subjectForRun(runID), func(ev Event) {
		seen = true
		run.Apply(ev)
	})
	if err != nil {
		return nil, err
	}
	if !seen {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, nil
}

// replay reads every stored event matching filter and hands them to
// apply in stream order. Malformed entries are acknowledged and skipped
// so one bad write cannot wedge history forever.
func (j *Journal) replay(ctx context.Context, filter string, apply func(Event)) error {
	consumer, err := j.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: filter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("create journal consumer: %w", err)
	}

	const batchSize = 1000
	malformed := 0
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			var ev Event
			if err := json.Unmarshal(msg.Data(), &ev); err != nil {
				malformed++
				meta, _ := msg.Metadata()
				j.log.Warn("Skipping malformed entry (seq=%d): %v", meta.Sequence.Stream, err)
				msg.Ack()
				continue
			}
			apply(ev)
			msg.Ack()
		}

		if count < batchSize {
			break
		}
	}

	if malformed > 0 {
		j.log.Warn("Skipped %d malformed entries", malformed)
	}
	return nil
}

// subjectFor returns the subject one event is published to, for
// example "latch.8c1f-….finished".
func subjectFor(runID, kind string) string {
	return fmt.Sprintf("latch.%s.%s", runID, kind)
}

// subjectForRun returns the wildcard subject matching every event of
// one run.
func subjectForRun(runID string) string {
	return fmt.Sprintf("latch.%s.>", runID)
}

// DirFor returns the journal directory for a repository root. Each
// repository gets its own store under the cache directory so histories
// never interleave. The slug keeps cache listings scannable; the hash
// disambiguates roots that share a basename.
func DirFor(cacheDir, root string) string {
	sum := sha1.Sum([]byte(root))
	name := fmt.Sprintf("%s-%x", slug.Make(filepath.Base(root)), sum[:5])
	return filepath.Join(cacheDir, "journal", name)
}
