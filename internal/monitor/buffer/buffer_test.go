package buffer_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/spindle/internal/domain/model"
	"github.com/okian/spindle/internal/monitor/buffer"
	"github.com/okian/spindle/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// flakyWriter fails the first failures inserts, then accepts everything.
type flakyWriter struct {
	mu       sync.Mutex
	failures int
	inserts  int
	records  []model.OperationRecord
}

func (w *flakyWriter) InsertRecords(_ context.Context, recs []model.OperationRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inserts++
	if w.failures > 0 {
		w.failures--
		return errors.New("transient write failure")
	}
	w.records = append(w.records, recs...)
	return nil
}

func (w *flakyWriter) stored() []model.OperationRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.OperationRecord, len(w.records))
	copy(out, w.records)
	return out
}

// blockingWriter holds every insert until released.
type blockingWriter struct {
	entered chan struct{}
	release chan struct{}

	mu      sync.Mutex
	inserts int
}

func (w *blockingWriter) InsertRecords(_ context.Context, _ []model.OperationRecord) error {
	w.entered <- struct{}{}
	<-w.release
	w.mu.Lock()
	w.inserts++
	w.mu.Unlock()
	return nil
}

func record(id string) model.OperationRecord {
	return model.OperationRecord{
		ID:        id,
		Operation: model.OpCaseOpen,
		Timestamp: time.Now().UTC(),
		Success:   true,
	}
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestBufferFlush(t *testing.T) {
	Convey("Given a buffer over a healthy writer", t, func() {
		ctx := context.Background()
		w := &flakyWriter{}
		b := buffer.New(w, buffer.WithCapacity(1000))

		Convey("When records are appended and flushed", func() {
			for i := 0; i < 10; i++ {
				b.Append(ctx, record(fmt.Sprintf("rec-%d", i)))
			}
			So(b.Len(), ShouldEqual, 10)

			err := b.Flush(ctx)

			Convey("Then the writer receives every record exactly once", func() {
				So(err, ShouldBeNil)
				So(b.Len(), ShouldEqual, 0)
				So(w.stored(), ShouldHaveLength, 10)
			})
		})

		Convey("When the buffer is empty", func() {
			err := b.Flush(ctx)

			Convey("Then flushing is a no-op", func() {
				So(err, ShouldBeNil)
				So(w.inserts, ShouldEqual, 0)
			})
		})
	})
}

func TestBufferCapacityTrigger(t *testing.T) {
	Convey("Given a buffer with a small capacity", t, func() {
		ctx := context.Background()
		w := &flakyWriter{}
		b := buffer.New(w, buffer.WithCapacity(5))

		Convey("When appends reach the capacity threshold", func() {
			for i := 0; i < 5; i++ {
				b.Append(ctx, record(fmt.Sprintf("rec-%d", i)))
			}

			Convey("Then a flush fires without an explicit call", func() {
				So(waitFor(2*time.Second, func() bool { return len(w.stored()) == 5 }), ShouldBeTrue)
				So(b.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestBufferRequeueOnFailure(t *testing.T) {
	Convey("Given a writer that fails a few times before recovering", t, func() {
		ctx := context.Background()
		w := &flakyWriter{failures: 3}
		b := buffer.New(w, buffer.WithCapacity(1000))

		Convey("When flushes fail and records keep arriving in between", func() {
			for i := 0; i < 4; i++ {
				b.Append(ctx, record(fmt.Sprintf("early-%d", i)))
			}

			for attempt := 0; attempt < 3; attempt++ {
				So(b.Flush(ctx), ShouldNotBeNil)
				b.Append(ctx, record(fmt.Sprintf("late-%d", attempt)))
			}

			So(b.Len(), ShouldEqual, 7)
			So(b.Flush(ctx), ShouldBeNil)

			Convey("Then the store ends with every record, none lost or duplicated", func() {
				stored := w.stored()
				So(stored, ShouldHaveLength, 7)

				seen := make(map[string]bool, len(stored))
				for _, rec := range stored {
					So(seen[rec.ID], ShouldBeFalse)
					seen[rec.ID] = true
				}

				Convey("And the requeued batch stays ahead of later records", func() {
					So(stored[0].ID, ShouldEqual, "early-0")
					So(stored[3].ID, ShouldEqual, "early-3")
				})
			})
		})
	})
}

// alternatingWriter fails every other insert.
type alternatingWriter struct {
	mu      sync.Mutex
	calls   int
	records []model.OperationRecord
}

func (w *alternatingWriter) InsertRecords(_ context.Context, recs []model.OperationRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.calls%2 == 1 {
		return errors.New("transient write failure")
	}
	w.records = append(w.records, recs...)
	return nil
}

func (w *alternatingWriter) stored() []model.OperationRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.OperationRecord(nil), w.records...)
}

func TestBufferConcurrentAppends(t *testing.T) {
	Convey("Given many producers racing a writer that fails every other flush", t, func() {
		ctx := context.Background()
		w := &alternatingWriter{}
		b := buffer.New(w, buffer.WithCapacity(64))

		const (
			producers = 8
			perWorker = 250
		)

		Convey("When all producers append through capacity-triggered flushes", func() {
			var wg sync.WaitGroup
			for p := 0; p < producers; p++ {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := 0; i < perWorker; i++ {
						b.Append(ctx, record(fmt.Sprintf("w%d-%d", p, i)))
					}
				}(p)
			}
			wg.Wait()

			// Drain whatever the intermittent failures left behind; async
			// flushes may still be landing, so poll until quiescent.
			drained := waitFor(5*time.Second, func() bool {
				_ = b.Flush(ctx)
				return len(w.stored()) == producers*perWorker
			})

			Convey("Then every record lands exactly once", func() {
				So(drained, ShouldBeTrue)
				stored := w.stored()
				So(stored, ShouldHaveLength, producers*perWorker)

				seen := make(map[string]bool, len(stored))
				for _, rec := range stored {
					So(seen[rec.ID], ShouldBeFalse)
					seen[rec.ID] = true
				}
			})
		})
	})
}

func TestBufferSingleFlight(t *testing.T) {
	Convey("Given a buffer whose writer blocks mid-insert", t, func() {
		ctx := context.Background()
		w := &blockingWriter{entered: make(chan struct{}), release: make(chan struct{})}
		b := buffer.New(w, buffer.WithCapacity(1000))
		b.Append(ctx, record("only"))

		Convey("When a second flush is attempted while the first is in flight", func() {
			errCh := make(chan error, 1)
			go func() { errCh <- b.Flush(ctx) }()
			<-w.entered

			second := b.Flush(ctx)
			close(w.release)

			Convey("Then the second call is a no-op and only one insert happens", func() {
				So(second, ShouldBeNil)
				So(<-errCh, ShouldBeNil)
				w.mu.Lock()
				defer w.mu.Unlock()
				So(w.inserts, ShouldEqual, 1)
			})
		})
	})
}

func TestBufferLifecycle(t *testing.T) {
	Convey("Given a started buffer with a short flush interval", t, func() {
		ctx := context.Background()
		w := &flakyWriter{}
		b := buffer.New(w, buffer.WithCapacity(1000), buffer.WithFlushInterval(20*time.Millisecond))
		b.Start(ctx)

		Convey("When records sit below the capacity threshold", func() {
			b.Append(ctx, record("periodic"))

			Convey("Then the ticker flushes them anyway", func() {
				So(waitFor(2*time.Second, func() bool { return len(w.stored()) == 1 }), ShouldBeTrue)
				b.Stop()
			})
		})

		Convey("When the buffer is stopped with records still pending", func() {
			b.Append(ctx, record("pending"))
			b.Stop()

			Convey("Then the final flush drains them", func() {
				So(w.stored(), ShouldHaveLength, 1)
				So(b.Len(), ShouldEqual, 0)
			})
		})

		Convey("When Stop is called twice", func() {
			b.Stop()

			Convey("Then the second call returns without hanging", func() {
				b.Stop()
				So(b.Len(), ShouldEqual, 0)
			})
		})
	})
}
