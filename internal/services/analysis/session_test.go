package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/events"
)

type staticFiles []models.FileRecord

func (s staticFiles) Selected() []models.FileRecord { return s }

type staticCustomers []models.Customer

func (s staticCustomers) Selected() []models.Customer { return s }

// recordingEvents captures published event types synchronously
type recordingEvents struct {
	mu    sync.Mutex
	types []interfaces.EventType
}

func (r *recordingEvents) Subscribe(interfaces.EventType, interfaces.EventHandler) error { return nil }
func (r *recordingEvents) SubscribeAll(interfaces.EventHandler) error                    { return nil }
func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return r.Publish(ctx, event)
}
func (r *recordingEvents) Close() error { return nil }

func (r *recordingEvents) Publish(ctx context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, event.Type)
	return nil
}

func (r *recordingEvents) published() []interfaces.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interfaces.EventType{}, r.types...)
}

func TestSession_RunStoresLatestAndPublishes(t *testing.T) {
	bus := events.NewService(arbor.NewLogger())
	defer bus.Close()

	received := make(chan interfaces.EventType, 4)
	require.NoError(t, bus.SubscribeAll(func(ctx context.Context, event interfaces.Event) error {
		received <- event.Type
		return nil
	}))

	gen := &fakeGenerator{reply: `{"title":"First"}`}
	session := NewSession(newService(gen), staticFiles{textRecord("a.txt", "x")}, staticCustomers{}, bus, arbor.NewLogger())

	report, err := session.Run(context.Background(), models.VariantMarket, "")
	require.NoError(t, err)
	assert.Equal(t, "First", report.Result.Title)
	assert.Same(t, report, session.Latest())

	seen := map[interfaces.EventType]bool{}
	for len(seen) < 2 {
		select {
		case eventType := <-received:
			seen[eventType] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("events not delivered: %v", seen)
		}
	}
	assert.True(t, seen[interfaces.EventAnalysisStarted])
	assert.True(t, seen[interfaces.EventAnalysisCompleted])
}

func TestSession_FailureKeepsPreviousReport(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"First"}`}
	session := NewSession(newService(gen), staticFiles{textRecord("a.txt", "x")}, nil, nil, arbor.NewLogger())

	first, err := session.Run(context.Background(), models.VariantMarket, "")
	require.NoError(t, err)

	gen.err = errors.New("boom")
	_, err = session.Run(context.Background(), models.VariantMarket, "")
	require.ErrorIs(t, err, ErrAnalysisFailed)

	status := session.Status()
	assert.False(t, status.InProgress)
	assert.Same(t, first, status.Latest)
	assert.Contains(t, status.LastError, "boom")
}

func TestSession_RejectsConcurrentRun(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"Slow"}`, block: make(chan struct{})}
	session := NewSession(newService(gen), staticFiles{textRecord("a.txt", "x")}, nil, nil, arbor.NewLogger())

	done := make(chan error, 1)
	go func() {
		_, err := session.Run(context.Background(), models.VariantMarket, "")
		done <- err
	}()

	require.Eventually(t, func() bool { return gen.callCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, session.Status().InProgress)

	_, err := session.Run(context.Background(), models.VariantMarket, "")
	require.ErrorIs(t, err, ErrAnalysisInProgress)
	assert.Equal(t, 1, gen.callCount())

	close(gen.block)
	require.NoError(t, <-done)
	assert.False(t, session.Status().InProgress)
}

func TestSession_EmptySelectionClearsFlag(t *testing.T) {
	gen := &fakeGenerator{reply: `{"title":"T"}`}
	session := NewSession(newService(gen), staticFiles{}, nil, nil, arbor.NewLogger())

	_, err := session.Run(context.Background(), models.VariantMarket, "")
	require.ErrorIs(t, err, ErrNothingSelected)
	assert.False(t, session.Status().InProgress)
	assert.Nil(t, session.Latest())
	assert.Equal(t, 0, gen.callCount())
}

func TestSession_RejectedSelectionPublishesNothing(t *testing.T) {
	tests := []struct {
		name      string
		files     staticFiles
		customers staticCustomers
		variant   models.AnalysisVariant
		want      error
	}{
		{"no files", staticFiles{}, staticCustomers{}, models.VariantMarket, ErrNothingSelected},
		{"customer variant without customers", staticFiles{textRecord("a.txt", "x")}, staticCustomers{}, models.VariantCustomer, ErrNoCustomersSelected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: `{"title":"T"}`}
			recorder := &recordingEvents{}
			session := NewSession(newService(gen), tt.files, tt.customers, recorder, arbor.NewLogger())

			_, err := session.Run(context.Background(), tt.variant, "")
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, recorder.published())
			assert.Equal(t, 0, gen.callCount())
			assert.Equal(t, tt.want.Error(), session.Status().LastError)
		})
	}
}
