package updater

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/archivist/internal/metrics"
)

type fakeMsg struct {
	data   []byte
	acked  bool
	naked  bool
	termed bool
}

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{Sequence: jetstream.SequencePair{Stream: 7}}, nil
}
func (m *fakeMsg) Data() []byte                     { return m.data }
func (m *fakeMsg) Headers() nats.Header             { return nil }
func (m *fakeMsg) Subject() string                  { return "archivist.updates" }
func (m *fakeMsg) Reply() string                    { return "" }
func (m *fakeMsg) Ack() error                       { m.acked = true; return nil }
func (m *fakeMsg) DoubleAck(context.Context) error  { m.acked = true; return nil }
func (m *fakeMsg) Nak() error                       { m.naked = true; return nil }
func (m *fakeMsg) NakWithDelay(time.Duration) error { m.naked = true; return nil }
func (m *fakeMsg) InProgress() error                { return nil }
func (m *fakeMsg) Term() error                      { m.termed = true; return nil }
func (m *fakeMsg) TermWithReason(string) error      { m.termed = true; return nil }

func newTestConsumer(svc *Service) *Consumer {
	return &Consumer{service: svc, rec: metrics.NoopRecorder{}}
}

func TestHandle_MalformedPayloadTerminated(t *testing.T) {
	svc, _ := newTestService(t, &fakeEngine{}, &fakeReader{}, 1000)
	c := newTestConsumer(svc)

	msg := &fakeMsg{data: []byte("{not json")}
	c.handle(context.Background(), msg)

	assert.True(t, msg.termed)
	assert.False(t, msg.acked)
	assert.False(t, msg.naked)
}

func TestHandle_ProcessedMessageAcked(t *testing.T) {
	engine := &fakeEngine{}
	svc, _ := newTestService(t, engine, &fakeReader{}, 1)
	c := newTestConsumer(svc)

	msg := &fakeMsg{data: []byte(`{"team_id":"t1","doc_id":"d1","threads":[{"messages":[{"text":"content that flushes"}]}]}`)}
	c.handle(context.Background(), msg)

	assert.True(t, msg.acked)
	assert.Len(t, engine.calls, 1)
}

func TestHandle_RetryableFailureRedelivered(t *testing.T) {
	engine := &fakeEngine{failFor: 10}
	svc, _ := newTestService(t, engine, &fakeReader{}, 1)
	c := newTestConsumer(svc)

	msg := &fakeMsg{data: []byte(`{"team_id":"t1","doc_id":"d1","threads":[{"messages":[{"text":"content that flushes"}]}]}`)}
	c.handle(context.Background(), msg)

	assert.True(t, msg.naked)
	assert.False(t, msg.acked)
}

func TestHandle_ValidationFailureTerminated(t *testing.T) {
	svc, _ := newTestService(t, &fakeEngine{}, &fakeReader{}, 1000)
	c := newTestConsumer(svc)

	msg := &fakeMsg{data: []byte(`{"threads":[{"messages":[{"text":"no addressing"}]}]}`)}
	c.handle(context.Background(), msg)

	assert.True(t, msg.termed)
	assert.False(t, msg.naked)
}

func TestShutdown_AckedStackedContentIsFlushed(t *testing.T) {
	engine := &fakeEngine{}
	svc, _ := newTestService(t, engine, &fakeReader{}, 100000)
	c := newTestConsumer(svc)

	// A sub-threshold message is stacked and acked against the stream; the
	// ack is only honest if shutdown drains the stack after intake stops.
	msg := &fakeMsg{data: []byte(`{"team_id":"t1","doc_id":"d1","threads":[{"messages":[{"text":"late arrival"}]}]}`)}
	c.handle(context.Background(), msg)
	require.True(t, msg.acked)
	assert.Empty(t, engine.calls)

	require.NoError(t, svc.FlushAll(context.Background()))
	require.Len(t, engine.calls, 1)
	assert.Contains(t, engine.calls[0].newMarkup, "late arrival")
	assert.Zero(t, svc.Pending("d1"))
}
