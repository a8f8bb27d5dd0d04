package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/heliobio/internal/domain/alerts"
	"github.com/sawpanic/heliobio/internal/domain/history"
	"github.com/sawpanic/heliobio/internal/monitor"
)

type recordingSink struct {
	name   string
	err    error
	events []Event
	closed bool
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Publish(_ context.Context, ev Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return nil
}

func testAlert(kind alerts.Kind) alerts.Alert {
	return alerts.Alert{
		ID:        "alert-" + string(kind),
		Kind:      kind,
		Level:     kind.Level(),
		Category:  kind.Category(),
		Title:     "test",
		CreatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_FansOut(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := NewDispatcher([]Sink{a, b}, WithOrigin("test"))
	require.True(t, d.Enabled())

	err := d.Dispatch(context.Background(), []alerts.Alert{testAlert(alerts.KindSolarExtreme), testAlert(alerts.KindResonanceHigh)}, 0.75)
	require.NoError(t, err)

	require.Len(t, a.events, 2)
	require.Len(t, b.events, 2)
	assert.Equal(t, alerts.KindSolarExtreme, a.events[0].Alert.Kind)
	assert.Equal(t, 0.75, a.events[1].Resonance)
	assert.Equal(t, "test", b.events[0].Origin)
}

func TestDispatcher_SinkFailureDoesNotBlockOthers(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("broker down")}
	good := &recordingSink{name: "good"}
	d := NewDispatcher([]Sink{bad, good})

	err := d.Dispatch(context.Background(), []alerts.Alert{testAlert(alerts.KindFlareCritical)}, 0.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: publish FLARE_CRITICAL: broker down")
	assert.Len(t, good.events, 1)
}

func TestDispatcher_OnCycle(t *testing.T) {
	sink := &recordingSink{name: "s"}
	d := NewDispatcher([]Sink{sink})

	require.NoError(t, d.OnCycle(context.Background(), monitor.CycleResult{}))
	assert.Empty(t, sink.events)

	res := monitor.CycleResult{
		Snapshot: history.ResonanceSnapshot{Resonance: 0.9},
		Alerts:   []alerts.Alert{testAlert(alerts.KindResonanceCritical)},
	}
	require.NoError(t, d.OnCycle(context.Background(), res))
	require.Len(t, sink.events, 1)
	assert.Equal(t, 0.9, sink.events[0].Resonance)

	require.NoError(t, d.Close())
	assert.True(t, sink.closed)
}

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func TestKafkaSink_KeysByKind(t *testing.T) {
	w := &recordingWriter{}
	sink := &KafkaSink{topic: "alerts", writer: w}
	assert.Equal(t, "kafka:alerts", sink.Name())

	ev := Event{Alert: testAlert(alerts.KindGeomagneticSevere), Resonance: 0.4, EmittedAt: time.Now()}
	require.NoError(t, sink.Publish(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "GEOMAGNETIC_SEVERE", string(w.msgs[0].Key))
	assert.Equal(t, "WARNING", string(w.msgs[0].Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, ev.Alert.ID, decoded.Alert.ID)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaSink_Validation(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
	_, err = NewKafkaSink(KafkaConfig{Topic: "alerts"})
	assert.Error(t, err)

	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "alerts"})
	require.NoError(t, err)
	assert.Equal(t, "kafka:alerts", sink.Name())
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (f *fakeToken) Wait() bool                     { return true }
func (f *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (f *fakeToken) Done() <-chan struct{}          { return f.done }
func (f *fakeToken) Error() error                   { return f.err }

type fakePublisher struct {
	topics       []string
	qos          []byte
	err          error
	disconnected bool
	block        bool
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, _ interface{}) mqtt.Token {
	f.topics = append(f.topics, topic)
	f.qos = append(f.qos, qos)
	if f.block {
		return &fakeToken{done: make(chan struct{})}
	}
	return newFakeToken(f.err)
}

func (f *fakePublisher) Disconnect(uint) {
	f.disconnected = true
}

func TestMQTTSink_PublishesPerKindTopic(t *testing.T) {
	pub := &fakePublisher{}
	sink := &MQTTSink{cfg: MQTTConfig{Topic: "heliobio/alerts/", QoS: 1}, client: pub}

	require.NoError(t, sink.Publish(context.Background(), Event{Alert: testAlert(alerts.KindCrispationHigh)}))
	assert.Equal(t, []string{"heliobio/alerts/crispation_high"}, pub.topics)
	assert.Equal(t, []byte{1}, pub.qos)

	pub.err = errors.New("not authorized")
	assert.EqualError(t, sink.Publish(context.Background(), Event{Alert: testAlert(alerts.KindSolarExtreme)}), "not authorized")

	require.NoError(t, sink.Close())
	assert.True(t, pub.disconnected)
}

func TestMQTTSink_PublishHonoursContext(t *testing.T) {
	sink := &MQTTSink{cfg: MQTTConfig{Topic: "t"}, client: &fakePublisher{block: true}}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := sink.Publish(ctx, Event{Alert: testAlert(alerts.KindSolarExtreme)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewMQTTSink_Validation(t *testing.T) {
	_, err := NewMQTTSink(MQTTConfig{})
	assert.Error(t, err)
	_, err = NewMQTTSink(MQTTConfig{Broker: "tcp://localhost:1883", QoS: 3})
	assert.Error(t, err)
}
