package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dischargectl/core/run"
	"github.com/kilianp07/dischargectl/infra/logger"
	"github.com/kilianp07/dischargectl/internal/eventbus"
)

type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (fakeToken) Error() error { return nil }

type fakeClient struct {
	mu       sync.Mutex
	messages map[string][]byte
}

func (f *fakeClient) IsConnected() bool       { return true }
func (f *fakeClient) Connect() paho.Token     { return fakeToken{} }
func (f *fakeClient) Disconnect(uint)         {}
func (f *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messages == nil {
		f.messages = make(map[string][]byte)
	}
	f.messages[topic] = payload.([]byte)
	return fakeToken{}
}

func (f *fakeClient) get(topic string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.messages[topic]
	return b, ok
}

func newTestPublisher(cli pahoClient) *Publisher {
	return &Publisher{cli: cli, prefix: "egse/discharge", log: logger.NopLogger{}}
}

func TestPublisherForwardsEvents(t *testing.T) {
	cli := &fakeClient{}
	p := newTestPublisher(cli)
	bus := eventbus.New[run.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := p.Start(ctx, bus)

	bus.Publish(run.SampleEvent{
		RunID:  "run-1",
		Sample: run.Sample{Elapsed: 5 * time.Second, Voltage: 3.9, Current: 2, Power: 7.8},
		Time:   time.Now(),
	})
	bus.Publish(run.StateEvent{RunID: "run-1", Status: run.StatusCompleted, Samples: 2, Time: time.Now()})

	// Closing the bus must flush both pending events before done closes.
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after bus close")
	}

	data, ok := cli.get("egse/discharge/run-1/sample")
	require.True(t, ok, "sample not published")
	var msg samplePayload
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, "run-1", msg.RunID)
	require.Equal(t, 3.9, msg.Voltage)
	require.Equal(t, 5.0, msg.ElapsedSeconds)

	data, _ = cli.get("egse/discharge/run-1/status")
	var st statusPayload
	require.NoError(t, json.Unmarshal(data, &st))
	require.Equal(t, "completed", st.Status)
	require.Equal(t, 2, st.Samples)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.SetDefaults()
	require.Equal(t, "egse/discharge", cfg.TopicPrefix)
	require.Error(t, cfg.Validate())
	cfg.Broker = "tcp://localhost:1883"
	require.NoError(t, cfg.Validate())
}
