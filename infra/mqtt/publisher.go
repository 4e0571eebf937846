package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/dischargectl/core/run"
	"github.com/kilianp07/dischargectl/infra/logger"
	"github.com/kilianp07/dischargectl/internal/eventbus"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Publisher mirrors run telemetry onto an MQTT broker so a control room can
// follow a discharge live. Samples land on <prefix>/<run_id>/sample and the
// terminal status on <prefix>/<run_id>/status.
type Publisher struct {
	cli    pahoClient
	prefix string
	qos    byte
	log    logger.Logger
}

type samplePayload struct {
	RunID          string  `json:"run_id"`
	Entry          int     `json:"entry"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Voltage        float64 `json:"voltage"`
	Current        float64 `json:"current"`
	Power          float64 `json:"power"`
	Flag           string  `json:"flag,omitempty"`
	TS             int64   `json:"ts"`
}

type statusPayload struct {
	RunID          string  `json:"run_id"`
	Status         string  `json:"status"`
	Samples        int     `json:"samples"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	TS             int64   `json:"ts"`
}

// NewPublisher connects to the MQTT broker.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id := cfg.ClientID
	if id == "" {
		id = "dischargectl-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(id)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Publisher{cli: cli, prefix: cfg.TopicPrefix, qos: cfg.QoS, log: logger.New("mqtt-publisher")}, nil
}

// Start forwards run events from the bus until the context is canceled or the
// bus is closed. The returned channel is closed once every pending event has
// been published.
func (p *Publisher) Start(ctx context.Context, bus *eventbus.Bus[run.Event]) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				// Flush what is already buffered so the terminal status
				// is not lost on an abort.
				for {
					select {
					case ev, ok := <-sub:
						if !ok {
							return
						}
						p.handle(ev)
					default:
						return
					}
				}
			case ev, ok := <-sub:
				if !ok {
					return
				}
				p.handle(ev)
			}
		}
	}()
	return done
}

func (p *Publisher) handle(ev run.Event) {
	switch e := ev.(type) {
	case run.SampleEvent:
		p.publish(fmt.Sprintf("%s/%s/sample", p.prefix, e.RunID), samplePayload{
			RunID:          e.RunID,
			Entry:          e.Entry,
			ElapsedSeconds: e.Sample.Elapsed.Seconds(),
			Voltage:        e.Sample.Voltage,
			Current:        e.Sample.Current,
			Power:          e.Sample.Power,
			Flag:           e.Sample.Flag,
			TS:             e.Time.Unix(),
		})
	case run.StateEvent:
		p.publish(fmt.Sprintf("%s/%s/status", p.prefix, e.RunID), statusPayload{
			RunID:          e.RunID,
			Status:         e.Status.String(),
			Samples:        e.Samples,
			ElapsedSeconds: e.Elapsed.Seconds(),
			TS:             e.Time.Unix(),
		})
	}
}

func (p *Publisher) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Errorf("encode payload: %v", err)
		return
	}
	token := p.cli.Publish(topic, p.qos, false, data)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		p.log.Errorf("publish %s: %v", topic, token.Error())
	}
}

// Close disconnects from the broker.
func (p *Publisher) Close() error {
	if p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
