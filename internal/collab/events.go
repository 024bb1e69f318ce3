package collab

import (
	"encoding/json"
	"meetgate/internal/dataType"

	nats "github.com/nats-io/nats.go"
)

// NatsPublisher announces persisted access requests on a NATS subject so
// downstream approval tooling can pick them up. Publication is best-effort:
// the gate never blocks the user flow on it.
type NatsPublisher struct {
	conn    *nats.Conn
	subject string
}

func ConnectEvents(url, subject string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("meetgate"))
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{conn: nc, subject: subject}, nil
}

func (p *NatsPublisher) PublishRequestCreated(rec dataType.AccessRequest) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

func (p *NatsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
