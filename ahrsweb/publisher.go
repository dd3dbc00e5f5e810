package ahrsweb

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/gorilla/websocket"

	"github.com/yin1008/paparazzi/ahrs"
	"github.com/yin1008/paparazzi/sim"
)

// Publisher sends AttitudeData to a Room.
type Publisher struct {
	// Filter, when set, adds the filter status, residual and bias to every
	// sample sent by Observe.
	Filter *ahrs.Filter
	// Every sends only every Nth sample given to Observe.
	Every int

	url  string
	c    *websocket.Conn
	data AttitudeData
	n    int
}

// DefaultURL is the room of an ahrsweb server on this machine.
func DefaultURL() string {
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("localhost:%d", Port), Path: Path}
	return u.String()
}

// NewPublisher connects to the room at rawURL.
func NewPublisher(rawURL string) (*Publisher, error) {
	p := &Publisher{url: rawURL}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() (err error) {
	p.c, _, err = websocket.DefaultDialer.Dial(p.url, nil)
	if err != nil {
		return fmt.Errorf("AHRSWeb: dialing %s: %w", p.url, err)
	}
	return nil
}

// Send marshals d and writes it to the room. On a write error the message is
// dropped and the connection re-established for the next one.
func (p *Publisher) Send(d *AttitudeData) error {
	msg, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("AHRSWeb: marshalling data: %w", err)
	}
	if err := p.c.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.Println("AHRSWeb: Error writing to websocket:", err)
		p.c.Close()
		if err2 := p.connect(); err2 != nil {
			return fmt.Errorf("AHRSWeb: %w (reconnect: %v)", err, err2)
		}
		return fmt.Errorf("AHRSWeb: %w", err)
	}
	return nil
}

// Observe publishes a simulation sample, so a Publisher can be passed to
// sim.Run directly.
func (p *Publisher) Observe(s sim.Sample) error {
	every := max(p.Every, 1)
	p.n++
	if (p.n-1)%every != 0 {
		return nil
	}
	p.data.SetSample(s)
	if p.Filter != nil {
		p.data.SetFilter(p.Filter)
	}
	return p.Send(&p.data)
}

// Close says goodbye to the room and closes the connection.
func (p *Publisher) Close() error {
	err := p.c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if cerr := p.c.Close(); err == nil {
		err = cerr
	}
	return err
}
