// Package ahrsweb streams attitude filter telemetry over websockets.
//
// A Room relays every message a client sends to all the other clients, so a
// Publisher (a simulation or a live filter) and any number of viewers can
// meet on one endpoint.
package ahrsweb

import (
	"context"
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

const (
	Port = 8000
	Path = "/ahrsweb"
)

type message struct {
	from *client // nil for Broadcast
	data []byte
}

type Room struct {
	// forward is a channel that holds incoming messages
	// that should be forwarded to the other clients.
	forward chan message
	// join is a channel for clients wishing to join the room.
	join chan *client
	// leave is a channel for clients wishing to leave the room.
	leave chan *client
	// clients holds all current clients in this room.
	clients map[*client]bool
	// done is closed when Run returns.
	done chan struct{}
	n    atomic.Int32
}

// NewRoom makes a new room that is ready to go.
func NewRoom() *Room {
	return &Room{
		forward: make(chan message),
		join:    make(chan *client),
		leave:   make(chan *client),
		clients: make(map[*client]bool),
		done:    make(chan struct{}),
	}
}

// Run serves the room until ctx is cancelled, then disconnects every client.
// It must be running for ServeHTTP and Broadcast to make progress.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			for c := range r.clients {
				delete(r.clients, c)
				close(c.send)
			}
			r.n.Store(0)
			return
		case c := <-r.join:
			r.clients[c] = true
			r.n.Add(1)
			log.Println("AHRSWeb: New client joined")
		case c := <-r.leave:
			if r.clients[c] {
				delete(r.clients, c)
				close(c.send)
				r.n.Add(-1)
				log.Println("AHRSWeb: Client left")
			}
		case msg := <-r.forward:
			for c := range r.clients {
				if c == msg.from {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// slow viewer: it misses this message but stays in the room
				}
			}
		}
	}
}

// Len returns the number of connected clients.
func (r *Room) Len() int {
	return int(r.n.Load())
}

// Broadcast sends msg to every client. It reports false once the room has
// stopped.
func (r *Room) Broadcast(msg []byte) bool {
	select {
	case r.forward <- message{data: msg}:
		return true
	case <-r.done:
		return false
	}
}

const (
	socketBufferSize  = 1024
	messageBufferSize = 10
)

var upgrader = &websocket.Upgrader{ReadBufferSize: socketBufferSize, WriteBufferSize: socketBufferSize}

func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	socket, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		log.Println("AHRSWeb: ServeHTTP:", err)
		return
	}
	c := &client{
		socket: socket,
		send:   make(chan []byte, messageBufferSize),
		room:   r,
	}
	select {
	case r.join <- c:
	case <-r.done:
		socket.Close()
		return
	}
	defer func() {
		select {
		case r.leave <- c:
		case <-r.done:
		}
	}()
	go c.write()
	c.read()
}
