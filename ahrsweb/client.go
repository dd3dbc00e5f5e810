package ahrsweb

import (
	"github.com/gorilla/websocket"
)

// client is a single websocket connection in a Room.
type client struct {
	socket *websocket.Conn
	// send is a channel on which messages are sent.
	send chan []byte
	room *Room
}

func (c *client) read() {
	for {
		_, msg, err := c.socket.ReadMessage()
		if err != nil {
			return
		}
		select {
		case c.room.forward <- message{from: c, data: msg}:
		case <-c.room.done:
			return
		}
	}
}

func (c *client) write() {
	defer c.socket.Close()
	for msg := range c.send {
		if err := c.socket.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
