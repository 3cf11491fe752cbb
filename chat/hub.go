package chat

import (
	"log"
	"sync"
)

// RoomMessage is one payload addressed to everybody in a room.
type RoomMessage struct {
	Room string
	Data []byte
}

// Hub fans messages out to the clients of each room. All membership changes
// flow through the channels so only Run touches the maps.
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan RoomMessage
	done       chan struct{}
	closeOnce  sync.Once
}

func NewHub() *Hub {
	return &Hub{
		rooms:      map[string]map[*Client]bool{},
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan RoomMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			clients, ok := h.rooms[client.room]
			if !ok {
				clients = map[*Client]bool{}
				h.rooms[client.room] = clients
			}
			clients[client] = true

		case client := <-h.unregister:
			if clients, ok := h.rooms[client.room]; ok {
				if clients[client] {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}

		case msg := <-h.broadcast:
			for client := range h.rooms[msg.Room] {
				select {
				case client.send <- msg.Data:
				default:
					// Slow consumer; drop it rather than stall the room.
					delete(h.rooms[msg.Room], client)
					close(client.send)
				}
			}

		case <-h.done:
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, room)
			}
			log.Println("chat hub stopped")
			return
		}
	}
}

// Broadcast queues a payload for everyone in the room.
func (h *Hub) Broadcast(room string, data []byte) {
	select {
	case h.broadcast <- RoomMessage{Room: room, Data: data}:
	case <-h.done:
	}
}

// Stop shuts the event loop down and disconnects every client.
func (h *Hub) Stop() {
	h.closeOnce.Do(func() { close(h.done) })
}
