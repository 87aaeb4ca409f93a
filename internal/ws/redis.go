package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const roomEventsChannel = "room_events"

// roomEvent is the cross-process frame: the already-marshaled client
// envelope plus enough routing metadata to replay it on a peer.
type roomEvent struct {
	Origin string          `json:"origin"`
	RoomID string          `json:"room_id"`
	Frame  json.RawMessage `json:"frame"`
}

// Mirror replicates room broadcasts through a Redis channel so sessions
// connected to other processes see the same events. Each mirror tags its
// messages with a process-unique origin and ignores its own on the way
// back in.
type Mirror struct {
	rdb    *redis.Client
	origin string
}

func NewMirror(rdb *redis.Client) *Mirror {
	return &Mirror{
		rdb:    rdb,
		origin: uuid.NewString(),
	}
}

// Publish pushes a room frame to peers. Best-effort; local delivery has
// already happened by the time this is called.
func (m *Mirror) Publish(roomID string, frame []byte) {
	payload, err := json.Marshal(roomEvent{
		Origin: m.origin,
		RoomID: roomID,
		Frame:  frame,
	})
	if err != nil {
		log.Printf("[WS] Error marshaling room event: %v", err)
		return
	}
	if err := m.rdb.Publish(context.Background(), roomEventsChannel, payload).Err(); err != nil {
		log.Printf("[WS] Failed to publish room event: %v", err)
	}
}

// StartSubscriber replays peer broadcasts into the local hub until ctx is
// canceled. Call it once in a goroutine at startup.
func (m *Mirror) StartSubscriber(ctx context.Context, hub *Hub) {
	pubsub := m.rdb.Subscribe(ctx, roomEventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", roomEventsChannel)
		for msg := range ch {
			var event roomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[WS] Invalid room event payload: %v", err)
				continue
			}
			if event.Origin == m.origin {
				continue // our own broadcast coming back
			}
			var env envelope
			if err := json.Unmarshal(event.Frame, &env); err != nil {
				log.Printf("[WS] Invalid mirrored frame: %v", err)
				continue
			}
			hub.deliverRoom(event.RoomID, env.Type, event.Frame)
		}
	}()
}
