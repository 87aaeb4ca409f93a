package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/platinumchess/backend/internal/game"
)

// Inbound message payloads. All ids are client-supplied: players identify
// themselves by a persistent playerId, and accountId ties the session to a
// funded profile for staked games.
type QueueForTimeData struct {
	Time      string  `json:"time"`
	StakeUSD  float64 `json:"stakeUsd"`
	PlayerID  string  `json:"playerId"`
	AccountID string  `json:"accountId"`
}

type JoinGameData struct {
	RoomID    string `json:"roomId"`
	PlayerID  string `json:"playerId"`
	AccountID string `json:"accountId"`
}

type SetNameData struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

type SendChatData struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Text     string `json:"text"`
}

type MakeMoveData struct {
	RoomID    string `json:"roomId"`
	PlayerID  string `json:"playerId"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
}

type FlagData struct {
	RoomID string `json:"roomId"`
	Loser  string `json:"loser"`
}

type RoomActionData struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

// Gateway upgrades HTTP requests into WebSocket sessions and translates
// inbound frames into engine calls.
type Gateway struct {
	hub *Hub
	svc *game.Service
}

func NewGateway(hub *Hub, svc *game.Service) *Gateway {
	hub.OnDisconnect = svc.LeaveQueues
	return &Gateway{hub: hub, svc: svc}
}

// HandleWebSocket upgrades the connection and starts the session pumps.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		conn:      conn,
		sessionID: uuid.NewString(),
		joined:    make(map[string]struct{}),
		send:      make(chan []byte, 256),
		gateway:   g,
	}

	g.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// handleMessage dispatches one inbound frame. Malformed payloads get an
// error frame back; unknown types too, so clients notice protocol drift.
func (g *Gateway) handleMessage(c *Client, msg WSMessage) {
	ctx := context.Background()

	switch msg.Type {
	case "queueForTime":
		var data QueueForTimeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid queue data")
			return
		}
		c.rememberPlayer(data.PlayerID)
		g.svc.EnqueueForMatch(ctx, data.Time, game.Ticket{
			PlayerID:  data.PlayerID,
			SessionID: c.sessionID,
			AccountID: data.AccountID,
			StakeUSD:  data.StakeUSD,
		})

	case "joinGame":
		var data JoinGameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid join data")
			return
		}
		if data.RoomID == "" || data.PlayerID == "" {
			c.sendError("roomId and playerId required")
			return
		}
		c.rememberPlayer(data.PlayerID)
		// Subscribe before joining so the join broadcasts reach this
		// session too.
		g.hub.subscribe(c, data.RoomID)
		g.svc.Join(ctx, data.RoomID, data.PlayerID, c.sessionID, data.AccountID)

	case "setName":
		var data SetNameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid name data")
			return
		}
		g.svc.SetName(data.RoomID, data.PlayerID, data.Name)

	case "sendChat":
		var data SendChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid chat data")
			return
		}
		g.svc.SendChat(data.RoomID, data.PlayerID, data.Name, data.Text)

	case "makeMove":
		var data MakeMoveData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid move data")
			return
		}
		g.svc.MakeMove(ctx, data.RoomID, data.PlayerID, c.sessionID, data.From, data.To, data.Promotion)

	case "flag":
		var data FlagData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid flag data")
			return
		}
		g.svc.Flag(ctx, data.RoomID, game.Color(data.Loser))

	case "resign":
		var data RoomActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid resign data")
			return
		}
		g.svc.Resign(ctx, data.RoomID, data.PlayerID)

	case "offerDraw":
		var data RoomActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid draw data")
			return
		}
		g.svc.OfferDraw(data.RoomID, data.PlayerID)

	case "acceptDraw":
		var data RoomActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid draw data")
			return
		}
		g.svc.AcceptDraw(ctx, data.RoomID, data.PlayerID)

	case "declineDraw":
		var data RoomActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("Invalid draw data")
			return
		}
		g.svc.DeclineDraw(data.RoomID, data.PlayerID)

	default:
		c.sendError("Unknown message type")
	}
}

// rememberPlayer latches the player id onto the session for disconnect
// cleanup. First writer wins.
func (c *Client) rememberPlayer(playerID string) {
	if c.playerID == "" && playerID != "" {
		c.playerID = playerID
	}
}
