package gameserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second
	// pongWait is how long a silent peer is tolerated.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 54 * time.Second
	// maxMessageSize caps inbound frames; submissions are short text.
	maxMessageSize = 4096

	defaultSendBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The game is origin-agnostic; room codes gate entry.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Connect subscribes a new client channel and seeds it with the current room
// snapshot. Registering and snapshotting under the room lock means the
// snapshot is always the first event on the channel and every later
// broadcast lands after it, with no gap in between.
func (h *RoomHandler) Connect(roomID string, ch chan Event) error {
	entry := h.reg.FindByID(roomID)
	if entry == nil {
		return ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	h.hub.Register(roomID, ch)
	h.hub.Send(roomID, ch, Event{Type: EventRoomState, Data: snapshotLocked(entry.room)})
	return nil
}

// WSServer is the WebSocket transport: it upgrades connections at
// /ws/{roomID}/{playerID} and bridges them to the hub. Each connection gets
// one reader and one writer goroutine; the writer is the only goroutine that
// touches the socket after the upgrade.
type WSServer struct {
	handler    *RoomHandler
	log        *zap.Logger
	sendBuffer int
}

// NewWSServer creates a WSServer. sendBuffer <= 0 selects a default.
func NewWSServer(handler *RoomHandler, log *zap.Logger, sendBuffer int) *WSServer {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &WSServer{handler: handler, log: log, sendBuffer: sendBuffer}
}

// ServeHTTP upgrades the connection and runs the read loop until the client
// goes away. Closing the socket without a leave message starts the grace
// window instead of freeing the seat.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	roomID := vars["roomID"]
	playerID := vars["playerID"]

	if s.handler.reg.FindByID(roomID) == nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed",
			zap.String("room_id", roomID), zap.Error(err))
		return
	}

	ch := make(chan Event, s.sendBuffer)
	if err := s.handler.Connect(roomID, ch); err != nil {
		// The room was removed between the existence check and the upgrade.
		conn.WriteJSON(errorEvent(err.Error()))
		conn.Close()
		return
	}

	s.log.Info("client connected",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.String("remote", conn.RemoteAddr().String()))

	go s.writePump(conn, ch)
	s.readLoop(conn, roomID, playerID, ch)
}

// readLoop decodes inbound messages and dispatches them until the socket
// errors or the client leaves.
func (s *WSServer) readLoop(conn *websocket.Conn, roomID, playerID string, ch chan Event) {
	defer func() {
		s.handler.hub.Unregister(roomID, ch)
		s.handler.Disconnect(roomID, playerID)
		conn.Close()
		s.log.Info("client disconnected",
			zap.String("room_id", roomID),
			zap.String("player_id", playerID))
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read failed",
					zap.String("room_id", roomID),
					zap.String("player_id", playerID),
					zap.Error(err))
			}
			return
		}
		if in.PlayerID != "" && in.PlayerID != playerID {
			s.sendError(roomID, ch, "player id does not match this connection")
			continue
		}
		if s.dispatch(roomID, playerID, ch, in) {
			return
		}
	}
}

// dispatch applies one inbound message. Returns true when the connection
// should close.
func (s *WSServer) dispatch(roomID, playerID string, ch chan Event, in Inbound) bool {
	switch in.Type {
	case MessageJoin:
		var p JoinPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			s.sendError(roomID, ch, "invalid join payload")
			return false
		}
		if _, err := s.handler.Join(roomID, playerID, p.Name, p.Avatar); err != nil {
			s.sendError(roomID, ch, err.Error())
		}
	case MessageReconnect:
		if _, err := s.handler.Reconnect(roomID, playerID); err != nil {
			s.sendError(roomID, ch, err.Error())
		}
	case MessageStartRound:
		if err := s.handler.StartRound(roomID, playerID); err != nil {
			s.sendError(roomID, ch, err.Error())
		}
	case MessageSubmitText:
		var p SubmitPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			s.sendError(roomID, ch, "invalid submit payload")
			return false
		}
		s.handler.Submit(roomID, playerID, p.Text, p.ElapsedSeconds)
	case MessageLeave:
		if err := s.handler.Leave(roomID, playerID); err != nil {
			s.sendError(roomID, ch, err.Error())
		}
		return true
	default:
		s.sendError(roomID, ch, "unknown message type")
	}
	return false
}

// sendError pushes an error event to one client. A closed or dropped channel
// means the socket is already going away, so a failed send is fine to lose.
func (s *WSServer) sendError(roomID string, ch chan Event, msg string) {
	s.handler.hub.Send(roomID, ch, errorEvent(msg))
}

// writePump is the connection's sole writer. It drains the client channel
// and keeps the connection alive with pings until the channel closes.
func (s *WSServer) writePump(conn *websocket.Conn, ch chan Event) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case ev, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
