package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Dispatcher executes one decoded RPC request against the node.
type Dispatcher interface {
	Dispatch(ctx context.Context, action domain.Action, origin string, payload json.RawMessage) (interface{}, error)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Peer endpoints connect from their own hosts.
	},
}

// Server exposes the RPC actions over websocket sessions. Each session runs
// its own read loop; requests within a session are handled in order.
type Server struct {
	dispatcher Dispatcher
	log        logger.Logger
}

func NewServer(dispatcher Dispatcher, log logger.Logger) *Server {
	return &Server{dispatcher: dispatcher, log: log}
}

// HandleConnection is the echo route handler for the /rpc endpoint.
func (s *Server) HandleConnection(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Error("Failed to upgrade connection", "error", err, "remote_addr", c.RealIP())
		return err
	}

	go s.serveSession(conn, c.RealIP())
	return nil
}

func (s *Server) serveSession(conn *websocket.Conn, remoteAddr string) {
	defer conn.Close()

	s.log.Info("RPC session opened", "remote_addr", remoteAddr)

	for {
		var request Request
		if err := conn.ReadJSON(&request); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warn("RPC session closed unexpectedly", "remote_addr", remoteAddr, "error", err)
			} else {
				s.log.Info("RPC session closed", "remote_addr", remoteAddr)
			}
			return
		}

		response := s.handle(&request)
		if err := conn.WriteJSON(response); err != nil {
			s.log.Error("Failed to write response", "remote_addr", remoteAddr, "request_id", request.ID, "error", err)
			return
		}
	}
}

func (s *Server) handle(request *Request) Response {
	result, err := s.dispatcher.Dispatch(context.Background(), request.Action, request.Origin, request.Payload)
	if err != nil {
		return Response{ID: request.ID, Success: false, Error: errorPayload(err)}
	}

	body, err := json.Marshal(result)
	if err != nil {
		s.log.Error("Failed to encode result", "request_id", request.ID, "error", err)
		return Response{ID: request.ID, Success: false, Error: errorPayload(err)}
	}
	return Response{ID: request.ID, Success: true, Result: body}
}
