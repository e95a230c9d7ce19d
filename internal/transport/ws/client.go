package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"auction-node/internal/domain"
	"auction-node/pkg/logger"
	"auction-node/pkg/utils"

	"github.com/gorilla/websocket"
)

// Dialer opens RPC sessions to peer nodes. Origin is this node's public
// identity; it is stamped on every outbound request so the receiving node
// knows replication traffic from client traffic. A client-side dialer uses
// an empty origin.
type Dialer struct {
	Origin string
	Log    logger.Logger
}

func (d *Dialer) Dial(ctx context.Context, address string) (domain.Transport, error) {
	endpoint := url.URL{Scheme: "ws", Host: address, Path: "/rpc"}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint.String(), err)
	}

	d.Log.Debug("RPC session dialed", "address", address)
	return &Conn{conn: conn, origin: d.Origin, log: d.Log}, nil
}

// Conn is one live session to a peer. Requests are strictly sequential on a
// session: the write and the matching read happen under one mutex, which is
// the per-session ordering the protocol relies on.
type Conn struct {
	conn   *websocket.Conn
	origin string
	mu     sync.Mutex
	log    logger.Logger
}

func (c *Conn) Send(ctx context.Context, action domain.Action, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.WrapError(domain.KindMalformedRequest, err, "encode %s payload", action)
	}

	request := Request{
		ID:      utils.GenerateID("req"),
		Action:  action,
		Origin:  c.origin,
		Payload: body,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		c.conn.SetReadDeadline(deadline)
	}

	if err := c.conn.WriteJSON(request); err != nil {
		return nil, domain.WrapError(domain.KindChannelClosed, err, "write %s request", action)
	}

	var response Response
	if err := c.conn.ReadJSON(&response); err != nil {
		return nil, domain.WrapError(domain.KindChannelClosed, err, "read %s response", action)
	}

	if response.ID != request.ID {
		// A stray frame means the session's request/response pairing is
		// broken; treat the session as dead.
		return nil, domain.NewError(domain.KindChannelClosed,
			"response id %s does not match request id %s", response.ID, request.ID)
	}

	if !response.Success {
		return nil, responseError(response.Error)
	}
	return response.Result, nil
}

func (c *Conn) Close() error {
	return c.conn.Close()
}
