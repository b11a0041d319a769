// Package ws serves the streaming price subscription endpoint.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"QuotePulse/internal/domain/models"
	drepo "QuotePulse/internal/domain/repository"
	"QuotePulse/internal/service/fanout"
	xhttp "QuotePulse/pkg/http"
	applogger "QuotePulse/pkg/logger"
)

// Handler upgrades authenticated connections and dispatches their
// subscription commands to the fan-out manager.
type Handler struct {
	upgrader websocket.Upgrader
	fanout   *fanout.Manager
	verifier drepo.TokenVerifier
	fetcher  drepo.QuoteFetcher
	cache    drepo.QuoteCache
	log      *applogger.Logger
}

var _ xhttp.Handler = (*Handler)(nil)

// NewHandler creates the WebSocket handler.
func NewHandler(
	fanout *fanout.Manager,
	verifier drepo.TokenVerifier,
	fetcher drepo.QuoteFetcher,
	cache drepo.QuoteCache,
	log *applogger.Logger,
) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		fanout:   fanout,
		verifier: verifier,
		fetcher:  fetcher,
		cache:    cache,
		log:      log,
	}
}

// RegisterRoutes registers the streaming endpoint.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Serve)
}

// Serve authenticates via the token query parameter, upgrades the
// connection and runs its read loop until the peer goes away.
func (h *Handler) Serve(c echo.Context) error {
	identity, err := h.verifier.Verify(c.QueryParam("token"))
	if err != nil {
		return xhttp.UnauthorizedResponse(c, "invalid token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}

	client := newClient(conn, identity, h.log)
	h.log.Info("listener connected",
		applogger.String("client", client.id),
		applogger.String("subject", identity.Subject))

	go client.writePump()
	h.readPump(c, client)
	return nil
}

// readPump consumes commands until the connection closes, then drops
// every subscription the connection held.
func (h *Handler) readPump(c echo.Context, client *Client) {
	ctx := c.Request().Context()
	conn := client.conn

	defer func() {
		h.fanout.Drop(ctx, client)
		client.close()
		h.log.Info("listener disconnected", applogger.String("client", client.id))
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("connection read error", applogger.String("client", client.id), applogger.Error(err))
			}
			return
		}

		var req models.WSRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			client.sendError("malformed request")
			continue
		}
		h.dispatch(c, client, &req)
	}
}

// dispatch handles one command. Bad commands answer with an error
// event and leave the connection open.
func (h *Handler) dispatch(c echo.Context, client *Client, req *models.WSRequest) {
	ctx := c.Request().Context()

	switch req.Action {
	case models.ActionSubscribe:
		sym, err := h.fanout.Subscribe(ctx, client, req.Symbol)
		if err != nil {
			client.sendError(err.Error())
			return
		}
		client.sendObject(models.EventSubscribed, models.WSSymbolAck{Symbol: sym})
		h.pushCurrent(c, client, sym)

	case models.ActionUnsubscribe:
		sym, err := h.fanout.Unsubscribe(ctx, client, req.Symbol)
		if err != nil {
			client.sendError(err.Error())
			return
		}
		client.sendObject(models.EventUnsubscribed, models.WSSymbolAck{Symbol: sym})

	case models.ActionGetSubscriptions:
		symbols := h.fanout.Subscriptions(client)
		if symbols == nil {
			symbols = []string{}
		}
		client.sendObject(models.EventSubscriptions, models.WSSubscriptions{Symbols: symbols})

	default:
		client.sendError("unknown action: " + req.Action)
	}
}

// pushCurrent sends the symbol's current quote right after subscribe
// so the listener has a price before the next refresh tick.
func (h *Handler) pushCurrent(c echo.Context, client *Client, symbol string) {
	ctx := c.Request().Context()

	q, err := h.cache.Get(ctx, symbol)
	if err != nil {
		if !errors.Is(err, drepo.ErrCacheMiss) {
			h.log.Warn("cache read failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
		q = h.fetcher.GetQuote(ctx, symbol)
	}
	client.sendObject(models.EventPriceUpdate, q)
}
