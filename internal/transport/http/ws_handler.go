package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
)

// Defaults applied when a start message omits pool or count.
type Defaults struct {
	PoolID string
	Count  int
}

type WSHandler struct {
	service  *app.QuizService
	defaults Defaults
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, defaults Defaults, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service:  service,
		defaults: defaults,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades HTTP requests to websockets and gives each connection its own quiz session.
// If the query names a pool (?poolId=...&count=...) the quiz starts right away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	c := &wsConn{
		handler:    h,
		sessionID:  uuid.NewString(),
		send:       make(chan outboundMessage[any], 16),
		closing:    make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	c.logger = h.logger.With(zap.String("session_id", c.sessionID))
	defer h.service.End(context.Background(), c.sessionID)

	go func() {
		defer close(c.writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				c.logger.Debug("ws write error", zap.Error(err))
				// Unblock the read loop so the connection is torn down.
				_ = conn.Close()
				return
			}
		}
	}()

	c.emit("connected", map[string]string{"sessionId": c.sessionID})

	if poolID := r.URL.Query().Get("poolId"); poolID != "" {
		count, _ := strconv.Atoi(r.URL.Query().Get("count"))
		c.start(ctx, startPayload{PoolID: poolID, Count: count})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		c.dispatch(ctx, inbound)
	}

	c.shutdown()
	close(c.send)
	<-c.writerDone
}

// wsConn holds the per-connection state. send is only written by the read loop and
// the update forwarder; both stop before send is closed. Writes give up once the
// writer goroutine has exited.
type wsConn struct {
	handler    *WSHandler
	sessionID  string
	send       chan outboundMessage[any]
	closing    chan struct{}
	writerDone chan struct{}
	logger     *zap.Logger

	unsubscribe func()
	updatesDone chan struct{}
}

func (c *wsConn) dispatch(ctx context.Context, inbound inboundMessage) {
	svc := c.handler.service
	switch inbound.Type {
	case "start":
		var payload startPayload
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.emitError("invalid start payload")
				return
			}
		}
		c.start(ctx, payload)
	case "confirm":
		var payload confirmPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.emitError("invalid confirm payload")
			return
		}
		res, err := svc.Confirm(ctx, c.sessionID, payload.QuestionID, payload.SelectedIndex)
		c.reportResult(res, err)
	case "timeExpired":
		var payload expirePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			c.emitError("invalid timeExpired payload")
			return
		}
		res, err := svc.Expire(ctx, c.sessionID, payload.QuestionID)
		c.reportResult(res, err)
	case "restart":
		if _, err := svc.Restart(ctx, c.sessionID); err != nil {
			c.emitError(err.Error())
		}
	default:
		c.emitError("unsupported message type")
	}
}

func (c *wsConn) start(ctx context.Context, payload startPayload) {
	if payload.PoolID == "" {
		payload.PoolID = c.handler.defaults.PoolID
	}
	if payload.Count <= 0 {
		payload.Count = c.handler.defaults.Count
	}
	_, err := c.handler.service.Start(ctx, c.sessionID, app.StartRequest{
		PoolID:     payload.PoolID,
		Count:      payload.Count,
		Categories: payload.Categories,
	})
	if err != nil {
		c.emitError(err.Error())
		return
	}
	if c.unsubscribe == nil {
		c.subscribe(ctx)
	}
}

func (c *wsConn) subscribe(ctx context.Context) {
	updates, cancel, err := c.handler.service.Subscribe(ctx, c.sessionID)
	if err != nil {
		c.emitError(err.Error())
		return
	}
	c.unsubscribe = cancel
	c.updatesDone = make(chan struct{})
	go func() {
		defer close(c.updatesDone)
		for {
			select {
			case v, ok := <-updates:
				if !ok {
					return
				}
				if !c.deliver(outboundMessage[any]{Type: "state", Payload: toViewDTO(v)}) {
					return
				}
			case <-c.closing:
				return
			}
		}
	}()
}

func (c *wsConn) reportResult(res domain.QuestionResult, err error) {
	switch {
	case err == nil:
		c.emit("answerResult", toResultDTO(res))
	case domain.IsHarmlessRace(err):
		// The other event source already resolved this question.
		c.logger.Debug("ignored late submission", zap.Error(err))
	case errors.Is(err, domain.ErrSessionNotFound):
		c.emitError("quiz not started")
	default:
		c.emitError(err.Error())
	}
}

func (c *wsConn) shutdown() {
	close(c.closing)
	if c.unsubscribe != nil {
		c.unsubscribe()
		<-c.updatesDone
	}
}

func (c *wsConn) emit(typ string, payload any) {
	if !c.deliver(outboundMessage[any]{Type: typ, Payload: payload}) {
		c.logger.Debug("dropped message for closed connection", zap.String("type", typ))
	}
}

// deliver queues msg for the writer and reports whether it was accepted.
func (c *wsConn) deliver(msg outboundMessage[any]) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.writerDone:
		return false
	case <-c.closing:
		return false
	}
}

func (c *wsConn) emitError(msg string) {
	c.emit("error", errorPayload{Message: msg})
}
