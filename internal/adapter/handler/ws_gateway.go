package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/guild-bag/internal/bot"
	"github.com/rl1809/guild-bag/internal/core/domain"
)

const (
	ChatPath = "/v1/chat"

	TypeMessage = "message"
	TypeReply   = "reply"

	chatReadTimeout  = 5 * time.Minute
	chatWriteTimeout = 5 * time.Second
)

// ChatMessage is what a chat client sends for every message in a channel.
type ChatMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Author  string `json:"author"`
	Channel string `json:"channel"`
	Content string `json:"content"`
}

type ChatReply struct {
	Type    string `json:"type"`
	ReplyTo string `json:"reply_to"`
	Channel string `json:"channel"`
	Content string `json:"content"`
}

// WSGateway accepts chat connections and answers bot commands on them.
type WSGateway struct {
	dispatcher Submitter
	token      string
	log        *logrus.Entry

	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func NewWSGateway(dispatcher Submitter, token string, log *logrus.Entry) *WSGateway {
	return &WSGateway{
		dispatcher: dispatcher,
		token:      token,
		log:        log,
		conns:      make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (g *WSGateway) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !tokenMatches(r.Header.Get("Authorization"), g.token) {
			http.Error(rw, "unauthorized", http.StatusUnauthorized)
			return
		}

		g.mu.Lock()
		closed := g.closed
		g.mu.Unlock()
		if closed {
			http.Error(rw, "shutting down", http.StatusServiceUnavailable)
			return
		}

		conn, err := g.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		if !g.track(conn) {
			goingAway(conn)
			conn.Close()
			return
		}
		defer g.untrack(conn)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		log := g.log.WithField("remote", r.RemoteAddr)
		log.Debug("chat client connected")

		for {
			_ = conn.SetReadDeadline(time.Now().Add(chatReadTimeout))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Debug("chat read ended")
				}
				return
			}

			var msg ChatMessage
			if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != TypeMessage {
				continue
			}

			reply, err := g.dispatcher.Submit(ctx, domain.Request{
				ID:      msg.ID,
				Author:  msg.Author,
				Channel: msg.Channel,
				Text:    msg.Content,
			})
			if err != nil {
				if errors.Is(err, bot.ErrDispatcherClosed) {
					goingAway(conn)
					return
				}
				log.WithError(err).Warn("submit failed")
				continue
			}
			if reply.Content == "" {
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(chatWriteTimeout))
			if err := conn.WriteJSON(ChatReply{
				Type:    TypeReply,
				ReplyTo: msg.ID,
				Channel: msg.Channel,
				Content: reply.Content,
			}); err != nil {
				return
			}
		}
	}
}

func (g *WSGateway) track(conn *websocket.Conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[conn] = struct{}{}
	return true
}

func (g *WSGateway) untrack(conn *websocket.Conn) {
	g.mu.Lock()
	delete(g.conns, conn)
	g.mu.Unlock()
	conn.Close()
}

// Close refuses new chat connections and sends a going-away close frame to
// every live one. http.Server.Shutdown does not touch hijacked connections,
// so the server calls this during shutdown.
func (g *WSGateway) Close() {
	g.mu.Lock()
	g.closed = true
	conns := make([]*websocket.Conn, 0, len(g.conns))
	for conn := range g.conns {
		conns = append(conns, conn)
	}
	g.mu.Unlock()

	for _, conn := range conns {
		goingAway(conn)
		conn.Close()
	}
}

func goingAway(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
		time.Now().Add(time.Second))
}
