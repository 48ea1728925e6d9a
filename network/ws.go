package network

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"artillery/protocol"
)

const (
	readLimit    = 1 << 20
	pongWait     = 60 * time.Second
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// LAN only; peers are not browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// websocket serves the same operations as the HTTP routes, one request envelope in and
// one response envelope out, in order.
func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Println("read:", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		b, err := s.dispatch(msg)
		if err != nil {
			log.Println("encode:", err)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Println("write:", err)
			return
		}
	}
}

func (s *Server) dispatch(msg []byte) ([]byte, error) {
	env, err := protocol.DecodeEnvelope(msg)
	if err != nil {
		return protocol.Encode(protocol.MsgError, protocol.Error{Message: err.Error()})
	}

	switch env.T {
	case protocol.MsgStatus:
		return protocol.Encode(protocol.MsgStatus, s.store.Status())

	case protocol.MsgReadPlayers:
		return protocol.Encode(protocol.MsgPlayers, protocol.Players{
			V:       protocol.Version,
			Match:   s.store.MatchID(),
			Players: s.store.Players(),
		})

	case protocol.MsgUpsertPlayer:
		req, err := protocol.DecodePayload[protocol.UpsertPlayer](env)
		if err != nil {
			return encodeError(err)
		}
		if err := req.Player.Validate(); err != nil {
			return encodeError(err)
		}
		if err := s.store.UpsertPlayer(req.Player); err != nil {
			return encodeError(err)
		}
		return protocol.Encode(protocol.MsgAck, protocol.Ack{OK: true})

	case protocol.MsgAddProjectile:
		req, err := protocol.DecodePayload[protocol.AddProjectile](env)
		if err != nil {
			return encodeError(err)
		}
		if err := req.Projectile.Validate(); err != nil {
			return encodeError(err)
		}
		seq, err := s.store.AppendProjectile(req.Projectile)
		if err != nil {
			return encodeError(err)
		}
		return protocol.Encode(protocol.MsgAppended, protocol.Appended{Seq: seq})

	case protocol.MsgReadProjectiles:
		req, err := protocol.DecodePayload[protocol.ReadProjectiles](env)
		if err != nil {
			return encodeError(err)
		}
		recs, next := s.store.ProjectilesAfter(req.After)
		if recs == nil {
			recs = []protocol.ProjectileRecord{}
		}
		return protocol.Encode(protocol.MsgProjectiles, protocol.Projectiles{
			V:           protocol.Version,
			Match:       s.store.MatchID(),
			After:       req.After,
			Next:        next,
			Projectiles: recs,
		})
	}
	return protocol.Encode(protocol.MsgError, protocol.Error{Message: "unknown message type " + env.T})
}

func encodeError(err error) ([]byte, error) {
	e := protocol.Error{Message: err.Error()}
	var fe *protocol.FieldError
	if errors.As(err, &fe) {
		e.Field = fe.Field
	}
	return protocol.Encode(protocol.MsgError, e)
}
