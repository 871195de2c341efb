package rpc

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nativeswap/core/tx"
	"nativeswap/core/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsEventBuffer  = 64
)

// eventView is the JSON shape of one emitted record.
type eventView struct {
	Type         string `json:"type"`
	Pair         string `json:"pair,omitempty"`
	Asset        string `json:"asset"`
	Account      string `json:"account"`
	NativeAmount string `json:"nativeAmount,omitempty"`
	AssetAmount  string `json:"assetAmount,omitempty"`
	Shares       string `json:"shares,omitempty"`
}

func viewOf(ev tx.Event) eventView {
	v := eventView{
		Type:    ev.Type.String(),
		Asset:   ev.Asset.Hex(),
		Account: ev.Account.Hex(),
	}
	if ev.Pair != types.ZeroAddress {
		v.Pair = ev.Pair.Hex()
	}
	if ev.NativeAmount != nil {
		v.NativeAmount = ev.NativeAmount.String()
	}
	if ev.AssetAmount != nil {
		v.AssetAmount = ev.AssetAmount.String()
	}
	if ev.Shares != nil {
		v.Shares = ev.Shares.String()
	}
	return v
}

// handleWS streams operation events to a websocket client until it
// disconnects or falls too far behind.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch := make(chan []tx.Event, wsEventBuffer)
	sub := s.backend.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	// Drain reads so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Unsubscribe()
				return
			}
		}
	}()

	for {
		select {
		case events, ok := <-ch:
			if !ok {
				return
			}
			views := make([]eventView, 0, len(events))
			for _, ev := range events {
				views = append(views, viewOf(ev))
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(views); err != nil {
				return
			}
		case err := <-sub.Err():
			if err != nil {
				s.log.Debug("event subscription error", zap.Error(err))
			}
			return
		}
	}
}
