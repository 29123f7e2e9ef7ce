package realtime

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"sealchat/pkg/logger"
)

// ServeWS upgrades the request to a websocket and streams every envelope
// published on the requested channels until the peer disconnects or ctx
// is canceled.
func ServeWS(ctx context.Context, hub *Hub, w http.ResponseWriter, r *http.Request, channels []string) error {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	subs := make([]*Subscription, 0, len(channels))
	merged := make(chan Envelope, 64)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, ch := range channels {
		s := hub.Subscribe(ch)
		subs = append(subs, s)
		go func(s *Subscription) {
			for {
				select {
				case <-ctx.Done():
					return
				case env := <-s.C:
					select {
					case merged <- env:
					case <-ctx.Done():
						return
					}
				}
			}
		}(s)
	}
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	// read loop only to observe peer close
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(25 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return conn.Close(websocket.StatusNormalClosure, "bye")
		case <-ping.C:
			pingCtx, pcancel := context.WithTimeout(ctx, 5*time.Second)
			if err := conn.Ping(pingCtx); err != nil {
				pcancel()
				return err
			}
			pcancel()
		case env := <-merged:
			writeCtx, wcancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, env)
			wcancel()
			if err != nil {
				logger.Debug("ws_write_failed", "error", err)
				return err
			}
		}
	}
}
