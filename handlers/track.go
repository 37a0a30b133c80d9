package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"saborlimeno/gorest/logging"
)

const (
	writeWait            = 10 * time.Second
	defaultTrackInterval = 3 * time.Second
)

var trackingSockets, _ = otel.Meter("saborlimeno/handlers").Int64UpDownCounter(
	"tracking_sockets_active",
	metric.WithDescription("Open order tracking websockets"),
)

// trackOrder upgrades to a websocket and pushes the order view on every tick
// until the order reaches a terminal status or the client goes away.
func (a *API) trackOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	view, err := a.Orders.GetView(ctx, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.originAllowed,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		return
	}
	defer conn.Close()
	trackingSockets.Add(ctx, 1)
	defer trackingSockets.Add(ctx, -1)
	log := logging.FromContext(ctx).With("order_id", id)

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := a.TrackInterval
	if interval <= 0 {
		interval = defaultTrackInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(view); err != nil {
			log.Debug("tracking socket write failed", "error", err)
			return
		}
		if view.Status.Terminal() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(view.Status))
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}

		select {
		case <-gone:
			return
		case <-ticker.C:
		}
		if view, err = a.Orders.GetView(ctx, id); err != nil {
			log.Warn("tracking lookup failed", "error", err)
			return
		}
	}
}
