package notifications

import (
	"net/http"
	"time"

	notificationservice "github.com/Gamequic/ProfileDirectory/pkg/features/notifications/service"
	"github.com/Gamequic/ProfileDirectory/utils"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

type handler struct {
	publisher notificationservice.Publisher
	logger    *zap.Logger
}

// live streams every collection change to the page until it disconnects.
func (h *handler) live(w http.ResponseWriter, r *http.Request) {
	conn, err := utils.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Could not upgrade to WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	changes, cancel, err := h.publisher.Subscribe(r.Context())
	if err != nil {
		h.logger.Error("Could not subscribe to changes", zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer cancel()

	// The page never sends anything; reading only notices the disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.logger.Debug("Client disconnected from changes", zap.Error(err))
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(change); err != nil {
				h.logger.Info("Error writing change to WebSocket", zap.Error(err))
				return
			}
		}
	}
}

// Register function

func RegisterSubRoutes(router *mux.Router, publisher notificationservice.Publisher, logger *zap.Logger) {
	h := &handler{publisher: publisher, logger: logger}

	notificationsRouter := router.PathPrefix("/notifications").Subrouter()
	notificationsRouter.HandleFunc("/live", h.live).Methods("GET")
}
