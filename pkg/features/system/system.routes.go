package system

import (
	"encoding/json"
	"net/http"
	"time"

	systemservice "github.com/Gamequic/ProfileDirectory/pkg/features/system/service"
	"github.com/Gamequic/ProfileDirectory/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	sampleEvery  = time.Second
	idleTimeout  = 40 * time.Second
	writeTimeout = 10 * time.Second
)

type handler struct {
	newCollector func() *systemservice.Collector
	logger       *zap.Logger
}

func (h *handler) metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(h.newCollector().Collect())
}

// live pushes a sample every second. The page keeps it open by sending
// {"type":"ping"}; after idleTimeout without one the connection is closed.
func (h *handler) live(w http.ResponseWriter, r *http.Request) {
	conn, err := utils.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Could not upgrade to WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	clientActive := make(chan struct{}, 1)
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				h.logger.Debug("Client disconnected from system metrics", zap.Error(err))
				return
			}
			if string(message) == `{"type":"ping"}` {
				select {
				case clientActive <- struct{}{}:
				default:
				}
			}
		}
	}()

	collector := h.newCollector()
	ticker := time.NewTicker(sampleEvery)
	defer ticker.Stop()
	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-gone:
			return
		case <-clientActive:
			idle.Reset(idleTimeout)
		case <-idle.C:
			h.logger.Info("Client is not active, closing system metrics connection")
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(collector.Collect()); err != nil {
				h.logger.Info("Error sending system metrics", zap.Error(err))
				return
			}
		}
	}
}

// Register function

func RegisterSubRoutes(router *mux.Router, newCollector func() *systemservice.Collector, logger *zap.Logger) {
	h := &handler{newCollector: newCollector, logger: logger}

	systemRouter := router.PathPrefix("/system").Subrouter()
	systemRouter.HandleFunc("/metrics", h.metrics).Methods("GET")
	systemRouter.HandleFunc("/live", h.live).Methods("GET")
}
