package maps

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	mapservice "github.com/Gamequic/ProfileDirectory/pkg/features/maps/service"
	profileservice "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/service"
	"github.com/Gamequic/ProfileDirectory/utils"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

type handler struct {
	locator  mapservice.Locator
	profiles *profileservice.Service
	tileURL  string
	logger   *zap.Logger
}

// openRequest is what the page sends to show a profile's or an address's location.
type openRequest struct {
	ProfileID int64  `json:"profileId,omitempty"`
	Address   string `json:"address,omitempty"`
}

// message is what the server sends back.
type message struct {
	Type  string            `json:"type"`
	Name  string            `json:"name,omitempty"`
	State *mapservice.State `json:"state,omitempty"`
	Error string            `json:"error,omitempty"`
}

// locate looks up ?address= (or the address of profile ?id=) and waits for the answer.
func (h *handler) locate(w http.ResponseWriter, r *http.Request) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if idParam := r.URL.Query().Get("id"); idParam != "" {
		id, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil {
			panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Invalid profile ID"})
		}
		profile, err := h.profiles.FindOne(r.Context(), id)
		if err != nil {
			panic(middlewares.HTTPError{Code: http.StatusNotFound, Message: "Profile not found"})
		}
		address = profile.Address
	}
	if address == "" {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "address is required"})
	}

	state := mapservice.Locate(r.Context(), h.locator, h.tileURL, address, h.logger)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(state)
}

// live keeps one map view per connection. Each request replaces the shown location.
func (h *handler) live(w http.ResponseWriter, r *http.Request) {
	conn, err := utils.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Could not upgrade to WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(m message) {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(m); err != nil {
			h.logger.Debug("Error writing map state", zap.Error(err))
		}
	}

	view := mapservice.NewView(h.locator, h.tileURL, h.logger, func(s mapservice.State) {
		send(message{Type: "state", State: &s})
	})
	defer view.Close()

	for {
		var req openRequest
		if err := conn.ReadJSON(&req); err != nil {
			h.logger.Debug("Client disconnected from map", zap.Error(err))
			return
		}

		address, name := strings.TrimSpace(req.Address), ""
		if req.ProfileID != 0 {
			profile, err := h.profiles.FindOne(r.Context(), req.ProfileID)
			if err != nil {
				send(message{Type: "error", Error: "Profile not found"})
				continue
			}
			address, name = profile.Address, profile.Name
		}
		if address == "" {
			send(message{Type: "error", Error: "address is required"})
			continue
		}

		send(message{Type: "open", Name: name})
		view.Open(r.Context(), address)
	}
}

// Register function

func RegisterSubRoutes(router *mux.Router, locator mapservice.Locator, profiles *profileservice.Service, tileURL string, logger *zap.Logger) {
	h := &handler{locator: locator, profiles: profiles, tileURL: tileURL, logger: logger}

	mapsRouter := router.PathPrefix("/maps").Subrouter()
	mapsRouter.HandleFunc("/locate", h.locate).Methods("GET")
	mapsRouter.HandleFunc("/live", h.live).Methods("GET")
}
