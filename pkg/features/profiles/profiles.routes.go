package profiles

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	fileservice "github.com/Gamequic/ProfileDirectory/pkg/features/files/service"
	profileservice "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/service"
	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/gorilla/mux"
)

type handler struct {
	service *profileservice.Service
}

// ParseID reads the {id} route variable.
func ParseID(r *http.Request) int64 {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Invalid profile ID"})
	}
	return id
}

// ServiceError turns a service error into the HTTPError panic the ErrorHandler expects.
func ServiceError(err error) {
	var verr *profileservice.ValidationError
	switch {
	case errors.As(err, &verr):
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Validation failed", Fields: verr.Fields})
	case profileservice.IsNotFound(err):
		panic(middlewares.HTTPError{Code: http.StatusNotFound, Message: "Profile not found"})
	case errors.Is(err, fileservice.ErrFileNotFound), errors.Is(err, fileservice.ErrInvalidImage):
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: err.Error()})
	default:
		panic(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CRUD

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var draft profilestruct.ProfileDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Invalid request payload"})
	}

	profile, err := h.service.Create(r.Context(), draft)
	if err != nil {
		ServiceError(err)
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	id := ParseID(r)

	var draft profilestruct.ProfileDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Invalid request payload"})
	}

	profile, err := h.service.Update(r.Context(), id, draft)
	if err != nil {
		ServiceError(err)
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) findOne(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.FindOne(r.Context(), ParseID(r))
	if err != nil {
		ServiceError(err)
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) find(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Search(r.Context(), r.URL.Query().Get("q")))
}

// search returns matches with their highlighted name, email and address.
func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	type hit struct {
		Profile profilestruct.Profile   `json:"profile"`
		Name    []profilestruct.Segment `json:"name"`
		Email   []profilestruct.Segment `json:"email"`
		Address []profilestruct.Segment `json:"address"`
	}

	q := r.URL.Query().Get("q")
	matches := h.service.Search(r.Context(), q)
	hits := make([]hit, 0, len(matches))
	for _, p := range matches {
		hits = append(hits, hit{
			Profile: p,
			Name:    profileservice.Highlight(p.Name, q),
			Email:   profileservice.Highlight(p.Email, q),
			Address: profileservice.Highlight(p.Address, q),
		})
	}
	writeJSON(w, http.StatusOK, hits)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), ParseID(r)); err != nil {
		ServiceError(err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Profile deleted successfully"})
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	filename := "profiles-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	if err := h.service.Export(r.Context(), w); err != nil {
		panic(err)
	}
}

func (h *handler) importSheet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "File too big"})
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Error reading file"})
	}
	defer file.Close()

	result, err := h.service.Import(r.Context(), file)
	if err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: err.Error()})
	}
	writeJSON(w, http.StatusOK, result)
}

// Register function

func RegisterSubRoutes(router *mux.Router, service *profileservice.Service) {
	h := &handler{service: service}
	profilesRouter := router.PathPrefix("/profiles").Subrouter()

	// ValidatorHandler - Create, Update
	profilesValidator := profilesRouter.NewRoute().Subrouter()
	profilesValidator.Use(middlewares.ValidatorHandler(reflect.TypeOf(profilestruct.ProfileDraft{})))
	profilesValidator.HandleFunc("/", h.create).Methods("POST")
	profilesValidator.HandleFunc("/{id:[0-9]+}", h.update).Methods("PUT")

	profilesRouter.HandleFunc("/", h.find).Methods("GET")
	profilesRouter.HandleFunc("/search", h.search).Methods("GET")
	profilesRouter.HandleFunc("/export", h.export).Methods("GET")
	profilesRouter.HandleFunc("/import", h.importSheet).Methods("POST")
	profilesRouter.HandleFunc("/{id:[0-9]+}", h.findOne).Methods("GET")
	profilesRouter.HandleFunc("/{id:[0-9]+}", h.delete).Methods("DELETE")
}
