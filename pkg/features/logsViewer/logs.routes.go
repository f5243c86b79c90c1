package logs

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	logsservice "github.com/Gamequic/ProfileDirectory/pkg/features/logsViewer/service"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type handler struct {
	viewer *logsservice.Viewer
	logger *zap.Logger
}

func viewerError(err error) {
	switch {
	case errors.Is(err, logsservice.ErrInvalidDate):
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Date must be in the format YYYY-MM-DD"})
	case errors.Is(err, logsservice.ErrLogNotFound):
		panic(middlewares.HTTPError{Code: http.StatusNotFound, Message: "Log file not found"})
	case errors.Is(err, logsservice.ErrOutsideLogDir):
		panic(middlewares.HTTPError{Code: http.StatusForbidden, Message: "File is outside of the logs directory"})
	default:
		panic(err)
	}
}

func (h *handler) structure(w http.ResponseWriter, r *http.Request) {
	tree, err := h.viewer.Tree()
	if err != nil {
		viewerError(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(tree)
}

// view returns one day's entries, optionally filtered with ?level=warn.
func (h *handler) view(w http.ResponseWriter, r *http.Request) {
	entries, err := h.viewer.Entries(mux.Vars(r)["date"], r.URL.Query().Get("level"))
	if err != nil {
		viewerError(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(entries)
}

// download serves ?path= as a file, or as a zip when it names a folder.
func (h *handler) download(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Path parameter is required"})
	}
	full, info, err := h.viewer.Resolve(rel)
	if err != nil {
		viewerError(err)
	}

	if info.IsDir() {
		w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(full)+".zip")
		w.Header().Set("Content-Type", "application/zip")
		if err := logsservice.ZipDir(w, full); err != nil {
			h.logger.Error("Error zipping logs", zap.String("path", rel), zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+info.Name())
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, full)
}

// Register function

func RegisterSubRoutes(router *mux.Router, viewer *logsservice.Viewer, logger *zap.Logger) {
	h := &handler{viewer: viewer, logger: logger}

	logsRouter := router.PathPrefix("/logs").Subrouter()
	logsRouter.HandleFunc("/structure", h.structure).Methods("GET")
	logsRouter.HandleFunc("/view/{date}", h.view).Methods("GET")
	logsRouter.HandleFunc("/download", h.download).Methods("GET")
}
