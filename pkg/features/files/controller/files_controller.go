package filescontroller

import (
	"encoding/json"
	"errors"
	"net/http"

	fileservice "github.com/Gamequic/ProfileDirectory/pkg/features/files/service"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/gorilla/mux"
)

type Controller struct {
	Storage *fileservice.Storage
}

// GET /files/{filename}
func (c *Controller) GetFile(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, c.Storage.FilePath)
}

// GET /files/thumbs/{filename}
func (c *Controller) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, c.Storage.ThumbnailPath)
}

// GET /files/pending/{filename}
func (c *Controller) GetPendingFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	c.serve(w, r, c.Storage.PendingPath)
}

func (c *Controller) serve(w http.ResponseWriter, r *http.Request, resolve func(string) (string, error)) {
	path, err := resolve(mux.Vars(r)["filename"])
	if err != nil {
		if errors.Is(err, fileservice.ErrFileNotFound) {
			panic(middlewares.HTTPError{Code: http.StatusNotFound, Message: "File not found"})
		}
		panic(middlewares.HTTPError{Code: http.StatusInternalServerError, Message: "Internal server error"})
	}
	http.ServeFile(w, r, path)
}

// POST /api/files/upload
func (c *Controller) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, fileservice.MaxImageBytes+(1<<20))

	if err := r.ParseMultipartForm(fileservice.MaxImageBytes); err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "File too big"})
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Error reading file"})
	}
	defer file.Close()

	ref, err := c.Storage.Stage(file)
	if err != nil {
		if errors.Is(err, fileservice.ErrInvalidImage) {
			panic(middlewares.HTTPError{Code: http.StatusUnsupportedMediaType, Message: err.Error()})
		}
		panic(middlewares.HTTPError{Code: http.StatusInternalServerError, Message: "Error saving file"})
	}

	_, name := fileservice.ParseRef(ref)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"ref":        ref,
		"previewUrl": "/files/pending/" + name,
	})
}
