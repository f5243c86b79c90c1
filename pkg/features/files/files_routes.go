package files

import (
	filescontroller "github.com/Gamequic/ProfileDirectory/pkg/features/files/controller"
	fileservice "github.com/Gamequic/ProfileDirectory/pkg/features/files/service"

	"github.com/gorilla/mux"
)

// RegisterFileRoutes serves stored images from the root router.
func RegisterFileRoutes(router *mux.Router, storage *fileservice.Storage) {
	c := &filescontroller.Controller{Storage: storage}

	filesRouter := router.PathPrefix("/files").Subrouter()
	filesRouter.HandleFunc("/pending/{filename}", c.GetPendingFile).Methods("GET")
	filesRouter.HandleFunc("/thumbs/{filename}", c.GetThumbnail).Methods("GET")
	filesRouter.HandleFunc("/{filename}", c.GetFile).Methods("GET")
}

// RegisterSubRoutes adds the upload endpoint to the API router.
func RegisterSubRoutes(router *mux.Router, storage *fileservice.Storage) {
	c := &filescontroller.Controller{Storage: storage}

	filesRouter := router.PathPrefix("/files").Subrouter()
	filesRouter.HandleFunc("/upload", c.UploadFile).Methods("POST")
}
