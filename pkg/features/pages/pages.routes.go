package pages

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	fileservice "github.com/Gamequic/ProfileDirectory/pkg/features/files/service"
	profileservice "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/service"
	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const maxFormBytes = fileservice.MaxImageBytes + 1<<20

var pageTemplates = map[string]*template.Template{
	"list":   parsePage("list.html"),
	"form":   parsePage("form.html"),
	"delete": parsePage("delete.html"),
	"detail": parsePage("detail.html"),
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

type handler struct {
	profiles *profileservice.Service
	storage  *fileservice.Storage
	logger   *zap.Logger
}

// render writes page fully or not at all.
func (h *handler) render(w http.ResponseWriter, status int, page string, data interface{}) {
	var buf bytes.Buffer
	if err := pageTemplates[page].Execute(&buf, data); err != nil {
		h.logger.Error("Error rendering page", zap.String("page", page), zap.Error(err))
		panic(err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "detail", DetailView{Error: "Page not found"})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

// Lists

func (h *handler) list(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := RenderList(ListState{
			Profiles: h.profiles.List(r.Context()),
			Query:    r.URL.Query().Get("q"),
			Admin:    admin,
		})
		h.render(w, http.StatusOK, "list", view)
	}
}

func (h *handler) detail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	profile, err := h.profiles.FindOne(r.Context(), id)
	if err != nil {
		if !profileservice.IsNotFound(err) {
			panic(err)
		}
		h.render(w, http.StatusNotFound, "detail", RenderDetail(profile, err, !h.profiles.Stored(r.Context())))
		return
	}
	h.render(w, http.StatusOK, "detail", RenderDetail(profile, nil, false))
}

// Form

func (h *handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "form", RenderForm(FormState{}))
}

func (h *handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	profile, err := h.profiles.FindOne(r.Context(), id)
	if err != nil {
		h.notFound(w, r)
		return
	}
	h.render(w, http.StatusOK, "form", RenderForm(FormState{ID: id, Draft: profile.Draft()}))
}

// readForm collects the submitted draft. A newly chosen image is staged and
// replaces the previous pending one.
func (h *handler) readForm(r *http.Request) (profilestruct.ProfileDraft, map[string]string) {
	draft := profilestruct.ProfileDraft{
		Name:        strings.TrimSpace(r.PostFormValue("name")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
		Phone:       strings.TrimSpace(r.PostFormValue("phone")),
		Address:     strings.TrimSpace(r.PostFormValue("address")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Interests:   strings.TrimSpace(r.PostFormValue("interests")),
		ImageFile:   r.PostFormValue("imageRef"),
	}

	file, header, err := r.FormFile("imageFile")
	if err != nil || header.Size == 0 {
		if file != nil {
			file.Close()
		}
		return draft, nil
	}
	defer file.Close()

	ref, err := h.storage.Stage(file)
	if err != nil {
		h.logger.Info("Rejected profile image", zap.String("filename", header.Filename), zap.Error(err))
		return draft, map[string]string{"imageFile": "Upload a JPEG, PNG, GIF, BMP or TIFF image"}
	}
	if state, _ := fileservice.ParseRef(draft.ImageFile); state == fileservice.RefPending {
		h.storage.Discard(draft.ImageFile)
	}
	draft.ImageFile = ref
	return draft, nil
}

// submit handles both create (id zero) and update.
func (h *handler) submit(w http.ResponseWriter, r *http.Request, id int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "File too big"})
	}

	draft, fieldErrors := h.readForm(r)
	if fieldErrors != nil {
		h.render(w, http.StatusBadRequest, "form", RenderForm(FormState{ID: id, Draft: draft, Errors: fieldErrors}))
		return
	}

	var err error
	if id == 0 {
		_, err = h.profiles.Create(r.Context(), draft)
	} else {
		_, err = h.profiles.Update(r.Context(), id, draft)
	}

	var verr *profileservice.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	case errors.As(err, &verr):
		h.render(w, http.StatusBadRequest, "form", RenderForm(FormState{ID: id, Draft: draft, Errors: verr.Fields}))
	case profileservice.IsNotFound(err):
		h.notFound(w, r)
	case errors.Is(err, fileservice.ErrFileNotFound):
		draft.ImageFile = ""
		errs := map[string]string{"imageFile": "The uploaded image expired, choose it again"}
		h.render(w, http.StatusBadRequest, "form", RenderForm(FormState{ID: id, Draft: draft, Errors: errs}))
	default:
		panic(err)
	}
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, 0)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	h.submit(w, r, id)
}

// Delete

func (h *handler) confirmDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	profile, err := h.profiles.FindOne(r.Context(), id)
	if err != nil {
		h.notFound(w, r)
		return
	}
	h.render(w, http.StatusOK, "delete", profile)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.profiles.Delete(r.Context(), id); err != nil {
		panic(err)
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// importSheet loads profiles from an uploaded workbook and returns to the admin list.
func (h *handler) importSheet(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)
	file, _, err := r.FormFile("file")
	if err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: "Error reading file"})
	}
	defer file.Close()

	result, err := h.profiles.Import(r.Context(), file)
	if err != nil {
		panic(middlewares.HTTPError{Code: http.StatusBadRequest, Message: err.Error()})
	}
	h.logger.Info("Profiles imported from form", zap.Int("imported", result.Imported), zap.Int("rejected", len(result.RejectedRows)))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Register function

// RegisterRoutes mounts the HTML pages on the root router and makes it answer
// unknown paths with the not-found page.
func RegisterRoutes(router *mux.Router, profiles *profileservice.Service, storage *fileservice.Storage, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{profiles: profiles, storage: storage, logger: logger}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	router.HandleFunc("/", h.list(false)).Methods("GET")
	router.HandleFunc("/profile/{id}", h.detail).Methods("GET")

	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.HandleFunc("", h.list(true)).Methods("GET")
	adminRouter.HandleFunc("/", h.list(true)).Methods("GET")
	adminRouter.HandleFunc("/import", h.importSheet).Methods("POST")
	adminRouter.HandleFunc("/profiles/new", h.newForm).Methods("GET")
	adminRouter.HandleFunc("/profiles", h.create).Methods("POST")
	adminRouter.HandleFunc("/profiles/{id}/edit", h.editForm).Methods("GET")
	adminRouter.HandleFunc("/profiles/{id}", h.update).Methods("POST")
	adminRouter.HandleFunc("/profiles/{id}/delete", h.confirmDelete).Methods("GET")
	adminRouter.HandleFunc("/profiles/{id}/delete", h.delete).Methods("POST")

	router.NotFoundHandler = http.HandlerFunc(h.notFound)
}
