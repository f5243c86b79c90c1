package profiles

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	fileservice "github.com/Gamequic/ProfileDirectory/pkg/features/files/service"
	profileservice "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/service"
	"github.com/Gamequic/ProfileDirectory/pkg/features/profiles/store"
	profilestruct "github.com/Gamequic/ProfileDirectory/pkg/features/profiles/struct"
	"github.com/Gamequic/ProfileDirectory/utils/middlewares"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annJSON = `{"name":"Ann Lee","email":"ann@x.com","phone":"0612","address":"Paris","description":"d","interests":"i"}`

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	files, err := fileservice.NewStorage(t.TempDir(), nil)
	require.NoError(t, err)
	service := profileservice.NewService(store.NewProfileStore(store.NewMemorySlot(), nil), files, nil, nil)

	router := mux.NewRouter()
	router.Use(middlewares.ErrorHandler)
	RegisterSubRoutes(router.PathPrefix("/api").Subrouter(), service)
	return router
}

func do(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateAndFind(t *testing.T) {
	router := newRouter(t)

	rec := do(router, http.MethodPost, "/api/profiles/", annJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[profilestruct.Profile](t, rec)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "0612", created.Phone)

	rec = do(router, http.MethodGet, "/api/profiles/"+strconv.FormatInt(created.ID, 10), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created, decode[profilestruct.Profile](t, rec))

	rec = do(router, http.MethodGet, "/api/profiles/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]profilestruct.Profile](t, rec), 1)
}

func TestCreateValidation(t *testing.T) {
	router := newRouter(t)

	rec := do(router, http.MethodPost, "/api/profiles/", `{"name":"","email":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[struct {
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	}](t, rec)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Equal(t, "This field is required", body.Fields["name"])
	assert.Equal(t, "Enter a valid email address", body.Fields["email"])

	rec = do(router, http.MethodPost, "/api/profiles/", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdate(t *testing.T) {
	router := newRouter(t)
	created := decode[profilestruct.Profile](t, do(router, http.MethodPost, "/api/profiles/", annJSON))
	path := "/api/profiles/" + strconv.FormatInt(created.ID, 10)

	changed := strings.Replace(annJSON, "Paris", "Lyon", 1)
	rec := do(router, http.MethodPut, path, changed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[profilestruct.Profile](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Lyon", updated.Address)

	rec = do(router, http.MethodPut, "/api/profiles/999", changed)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindOneMissing(t *testing.T) {
	router := newRouter(t)
	rec := do(router, http.MethodGet, "/api/profiles/5", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Profile not found")
}

func TestDeleteIsIdempotent(t *testing.T) {
	router := newRouter(t)
	created := decode[profilestruct.Profile](t, do(router, http.MethodPost, "/api/profiles/", annJSON))
	path := "/api/profiles/" + strconv.FormatInt(created.ID, 10)

	assert.Equal(t, http.StatusOK, do(router, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, path, "").Code)
}

func TestSearch(t *testing.T) {
	router := newRouter(t)
	do(router, http.MethodPost, "/api/profiles/", annJSON)
	do(router, http.MethodPost, "/api/profiles/", strings.Replace(strings.Replace(annJSON, "Ann Lee", "Bob", 1), "Paris", "Berlin", 1))

	rec := do(router, http.MethodGet, "/api/profiles/?q=BER", "")
	list := decode[[]profilestruct.Profile](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].Name)

	rec = do(router, http.MethodGet, "/api/profiles/search?q=par", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hits := decode[[]struct {
		Profile profilestruct.Profile   `json:"profile"`
		Address []profilestruct.Segment `json:"address"`
	}](t, rec)
	require.Len(t, hits, 1)
	assert.Equal(t, []profilestruct.Segment{{Text: "Par", Match: true}, {Text: "is"}}, hits[0].Address)
}

func TestExportImport(t *testing.T) {
	source := newRouter(t)
	do(source, http.MethodPost, "/api/profiles/", annJSON)

	rec := do(source, http.MethodGet, "/api/profiles/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "profiles.xlsx")
	require.NoError(t, err)
	_, err = part.Write(rec.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	target := newRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/profiles/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	imported := httptest.NewRecorder()
	target.ServeHTTP(imported, req)
	require.Equal(t, http.StatusOK, imported.Code, imported.Body.String())
	assert.Equal(t, 1, decode[profilestruct.ImportResult](t, imported).Imported)

	list := decode[[]profilestruct.Profile](t, do(target, http.MethodGet, "/api/profiles/", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "Ann Lee", list[0].Name)
}

func TestHandlersRejectUndecodableBody(t *testing.T) {
	files, err := fileservice.NewStorage(t.TempDir(), nil)
	require.NoError(t, err)
	h := &handler{service: profileservice.NewService(store.NewProfileStore(store.NewMemorySlot(), nil), files, nil, nil)}

	// Mounted without ValidatorHandler so the handlers see the raw body.
	router := mux.NewRouter()
	router.Use(middlewares.ErrorHandler)
	router.HandleFunc("/profiles", h.create).Methods(http.MethodPost)
	router.HandleFunc("/profiles/{id:[0-9]+}", h.update).Methods(http.MethodPut)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/profiles", strings.NewReader(`{"name":`)),
		httptest.NewRequest(http.MethodPut, "/profiles/1", strings.NewReader(`[1,2]`)),
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, req.Method)
		assert.Contains(t, rec.Body.String(), "Invalid request payload", req.Method)
	}
	assert.Empty(t, h.service.List(context.Background()))
}
