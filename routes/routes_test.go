package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research_portal_api/app"
	"research_portal_api/apperr"
	"research_portal_api/authz"
	"research_portal_api/controllers"
	"research_portal_api/memstore"
	"research_portal_api/models"
	"research_portal_api/routes"
	"research_portal_api/services"
)

func init() { gin.SetMode(gin.TestMode) }

var principals = map[string]authz.Principal{
	"admin":  {UID: "uid-admin", Email: "admin@uni.edu", Role: authz.RoleAdmin},
	"mentor": {UID: "uid-mentor", Email: "mentor@uni.edu", Role: authz.RoleMentor},
	"ana":    {UID: "uid-ana", Email: "ana@uni.edu", Role: authz.RoleStudent},
	"luis":   {UID: "uid-luis", Email: "luis@uni.edu", Role: authz.RoleStudent},
}

type fakeUsers struct {
	rows    map[string]models.User
	revoked []string
}

func (f *fakeUsers) FindUserByID(_ context.Context, uid string) (*models.User, error) {
	u, ok := f.rows[uid]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return &u, nil
}

func (f *fakeUsers) ListUsers(_ context.Context, _ string, _, _ int) (models.UserPage, error) {
	var out []models.User
	for _, u := range f.rows {
		out = append(out, u)
	}
	return models.UserPage{Users: out, Total: int64(len(out))}, nil
}

func (f *fakeUsers) DeleteUserByID(_ context.Context, uid string) error {
	if _, ok := f.rows[uid]; !ok {
		return apperr.NotFound("user")
	}
	delete(f.rows, uid)
	return nil
}

func (f *fakeUsers) RevokeAllForUser(_ context.Context, uid string) error {
	f.revoked = append(f.revoked, uid)
	return nil
}

type server struct {
	r       *gin.Engine
	users   *fakeUsers
	objects *memstore.Objects
}

// newServer mounts the API with the caller picked by the X-As header.
func newServer(t *testing.T) *server {
	t.Helper()
	log := zap.NewNop()
	inv := memstore.NewInventory()
	objects := memstore.NewObjects("https://pub.example")
	users := &fakeUsers{rows: map[string]models.User{
		"uid-admin": {UID: "uid-admin", Email: "admin@uni.edu", Role: "admin"},
		"uid-ana":   {UID: "uid-ana", Email: "ana@uni.edu", Role: "student"},
	}}
	s := &controllers.Srv{
		Users:      users,
		Tokens:     users,
		Items:      services.NewItemService(inv, objects, log),
		Loans:      services.NewLoanService(inv, log),
		Objects:    objects,
		Log:        log,
		PresignTTL: 10 * time.Minute,
	}

	r := gin.New()
	api := r.Group("/api", func(c *gin.Context) {
		if p, ok := principals[c.GetHeader("X-As")]; ok {
			app.WithPrincipal(p)(c)
			return
		}
		c.Next()
	})
	routes.Mount(api, s)
	books := services.NewPublicationService[models.Book, *models.Book](
		"books", memstore.NewPublications[models.Book, *models.Book](), objects, log)
	controllers.MountPublication(api.Group("/publications/books"), books, log)
	return &server{r: r, users: users, objects: objects}
}

func (s *server) do(t *testing.T, as, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("X-As", as)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestInventoryAndLoanFlow(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, "admin", http.MethodPost, "/api/items",
		`{"description":"Cámara Canon","estado_fisico":"Bueno","estado_admin":"Disponible","cantidad":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.EqualValues(t, 3, body["count"])
	items := body["items"].([]any)
	itemID := items[0].(map[string]any)["id"].(string)

	w, _ = s.do(t, "mentor", http.MethodPost, "/api/items", `{"description":"x","estado_fisico":"Bueno","estado_admin":"Disponible"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, "admin", http.MethodPost, "/api/items",
		`{"description":"Trípode","estado_fisico":"Bueno","estado_admin":"Disponible","cantidad":3,"imagenes":["a.jpg"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "imagenes", body["field"])

	loanBody := `{"item_id":"` + itemID + `","fecha_devolucion":"2999-01-01T00:00:00Z","borrower":{"nombre":"Ana","cedula":"0102","telefono":"0999","correo":"ana@uni.edu","direccion":"Quito"}}`
	w, body = s.do(t, "mentor", http.MethodPost, "/api/loans", loanBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loanID := body["id"].(string)
	assert.Equal(t, "Pendiente", body["estado"])
	assert.Equal(t, "Cámara Canon", body["item"].(map[string]any)["description"])

	w, _ = s.do(t, "mentor", http.MethodPost, "/api/loans", loanBody)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, body = s.do(t, "admin", http.MethodGet, "/api/items/"+itemID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Prestado", body["estado_admin"])

	w, body = s.do(t, "admin", http.MethodGet, "/api/loans?status=Pendiente", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["items"], 1)

	w, body = s.do(t, "ana", http.MethodPost, "/api/loans/"+loanID+"/return", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, "admin", http.MethodPost, "/api/loans/"+loanID+"/return", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Devuelto", body["estado"])

	w, _ = s.do(t, "admin", http.MethodPost, "/api/loans/"+loanID+"/return", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, "admin", http.MethodGet, "/api/loans/not-a-loan", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestItemEndpoints(t *testing.T) {
	s := newServer(t)
	w, body := s.do(t, "admin", http.MethodPost, "/api/items",
		`[{"description":"Laptop","estado_fisico":"Excelente","estado_admin":"Disponible","imagen":"items/laptop.png"}]`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := body["items"].([]any)[0].(map[string]any)["id"].(string)
	s.objects.Put("items/laptop.png")

	w, body = s.do(t, "admin", http.MethodPatch, "/api/items/"+id, `{"estado_admin":"No prestar","observacion":"pantalla rayada"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No prestar", body["estado_admin"])

	w, body = s.do(t, "mentor", http.MethodGet, "/api/items?status=No%20prestar", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["total"])

	w, _ = s.do(t, "ana", http.MethodGet, "/api/items", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, "admin", http.MethodDelete, "/api/items/"+id+"/image", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, body["imagen"])
	assert.False(t, s.objects.Has("items/laptop.png"))
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/api/users/me", "/api/items", "/api/loans", "/api/publications/books/mine"} {
		w, _ := s.do(t, "", http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestUserEndpoints(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, "ana", http.MethodGet, "/api/users/me", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "uid-ana", body["principal"].(map[string]any)["uid"])
	assert.NotNil(t, body["user"])

	w, _ = s.do(t, "ana", http.MethodGet, "/api/users", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, "admin", http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["total"])

	w, _ = s.do(t, "admin", http.MethodDelete, "/api/users/uid-admin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, "admin", http.MethodDelete, "/api/users/uid-ana", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"uid-ana"}, s.users.revoked)

	w, _ = s.do(t, "admin", http.MethodGet, "/api/users/uid-ana", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStorageEndpoints(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, "ana", http.MethodPost, "/api/storage/presign",
		`{"filename":"Mi Portada.JPG","contentType":"image/jpeg","folder":"covers"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	path := body["path"].(string)
	assert.Regexp(t, `^covers/[0-9a-f-]{36}-mi-portada\.jpg$`, path)
	assert.Equal(t, "https://pub.example/"+path, body["publicUrl"])
	assert.EqualValues(t, 600, body["expiresIn"])

	w, _ = s.do(t, "ana", http.MethodPost, "/api/storage/presign", `{"filename":"x.jpg"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.objects.Put("covers/a.jpg")
	w, _ = s.do(t, "ana", http.MethodGet, "/api/storage/objects", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, body = s.do(t, "admin", http.MethodGet, "/api/storage/objects?prefix=covers/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"covers/a.jpg"}, body["keys"])
}

func TestPublicationEndpoints(t *testing.T) {
	s := newServer(t)

	w, body := s.do(t, "ana", http.MethodPost, "/api/publications/books",
		`{"title":"Visión por computador","authors":["Ana","Luis"],"year":2024,"isbn":"978-1","image_path":"foo.jpg"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://pub.example/foo.jpg", body["image"])
	assert.Equal(t, "uid-ana", body["owner"])
	id := body["id"].(float64)
	path := "/api/publications/books/" + jsonNumber(id)

	w, _ = s.do(t, "luis", http.MethodPatch, path, `{"title":"Robado"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = s.do(t, "admin", http.MethodDelete, path, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = s.do(t, "ana", http.MethodPatch, path, `{"title":"Visión artificial"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Visión artificial", body["title"])
	assert.Equal(t, "978-1", body["isbn"])
	assert.Equal(t, []any{"Ana", "Luis"}, body["authors"])

	w, _ = s.do(t, "ana", http.MethodPatch, path, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = s.do(t, "luis", http.MethodGet, "/api/publications/books/mine", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["items"])

	w, _ = s.do(t, "ana", http.MethodGet, "/api/publications/books", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, body = s.do(t, "mentor", http.MethodGet, "/api/publications/books", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["items"], 1)

	w, _ = s.do(t, "ana", http.MethodDelete, path+"/file", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, "ana", http.MethodDelete, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"foo.jpg"}, s.objects.Deleted())

	w, _ = s.do(t, "ana", http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, "ana", http.MethodGet, "/api/publications/books/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(int64(f))
	return string(b)
}
