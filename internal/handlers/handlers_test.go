package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/anonto42/socialape/backend/internal/blob"
	"github.com/anonto42/socialape/backend/internal/cache"
	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/events"
	"github.com/anonto42/socialape/backend/internal/handlers"
	"github.com/anonto42/socialape/backend/internal/identity"
	"github.com/anonto42/socialape/backend/internal/models"
	"github.com/anonto42/socialape/backend/internal/router"
	"github.com/anonto42/socialape/backend/internal/triggers"
)

const eventsToken = "push-secret"

type testApp struct {
	t     *testing.T
	e     *echo.Echo
	store docstore.Store
}

type appOptions struct {
	eventsToken string
	cache       cache.ScreamCache
	// pushed leaves writes unobserved, so reactions only run for changes
	// posted to /events/firestore
	pushed bool
}

// newTestApp wires the API over the memory store with reactions running
// synchronously, so their effects are visible when a request returns
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, appOptions{eventsToken: eventsToken, cache: cache.NopScreamCache{}})
}

func newTestAppWith(t *testing.T, opts appOptions) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	base := docstore.NewMemoryStore()
	var store docstore.Store = base
	inline := events.NewInline(false, logger)
	if !opts.pushed {
		store = events.Observe(base, inline, logger)
	}
	rt := triggers.NewRouter(triggers.NewReactions(store, opts.cache, logger), logger)
	inline.Attach(rt)

	uploader, err := blob.NewLocalUploader(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	e := echo.New()
	router.SetupMiddleware(e, logger)
	router.SetupRoutes(e, router.Dependencies{
		Store:       store,
		Identity:    identity.NewLocalProvider(base, "test-secret", bcrypt.MinCost),
		Uploader:    uploader,
		Cache:       opts.cache,
		Triggers:    rt,
		EventsToken: opts.eventsToken,
		UploadDir:   uploader.Dir(),
		Logger:      logger,
	})
	return &testApp{t: t, e: e, store: store}
}

func (a *testApp) do(method, path, body, token string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) signup(handle string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/signup", `{"email":"`+handle+`@example.com","password":"secret1","confirmPassword":"secret1","handle":"`+handle+`"}`, "")
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(a.t, rec)["token"].(string)
}

func (a *testApp) postScream(token, body string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/scream", `{"body":"`+body+`"}`, token)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(a.t, rec)["screamId"].(string)
}

func (a *testApp) count(collection, field, value string) int {
	a.t.Helper()
	docs, err := a.store.Query(context.Background(), docstore.Collection(collection).Where(field, value))
	require.NoError(a.t, err)
	return len(docs)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSignup(t *testing.T) {
	app := newTestApp(t)

	t.Run("returns a token and creates the user", func(t *testing.T) {
		token := app.signup("alice")
		assert.NotEmpty(t, token)

		user, err := app.store.Get(context.Background(), models.UsersCollection, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", user.String("email"))
		assert.Equal(t, "http://localhost:8080/uploads/no-img.png", user.String("imageUrl"))
		assert.NotEmpty(t, user.String("userId"))
	})

	t.Run("taken handle is a conflict and creates nothing", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/signup", `{"email":"other@example.com","password":"secret1","confirmPassword":"secret1","handle":"alice"}`, "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, map[string]interface{}{"handle": "This handle is already taken"}, decode(t, rec))
		assert.Equal(t, 1, app.count(models.UsersCollection, "handle", "alice"))

		// the email stays free
		app.signup("other")
	})

	t.Run("email in use", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/signup", `{"email":"alice@example.com","password":"secret1","confirmPassword":"secret1","handle":"alice2"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, map[string]interface{}{"email": "Email is already in use"}, decode(t, rec))
		assert.Equal(t, 0, app.count(models.UsersCollection, "handle", "alice2"))
	})

	t.Run("validation errors are keyed by field", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/signup", `{"email":"","password":"","confirmPassword":"","handle":" "}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, map[string]interface{}{
			"email":    "Must not be empty",
			"password": "Must not be empty",
			"handle":   "Must not be empty",
		}, decode(t, rec))

		rec = app.do(http.MethodPost, "/signup", `{"email":"nope","password":"secret1","confirmPassword":"secret2","handle":"bob"}`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, map[string]interface{}{
			"email":           "Must be a valid email address",
			"confirmPassword": "Passwords must match",
		}, decode(t, rec))
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/signup", `{"email":`, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request payload", decode(t, rec)["error"])
	})
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)
	app.signup("alice")

	rec := app.do(http.MethodPost, "/login", `{"email":"alice@example.com","password":"wrong-one"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, map[string]interface{}{"general": "Wrong credentials, please try again"}, decode(t, rec))

	rec = app.do(http.MethodPost, "/login", `{"email":"nobody@example.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(http.MethodPost, "/login", `{"email":"","password":""}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"email": "Must not be empty", "password": "Must not be empty"}, decode(t, rec))

	rec = app.do(http.MethodPost, "/login", `{"email":"alice@example.com","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode(t, rec)["token"].(string)

	rec = app.do(http.MethodGet, "/user", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	app := newTestApp(t)

	for _, token := range []string{"", "not-a-token"} {
		rec := app.do(http.MethodGet, "/user", "", token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, map[string]interface{}{"error": "Unauthorized"}, decode(t, rec))
	}

	rec := app.do(http.MethodPost, "/scream", `{"body":"hi"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, app.count(models.ScreamsCollection, "body", "hi"))
}

func TestScreams(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")

	rec := app.do(http.MethodPost, "/scream", `{"body":"   "}`, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"body": "Must not be empty"}, decode(t, rec))

	rec = app.do(http.MethodPost, "/scream", `{"body":"first"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode(t, rec)
	assert.NotEmpty(t, created["screamId"])
	assert.Equal(t, "alice", created["userHandle"])
	assert.Equal(t, "http://localhost:8080/uploads/no-img.png", created["userImage"])
	assert.EqualValues(t, 0, created["likeCount"])
	assert.EqualValues(t, 0, created["commentCount"])

	time.Sleep(2 * time.Millisecond)
	second := app.postScream(alice, "second")

	rec = app.do(http.MethodGet, "/screams", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var screams []models.Scream
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &screams))
	require.Len(t, screams, 2)
	assert.Equal(t, second, screams[0].ScreamID)
	assert.Equal(t, "first", screams[1].Body)

	rec = app.do(http.MethodGet, "/scream/"+second, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)
	assert.Equal(t, "second", detail["body"])
	assert.Equal(t, []interface{}{}, detail["comments"])

	rec = app.do(http.MethodGet, "/scream/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Scream not found"}, decode(t, rec))
}

func TestLikeAndUnlike(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")
	screamID := app.postScream(alice, "like me")

	rec := app.do(http.MethodGet, "/scream/"+screamID+"/like", "", bob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["likeCount"])

	notifications, err := app.store.Query(context.Background(),
		docstore.Collection(models.NotificationsCollection).Where("recipient", "alice"))
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "bob", notifications[0].String("sender"))
	assert.Equal(t, models.NotificationLike, notifications[0].String("type"))
	assert.Equal(t, screamID, notifications[0].String("screamId"))

	rec = app.do(http.MethodGet, "/scream/"+screamID+"/like", "", bob)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Scream already liked"}, decode(t, rec))
	assert.Equal(t, 1, app.count(models.LikesCollection, "screamId", screamID))

	rec = app.do(http.MethodGet, "/scream/"+screamID+"/unlike", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["likeCount"])
	assert.Equal(t, 0, app.count(models.NotificationsCollection, "recipient", "alice"))

	rec = app.do(http.MethodGet, "/scream/"+screamID+"/unlike", "", bob)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Scream not liked"}, decode(t, rec))

	rec = app.do(http.MethodGet, "/scream/missing/like", "", bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelfLikeDoesNotNotify(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	screamID := app.postScream(alice, "mine")

	rec := app.do(http.MethodGet, "/scream/"+screamID+"/like", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["likeCount"])
	assert.Equal(t, 0, app.count(models.NotificationsCollection, "screamId", screamID))
}

func TestComment(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")
	screamID := app.postScream(alice, "talk to me")

	rec := app.do(http.MethodPost, "/scream/"+screamID+"/comment", `{"body":""}`, bob)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"comment": "Must not be empty"}, decode(t, rec))

	rec = app.do(http.MethodPost, "/scream/missing/comment", `{"body":"hello"}`, bob)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(http.MethodPost, "/scream/"+screamID+"/comment", `{"body":"hello"}`, bob)
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decode(t, rec)
	assert.Equal(t, "hello", comment["body"])
	assert.Equal(t, "bob", comment["userHandle"])
	assert.Equal(t, screamID, comment["screamId"])

	rec = app.do(http.MethodGet, "/scream/"+screamID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode(t, rec)
	assert.EqualValues(t, 1, detail["commentCount"])
	assert.Len(t, detail["comments"], 1)

	notifications, err := app.store.Query(context.Background(),
		docstore.Collection(models.NotificationsCollection).Where("screamId", screamID))
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationComment, notifications[0].String("type"))
	assert.Equal(t, "alice", notifications[0].String("recipient"))
}

func TestDeleteScream(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")
	screamID := app.postScream(alice, "short lived")
	other := app.postScream(alice, "stays")

	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/scream/"+screamID+"/like", "", bob).Code)
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/scream/"+screamID+"/comment", `{"body":"bye"}`, bob).Code)
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/scream/"+other+"/like", "", bob).Code)

	rec := app.do(http.MethodDelete, "/scream/"+screamID, "", bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Unauthorized"}, decode(t, rec))

	rec = app.do(http.MethodDelete, "/scream/"+screamID, "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"message": "Scream deleted successfully"}, decode(t, rec))

	for _, collection := range []string{models.CommentsCollection, models.LikesCollection, models.NotificationsCollection} {
		assert.Zero(t, app.count(collection, "screamId", screamID), collection)
	}
	assert.Equal(t, 1, app.count(models.LikesCollection, "screamId", other))
	assert.Equal(t, 1, app.count(models.NotificationsCollection, "screamId", other))

	rec = app.do(http.MethodDelete, "/scream/"+screamID, "", alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserDetails(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")
	screamID := app.postScream(alice, "hello")

	rec := app.do(http.MethodPost, "/user", `{"bio":"  hi there ","website":"example.com","location":"","handle":"mallory"}`, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"message": "Details added successfully"}, decode(t, rec))

	user, err := app.store.Get(context.Background(), models.UsersCollection, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hi there", user.String("bio"))
	assert.Equal(t, "http://example.com", user.String("website"))
	assert.Equal(t, "alice", user.String("handle"))
	_, hasLocation := user.Data["location"]
	assert.False(t, hasLocation)

	rec = app.do(http.MethodGet, "/user/alice", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.UserDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "alice", detail.User.Handle)
	require.Len(t, detail.Screams, 1)
	assert.Equal(t, screamID, detail.Screams[0].ScreamID)

	rec = app.do(http.MethodGet, "/user/nobody", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "User not found"}, decode(t, rec))

	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/scream/"+screamID+"/like", "", bob).Code)

	rec = app.do(http.MethodGet, "/user", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.AuthenticatedUser
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Credentials.Handle)
	assert.Empty(t, me.Likes)
	require.Len(t, me.Notifications, 1)
	assert.NotEmpty(t, me.Notifications[0].NotificationID)
	assert.False(t, me.Notifications[0].Read)

	rec = app.do(http.MethodGet, "/user", "", bob)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Len(t, me.Likes, 1)
	assert.Equal(t, screamID, me.Likes[0].ScreamID)
}

func TestMarkNotificationsRead(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	bob := app.signup("bob")
	first := app.postScream(alice, "one")
	second := app.postScream(alice, "two")
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/scream/"+first+"/like", "", bob).Code)
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/scream/"+second+"/like", "", bob).Code)

	docs, err := app.store.Query(context.Background(),
		docstore.Collection(models.NotificationsCollection).Where("recipient", "alice"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	ids := []string{docs[0].ID, docs[1].ID}

	unread := func() int {
		n := 0
		for _, id := range ids {
			doc, err := app.store.Get(context.Background(), models.NotificationsCollection, id)
			require.NoError(t, err)
			if read, _ := doc.Data["read"].(bool); !read {
				n++
			}
		}
		return n
	}

	rec := app.do(http.MethodPost, "/notifications", `["`+ids[0]+`","missing"]`, alice)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec), "error")
	assert.Equal(t, 2, unread())

	rec = app.do(http.MethodPost, "/notifications", `[]`, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(http.MethodPost, "/notifications", `{"ids":[]}`, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, err := json.Marshal(ids)
	require.NoError(t, err)
	rec = app.do(http.MethodPost, "/notifications", string(body), alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"message": "Notifications marked read"}, decode(t, rec))
	assert.Equal(t, 0, unread())
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func (a *testApp) upload(token, field, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		header.Set(echo.HeaderContentType, contentType)
		part, err := w.CreatePart(header)
		require.NoError(a.t, err)
		_, err = part.Write(content)
		require.NoError(a.t, err)
	} else {
		require.NoError(a.t, w.WriteField("note", "no file here"))
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/user/image", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func TestUploadImage(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	screamID := app.postScream(alice, "before the new avatar")

	rec := app.upload(alice, "image", "notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Wrong file type, please submit an image."}, decode(t, rec))

	rec = app.upload(alice, "image", "fake.png", "image/png", []byte("plain text pretending"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.upload(alice, "image", "", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.upload(alice, "image", "avatar.PNG", "image/png", pngHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]interface{}{"message": "Image uploaded successfully"}, decode(t, rec))

	user, err := app.store.Get(context.Background(), models.UsersCollection, "alice")
	require.NoError(t, err)
	imageURL := user.String("imageUrl")
	assert.True(t, strings.HasPrefix(imageURL, "http://localhost:8080/uploads/"), imageURL)
	assert.True(t, strings.HasSuffix(imageURL, ".png"), imageURL)

	scream, err := app.store.Get(context.Background(), models.ScreamsCollection, screamID)
	require.NoError(t, err)
	assert.Equal(t, imageURL, scream.String("userImage"))

	served := app.do(http.MethodGet, strings.TrimPrefix(imageURL, "http://localhost:8080"), "", "")
	assert.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngHeader, served.Body.Bytes())
}

func (a *testApp) pushEvent(token, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events/firestore", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(handlers.EventTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

const documentsPrefix = "projects/socialape/databases/(default)/documents/"

func TestFirestoreEvent(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup("alice")
	screamID := app.postScream(alice, "pushed")

	payload := `{"value":{"name":"` + documentsPrefix + `likes/like-1","fields":{` +
		`"userHandle":{"stringValue":"bob"},"screamId":{"stringValue":"` + screamID + `"}}}}`

	send := func(token, body string) *httptest.ResponseRecorder {
		return app.pushEvent(token, body)
	}

	assert.Equal(t, http.StatusForbidden, send("", payload).Code)
	assert.Equal(t, http.StatusForbidden, send("wrong", payload).Code)
	assert.Equal(t, http.StatusBadRequest, send(eventsToken, `{"value":{}}`).Code)

	rec := send(eventsToken, payload)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	n, err := app.store.Get(context.Background(), models.NotificationsCollection, "like-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", n.String("recipient"))
	assert.Equal(t, "bob", n.String("sender"))
}

func TestFirestoreEventWithoutConfiguredToken(t *testing.T) {
	app := newTestAppWith(t, appOptions{eventsToken: "", cache: cache.NopScreamCache{}})
	alice := app.signup("alice")
	bob := app.signup("bob")
	screamID := app.postScream(alice, "keep me")
	require.Equal(t, http.StatusCreated, app.do(http.MethodPost, "/scream/"+screamID+"/comment", `{"body":"nice"}`, bob).Code)
	require.Equal(t, http.StatusOK, app.do(http.MethodGet, "/scream/"+screamID+"/like", "", bob).Code)

	forged := `{"oldValue":{"name":"` + documentsPrefix + `screams/` + screamID + `","fields":{` +
		`"userHandle":{"stringValue":"alice"},"body":{"stringValue":"keep me"}}}}`
	for _, token := range []string{"", "anything"} {
		rec := app.pushEvent(token, forged)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, map[string]interface{}{"error": "Unauthorized"}, decode(t, rec))
	}

	assert.Equal(t, 1, app.count(models.CommentsCollection, "screamId", screamID))
	assert.Equal(t, 1, app.count(models.LikesCollection, "screamId", screamID))
	assert.Equal(t, 2, app.count(models.NotificationsCollection, "screamId", screamID))
}

func TestPushedImageChangeRefreshesRecentScreams(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	app := newTestAppWith(t, appOptions{
		eventsToken: eventsToken,
		cache:       cache.NewRedisScreamCache(client),
		pushed:      true,
	})
	alice := app.signup("alice")
	app.postScream(alice, "before the new avatar")

	recent := func() []models.Scream {
		rec := app.do(http.MethodGet, "/screams", "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var screams []models.Scream
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &screams))
		require.Len(t, screams, 1)
		return screams
	}
	oldImage := recent()[0].UserImage

	rec := app.upload(alice, "image", "avatar.png", "image/png", pngHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user, err := app.store.Get(context.Background(), models.UsersCollection, "alice")
	require.NoError(t, err)
	newImage := user.String("imageUrl")
	require.NotEqual(t, oldImage, newImage)

	// the platform has not delivered the user change yet
	assert.Equal(t, oldImage, recent()[0].UserImage)

	userDoc := func(image string) string {
		return `{"name":"` + documentsPrefix + `users/alice","fields":{` +
			`"handle":{"stringValue":"alice"},"imageUrl":{"stringValue":"` + image + `"}}}`
	}
	rec = app.pushEvent(eventsToken, `{"oldValue":`+userDoc(oldImage)+`,"value":`+userDoc(newImage)+`}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	assert.Equal(t, newImage, recent()[0].UserImage)
}

func TestHealthCheck(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}
