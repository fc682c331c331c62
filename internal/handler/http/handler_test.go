package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/homevista/brokerage/internal/auth"
	"github.com/homevista/brokerage/internal/domain"
	"github.com/homevista/brokerage/internal/repository"
	"github.com/homevista/brokerage/internal/service"
	"github.com/homevista/brokerage/internal/storage/memory"
	apperrors "github.com/homevista/brokerage/pkg/errors"
	"github.com/homevista/brokerage/pkg/health"
	"github.com/homevista/brokerage/pkg/middleware"
)

// ============================================================================
// Mock repositories
// ============================================================================

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockTokenRepo struct{ mock.Mock }

func (m *mockTokenRepo) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *mockTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	return m.Called(ctx, tokenHash).Error(0)
}

func (m *mockTokenRepo) RevokeByUserID(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type mockOneTime struct{ mock.Mock }

func (m *mockOneTime) Put(ctx context.Context, kind repository.OneTimeTokenKind, token, userID string, ttl time.Duration) error {
	return m.Called(ctx, kind, token, userID, ttl).Error(0)
}

func (m *mockOneTime) Consume(ctx context.Context, kind repository.OneTimeTokenKind, token string) (string, error) {
	args := m.Called(ctx, kind, token)
	return args.String(0), args.Error(1)
}

type mockPropertyRepo struct{ mock.Mock }

func (m *mockPropertyRepo) Create(ctx context.Context, p *domain.Property) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPropertyRepo) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Property), args.Error(1)
}

func (m *mockPropertyRepo) List(ctx context.Context, filter repository.PropertyFilter, page, perPage int) ([]domain.Property, int, error) {
	args := m.Called(ctx, filter, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Property), args.Int(1), args.Error(2)
}

func (m *mockPropertyRepo) Update(ctx context.Context, p *domain.Property) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockPropertyRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockMediaRepo struct{ mock.Mock }

func (m *mockMediaRepo) CreateImage(ctx context.Context, img *domain.PropertyImage) error {
	return m.Called(ctx, img).Error(0)
}

func (m *mockMediaRepo) CreateVideo(ctx context.Context, vid *domain.PropertyVideo) error {
	return m.Called(ctx, vid).Error(0)
}

func (m *mockMediaRepo) ListImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PropertyImage), args.Error(1)
}

func (m *mockMediaRepo) ListVideos(ctx context.Context, propertyID string) ([]domain.PropertyVideo, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PropertyVideo), args.Error(1)
}

func (m *mockMediaRepo) DeleteImageByURL(ctx context.Context, propertyID, url string) (*domain.PropertyImage, error) {
	args := m.Called(ctx, propertyID, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PropertyImage), args.Error(1)
}

func (m *mockMediaRepo) DeleteVideoByURL(ctx context.Context, propertyID, url string) (*domain.PropertyVideo, error) {
	args := m.Called(ctx, propertyID, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PropertyVideo), args.Error(1)
}

// noopPublisher satisfies both event publisher interfaces.
type noopPublisher struct{}

func (noopPublisher) PublishUserRegistered(context.Context, *domain.User) error      { return nil }
func (noopPublisher) PublishPropertyCreated(context.Context, *domain.Property) error { return nil }
func (noopPublisher) PublishPropertyUpdated(context.Context, *domain.Property) error { return nil }
func (noopPublisher) PublishPropertyDeleted(context.Context, string) error           { return nil }

// ============================================================================
// Fixture
// ============================================================================

type fixture struct {
	userRepo     *mockUserRepo
	tokenRepo    *mockTokenRepo
	oneTime      *mockOneTime
	propertyRepo *mockPropertyRepo
	mediaRepo    *mockMediaRepo
	store        *memory.Storage
	jwt          *auth.JWTManager
	router       http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		userRepo:     &mockUserRepo{},
		tokenRepo:    &mockTokenRepo{},
		oneTime:      &mockOneTime{},
		propertyRepo: &mockPropertyRepo{},
		mediaRepo:    &mockMediaRepo{},
		store:        memory.New("http://media.local"),
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	f.jwt = auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute, 24*time.Hour, 30*24*time.Hour)

	authService := service.NewAuthService(f.userRepo, f.tokenRepo, f.oneTime, f.jwt, noopPublisher{}, logger)
	propertyService := service.NewPropertyService(f.propertyRepo, f.mediaRepo, f.userRepo, f.store, noopPublisher{}, logger)

	f.router = NewRouter(authService, propertyService, f.jwt, health.NewHandler(), logger, RouterConfig{
		CORS: middleware.CORSConfig{Environment: "development"},
	})
	return f
}

func (f *fixture) tokenFor(user *domain.User) string {
	token, err := f.jwt.GenerateAccessToken(user.ID, user.Email, user.Username, user.Role)
	if err != nil {
		panic(err)
	}
	return token
}

func agentUser() *domain.User {
	return &domain.User{
		ID:            uuid.New().String(),
		Email:         "agent@example.com",
		Username:      "agent",
		Role:          domain.RoleAgent,
		IsActive:      true,
		EmailVerified: true,
	}
}

func doJSON(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error.Code
}

// ============================================================================
// Auth endpoints
// ============================================================================

func TestRegisterEndpoint(t *testing.T) {
	f := newFixture()

	f.userRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
	f.oneTime.On("Put", mock.Anything, repository.TokenKindEmailVerification, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := doJSON(f.router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":      "new@example.com",
		"username":   "newuser",
		"password":   "SecurePass123",
		"first_name": "New",
		"last_name":  "User",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterEndpoint_ValidationError(t *testing.T) {
	f := newFixture()

	rec := doJSON(f.router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "not-an-email",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEndpoint_UnknownFieldRejected(t *testing.T) {
	f := newFixture()

	rec := doJSON(f.router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":      "new@example.com",
		"username":   "newuser",
		"password":   "SecurePass123",
		"first_name": "New",
		"last_name":  "User",
		"is_admin":   true,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint_UnverifiedEmailCode(t *testing.T) {
	f := newFixture()

	hash, _ := bcrypt.GenerateFromPassword([]byte("SecurePass123"), 4)
	user := agentUser()
	user.PasswordHash = string(hash)
	user.EmailVerified = false

	f.userRepo.On("GetByIdentifier", mock.Anything, "agent").Return(user, nil)

	rec := doJSON(f.router, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"identifier": "agent",
		"password":   "SecurePass123",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "EMAIL_NOT_VERIFIED", decodeError(t, rec))
}

func TestLoginEndpoint_Success(t *testing.T) {
	f := newFixture()

	hash, _ := bcrypt.GenerateFromPassword([]byte("SecurePass123"), 4)
	user := agentUser()
	user.PasswordHash = string(hash)

	f.userRepo.On("GetByIdentifier", mock.Anything, "agent").Return(user, nil)
	f.tokenRepo.On("Create", mock.Anything, user.ID, mock.Anything, mock.Anything).Return(nil)

	rec := doJSON(f.router, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
		"identifier":  "agent",
		"password":    "SecurePass123",
		"remember_me": true,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.NotEmpty(t, resp.Data.RefreshToken)
}

func TestSessionEndpoint(t *testing.T) {
	f := newFixture()
	user := agentUser()

	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionEndpoint_NoToken(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckEmailEndpoint(t *testing.T) {
	f := newFixture()

	f.userRepo.On("GetByEmail", mock.Anything, "free@example.com").
		Return(nil, apperrors.NotFound("user", "free@example.com"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/check-email?email=free@example.com", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Available bool `json:"available"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Available)
}

// ============================================================================
// Property endpoints
// ============================================================================

func buildMultipart(t *testing.T, propertyData map[string]any, imageNames, videoNames []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	data, err := json.Marshal(propertyData)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("propertyData", string(data)))

	addFile := func(field, name, contentType string) {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte("file-bytes"))
		require.NoError(t, err)
	}

	for _, name := range imageNames {
		addFile("images[]", name, "image/jpeg")
	}
	for _, name := range videoNames {
		addFile("videos[]", name, "video/mp4")
	}

	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func validPropertyData() map[string]any {
	return map[string]any{
		"title":        "Sunny flat in Alfama",
		"price":        385000,
		"listing_type": "sale",
		"city":         "Lisbon",
	}
}

func TestCreateWithMediaEndpoint(t *testing.T) {
	f := newFixture()
	user := agentUser()

	var createdID string
	f.userRepo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	f.propertyRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Property")).Run(func(args mock.Arguments) {
		createdID = args.Get(1).(*domain.Property).ID
	}).Return(nil)
	f.mediaRepo.On("CreateImage", mock.Anything, mock.Anything).Return(nil)
	f.mediaRepo.On("CreateVideo", mock.Anything, mock.Anything).Return(nil)
	f.propertyRepo.On("GetByID", mock.Anything, mock.AnythingOfType("string")).Return(&domain.Property{
		ID:      "p-1",
		AgentID: user.ID,
		Images:  []domain.PropertyImage{{ID: "i-1"}},
		Videos:  []domain.PropertyVideo{{ID: "v-1"}},
	}, nil)

	body, contentType := buildMultipart(t, validPropertyData(), []string{"front.jpg"}, []string{"tour.mp4"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/with-media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, createdID)
	assert.Equal(t, 2, f.store.Len())
}

func TestCreateWithMediaEndpoint_UnknownJSONField(t *testing.T) {
	f := newFixture()
	user := agentUser()

	data := validPropertyData()
	data["agent_override"] = "someone-else"

	body, contentType := buildMultipart(t, data, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/with-media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWithMediaEndpoint_UnexpectedFilePart(t *testing.T) {
	f := newFixture()
	user := agentUser()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	data, _ := json.Marshal(validPropertyData())
	require.NoError(t, w.WriteField("propertyData", string(data)))
	part, err := w.CreateFormFile("documents[]", "deed.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("pdf"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/with-media", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateWithMediaEndpoint_ClientRoleForbidden(t *testing.T) {
	f := newFixture()
	client := agentUser()
	client.Role = domain.RoleClient

	body, contentType := buildMultipart(t, validPropertyData(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/with-media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(client))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateWithMediaEndpoint_MissingProperty(t *testing.T) {
	f := newFixture()
	user := agentUser()
	missingID := uuid.New().String()

	f.propertyRepo.On("GetByID", mock.Anything, missingID).
		Return(nil, apperrors.NotFound("property", missingID))

	body, contentType := buildMultipart(t, map[string]any{"title": "New title"}, []string{"a.jpg"}, nil)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/properties/"+missingID+"/with-media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, f.store.Len())
}

func TestListPropertiesEndpoint_Public(t *testing.T) {
	f := newFixture()

	f.propertyRepo.On("List", mock.Anything, repository.PropertyFilter{City: "Lisbon"}, 1, 20).
		Return([]domain.Property{{ID: "p-1"}}, 1, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties?city=Lisbon", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []json.RawMessage `json:"data"`
		TotalCount int               `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalCount)
	assert.Len(t, resp.Data, 1)
}

func TestGetPropertyEndpoint_BadID(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/properties/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePropertyEndpoint_RequiresAuth(t *testing.T) {
	f := newFixture()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/properties/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadImagesEndpoint(t *testing.T) {
	f := newFixture()
	user := agentUser()
	propertyID := uuid.New().String()

	existing := &domain.Property{ID: propertyID, AgentID: user.ID}
	f.propertyRepo.On("GetByID", mock.Anything, propertyID).Return(existing, nil)
	f.mediaRepo.On("CreateImage", mock.Anything, mock.Anything).Return(nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="images[]"; filename="extra.jpg"`)
	hdr.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write([]byte("file-bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/"+propertyID+"/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.store.Len())
}

func TestUploadImagesEndpoint_RejectsForeignField(t *testing.T) {
	f := newFixture()
	user := agentUser()
	propertyID := uuid.New().String()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("caption", "not allowed here"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/properties/"+propertyID+"/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVideoInfoEndpoint(t *testing.T) {
	f := newFixture()
	user := agentUser()
	propertyID := uuid.New().String()

	videoURL := "http://media.local/properties/" + propertyID + "/v-1-tour.mp4"
	f.propertyRepo.On("GetByID", mock.Anything, propertyID).Return(&domain.Property{
		ID:      propertyID,
		AgentID: user.ID,
		Videos:  []domain.PropertyVideo{{ID: "v-1", URL: videoURL, Duration: 92.5, Size: 4096}},
	}, nil)

	path := "/api/v1/properties/" + propertyID + "/videos/info?url=" + url.QueryEscape(videoURL)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data domain.PropertyVideo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 92.5, resp.Data.Duration)

	// Unknown URL is a 404.
	path = "/api/v1/properties/" + propertyID + "/videos/info?url=" + url.QueryEscape("http://media.local/other.mp4")
	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+f.tokenFor(user))
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
