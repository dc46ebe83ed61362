package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgvault/imgvault/api"
	"github.com/imgvault/imgvault/metrics"
	"github.com/imgvault/imgvault/models"
	"github.com/imgvault/imgvault/service"
	"github.com/imgvault/imgvault/upload"
)

const testSecret = "test-secret"

type memoryIndex struct {
	mu        sync.Mutex
	images    map[string]models.Image
	library   map[string][]string
	favorites map[string]map[string]struct{}
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{
		images:    map[string]models.Image{},
		library:   map[string][]string{},
		favorites: map[string]map[string]struct{}{},
	}
}

func (m *memoryIndex) SaveImage(ctx context.Context, userID string, img models.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.images[img.ID]; !exists {
		m.library[userID] = append(m.library[userID], img.ID)
	}
	m.images[img.ID] = img
	return nil
}

func (m *memoryIndex) GetImage(ctx context.Context, id string) (*models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	img, ok := m.images[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &img, nil
}

func (m *memoryIndex) ListImages(ctx context.Context, userID string) ([]models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Image
	for _, id := range m.library[userID] {
		out = append(out, m.images[id])
	}
	return out, nil
}

func (m *memoryIndex) DeleteImages(ctx context.Context, userID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[string]struct{}{}
	for _, id := range ids {
		drop[id] = struct{}{}
		delete(m.images, id)
	}
	kept := m.library[userID][:0]
	for _, id := range m.library[userID] {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	m.library[userID] = kept
	return nil
}

func (m *memoryIndex) AddFavorites(ctx context.Context, userID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.favorites[userID] == nil {
		m.favorites[userID] = map[string]struct{}{}
	}
	for _, id := range ids {
		m.favorites[userID][id] = struct{}{}
	}
	return nil
}

func (m *memoryIndex) RemoveFavorites(ctx context.Context, userID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.favorites[userID], id)
	}
	return nil
}

func (m *memoryIndex) ListFavorites(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.favorites[userID] {
		out = append(out, id)
	}
	return out, nil
}

type okStorage struct{}

func (okStorage) Put(ctx context.Context, item upload.Item, onProgress func(sent int64)) (*upload.StoredObject, error) {
	return &upload.StoredObject{FileRef: "ref-" + item.Name, URL: "https://files.example/" + item.Name}, nil
}

func newTestRouter() http.Handler {
	index := newMemoryIndex()
	batcher := upload.NewBatcher(okStorage{}, upload.WithBaseDelay(0))
	collector := metrics.NewCollector()
	images := service.NewImages(batcher, index, nil)
	favorites := service.NewFavorites(index)
	handler := api.NewHandler(images, favorites, collector, nil, testSecret, time.Hour)
	return api.NewRouter(api.RouterOptions{
		Handler:   handler,
		Collector: collector,
		Secret:    testSecret,
		IsProd:    true,
	})
}

func issueToken(t *testing.T, router http.Handler) string {
	t.Helper()
	body := bytes.NewBufferString(`{"user_id":"u1"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func authedRequest(t *testing.T, router http.Handler, token, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept-Encoding", "identity")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, name := range names {
		part, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		payload := make([]byte, 64)
		copy(payload, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
		_, err = part.Write(payload)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestAuthRequired(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/images", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadAndList(t *testing.T) {
	router := newTestRouter()
	token := issueToken(t, router)

	body, contentType := multipartUpload(t, "a.png", "b.png")
	rec := authedRequest(t, router, token, http.MethodPost, "/v1/images", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp struct {
		Success bool `json:"success"`
		Results []struct {
			Success bool `json:"success"`
			Value   *struct {
				ID      string `json:"id"`
				FileRef string `json:"file_ref"`
			} `json:"value"`
		} `json:"results"`
		Summary struct {
			Total     int `json:"total"`
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	assert.True(t, uploadResp.Success)
	assert.Equal(t, 2, uploadResp.Summary.Total)
	assert.Equal(t, 2, uploadResp.Summary.Succeeded)
	require.Len(t, uploadResp.Results, 2)
	assert.Equal(t, "ref-a.png", uploadResp.Results[0].Value.FileRef)

	rec = authedRequest(t, router, token, http.MethodGet, "/v1/images", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Data []models.Image `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Len(t, listResp.Data, 2)
}

func TestUploadWithoutCollector(t *testing.T) {
	index := newMemoryIndex()
	batcher := upload.NewBatcher(okStorage{}, upload.WithBaseDelay(0))
	images := service.NewImages(batcher, index, nil)
	favorites := service.NewFavorites(index)
	handler := api.NewHandler(images, favorites, nil, nil, testSecret, time.Hour)
	router := api.NewRouter(api.RouterOptions{
		Handler: handler,
		Secret:  testSecret,
		IsProd:  true,
	})
	token := issueToken(t, router)

	body, contentType := multipartUpload(t, "a.png")
	rec := authedRequest(t, router, token, http.MethodPost, "/v1/images", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	assert.True(t, uploadResp.Success)
}

func TestUploadRejectsInvalidItem(t *testing.T) {
	router := newTestRouter()
	token := issueToken(t, router)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("files", "note.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := authedRequest(t, router, token, http.MethodPost, "/v1/images", body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp struct {
		Success bool `json:"success"`
		Results []struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	assert.False(t, uploadResp.Success)
	require.Len(t, uploadResp.Results, 1)
	assert.False(t, uploadResp.Results[0].Success)
	assert.NotEmpty(t, uploadResp.Results[0].Error)
}

func TestFavoritesRoutes(t *testing.T) {
	router := newTestRouter()
	token := issueToken(t, router)

	rec := authedRequest(t, router, token, http.MethodPost, "/v1/favorites",
		bytes.NewBufferString(`{"id":"img-1"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = authedRequest(t, router, token, http.MethodPost, "/v1/favorites/batch",
		bytes.NewBufferString(`{"action":"add","ids":["img-2","img-3"]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = authedRequest(t, router, token, http.MethodGet, "/v1/favorites", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.ElementsMatch(t, []string{"img-1", "img-2", "img-3"}, listResp.Data)

	rec = authedRequest(t, router, token, http.MethodDelete, "/v1/favorites/img-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = authedRequest(t, router, token, http.MethodPost, "/v1/favorites/batch",
		bytes.NewBufferString(`{"action":"archive","ids":["img-2"]}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleFavorite(t *testing.T) {
	router := newTestRouter()
	token := issueToken(t, router)

	var toggleResp struct {
		Data struct {
			Favorited bool `json:"favorited"`
		} `json:"data"`
	}

	rec := authedRequest(t, router, token, http.MethodPost, "/v1/favorites/toggle",
		bytes.NewBufferString(`{"id":"img-9"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggleResp))
	assert.True(t, toggleResp.Data.Favorited)

	rec = authedRequest(t, router, token, http.MethodPost, "/v1/favorites/toggle",
		bytes.NewBufferString(`{"id":"img-9"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggleResp))
	assert.False(t, toggleResp.Data.Favorited)
}

func TestSetImageTags(t *testing.T) {
	router := newTestRouter()
	token := issueToken(t, router)

	body, contentType := multipartUpload(t, "a.png")
	rec := authedRequest(t, router, token, http.MethodPost, "/v1/images", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp struct {
		Results []struct {
			Value struct {
				ID string `json:"id"`
			} `json:"value"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	require.Len(t, uploadResp.Results, 1)
	id := uploadResp.Results[0].Value.ID

	rec = authedRequest(t, router, token, http.MethodPut, "/v1/images/"+id+"/tags",
		bytes.NewBufferString(`{"tags":["cat","pet"]}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = authedRequest(t, router, token, http.MethodGet, "/v1/images", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listResp struct {
		Data []models.Image `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data, 1)
	assert.Equal(t, []string{"cat", "pet"}, listResp.Data[0].Tags)
}

func TestBatchDelete(t *testing.T) {
	router := newTestRouter()
	token := issueToken(t, router)

	body, contentType := multipartUpload(t, "a.png", "b.png", "c.png")
	rec := authedRequest(t, router, token, http.MethodPost, "/v1/images", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var uploadResp struct {
		Results []struct {
			Value struct {
				ID string `json:"id"`
			} `json:"value"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploadResp))
	require.Len(t, uploadResp.Results, 3)

	payload, err := json.Marshal(map[string]any{
		"ids": []string{uploadResp.Results[0].Value.ID, uploadResp.Results[2].Value.ID},
	})
	require.NoError(t, err)

	rec = authedRequest(t, router, token, http.MethodPost, "/v1/images/batch-delete",
		bytes.NewBuffer(payload), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = authedRequest(t, router, token, http.MethodGet, "/v1/images", nil, "")
	var listResp struct {
		Data []models.Image `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Len(t, listResp.Data, 1)
	assert.Equal(t, uploadResp.Results[1].Value.ID, listResp.Data[0].ID)
}
