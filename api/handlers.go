// Package api exposes the image host over HTTP: batch upload, browse,
// favorites and delete, scoped per user by bearer token.
package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imgvault/imgvault/adapters/jwt"
	"github.com/imgvault/imgvault/adapters/log"
	"github.com/imgvault/imgvault/metrics"
	"github.com/imgvault/imgvault/models"
	"github.com/imgvault/imgvault/service"
	"github.com/imgvault/imgvault/upload"
)

// Handler carries the services the routes dispatch to.
type Handler struct {
	images    *service.Images
	favorites *service.Favorites
	collector *metrics.Collector
	log       *log.Log
	secret    string
	tokenTTL  time.Duration
}

// NewHandler wires the route handlers.
func NewHandler(images *service.Images, favorites *service.Favorites, collector *metrics.Collector, logger *log.Log, secret string, tokenTTL time.Duration) *Handler {
	return &Handler{
		images:    images,
		favorites: favorites,
		collector: collector,
		log:       logger,
		secret:    secret,
		tokenTTL:  tokenTTL,
	}
}

func okBody(data any) gin.H {
	return gin.H{"success": true, "data": data}
}

func errorBody(message string) gin.H {
	return gin.H{"success": false, "error": message}
}

type tokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// issueToken issues a bearer token for a user id.
func (h *Handler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("user_id is required"))
		return
	}

	token, err := jwt.Generate(req.UserID, h.secret, h.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to issue token"))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"token": token}))
}

// itemResult is the wire shape for one settled upload.
type itemResult struct {
	Success bool            `json:"success"`
	Value   *upload.Receipt `json:"value,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// uploadImages accepts a multipart batch under the "files" field.
func (h *Handler) uploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("expected multipart form data"))
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, errorBody("no files supplied"))
		return
	}

	items := make([]upload.Item, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("unreadable file "+fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("unreadable file "+fh.Filename))
			return
		}
		items = append(items, upload.Item{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	out := h.images.UploadBatch(c.Request.Context(), c.GetString(userIDKey), items, nil)

	results := make([]itemResult, len(out.Results))
	for i, r := range out.Results {
		if r.IsSuccess() {
			results[i] = itemResult{Success: true, Value: r.ToValue()}
		} else {
			results[i] = itemResult{Success: false, Error: r.Error().FetchMessage()}
		}
		if h.collector != nil {
			if r.IsSuccess() {
				h.collector.ObserveUpload(true, r.ToValue().Size)
			} else {
				h.collector.ObserveUpload(false, 0)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": out.Success,
		"results": results,
		"summary": gin.H{
			"total":     out.Summary.Total,
			"succeeded": out.Summary.Succeeded,
			"failed":    out.Summary.Failed,
		},
	})
}

// listImages returns the caller's library.
func (h *Handler) listImages(c *gin.Context) {
	images, err := h.images.List(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to list images"))
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	c.JSON(http.StatusOK, okBody(images))
}

// deleteImage removes one image.
func (h *Handler) deleteImage(c *gin.Context) {
	id := c.Param("id")
	if err := h.images.Delete(c.Request.Context(), c.GetString(userIDKey), []string{id}); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to delete image"))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"deleted": []string{id}}))
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

// setTags replaces one image's tag list; an empty list clears it.
func (h *Handler) setTags(c *gin.Context) {
	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("malformed tags payload"))
		return
	}
	img, err := h.images.SetTags(c.Request.Context(), c.GetString(userIDKey), c.Param("id"), req.Tags)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to update tags"))
		return
	}
	c.JSON(http.StatusOK, okBody(img))
}

type idsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// deleteImages removes a batch of images.
func (h *Handler) deleteImages(c *gin.Context) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("ids are required"))
		return
	}
	if err := h.images.Delete(c.Request.Context(), c.GetString(userIDKey), req.IDs); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to delete images"))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"deleted": req.IDs}))
}

// listFavorites returns the caller's favorite ids.
func (h *Handler) listFavorites(c *gin.Context) {
	ids, err := h.favorites.List(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to list favorites"))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, okBody(ids))
}

type favoriteRequest struct {
	ID string `json:"id" binding:"required"`
}

// addFavorite marks one image as favorite.
func (h *Handler) addFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.favorites.Add(c.Request.Context(), c.GetString(userIDKey), []string{req.ID}); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to add favorite"))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"id": req.ID}))
}

// removeFavorite unmarks one image.
func (h *Handler) removeFavorite(c *gin.Context) {
	id := c.Param("id")
	if err := h.favorites.Remove(c.Request.Context(), c.GetString(userIDKey), []string{id}); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to remove favorite"))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"id": id}))
}

// toggleFavorite flips one image's favorite membership and reports the
// resulting state.
func (h *Handler) toggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("id is required"))
		return
	}
	favorited, err := h.favorites.Toggle(c.Request.Context(), c.GetString(userIDKey), req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to toggle favorite"))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"id": req.ID, "favorited": favorited}))
}

type favoriteBatchRequest struct {
	Action string   `json:"action" binding:"required,oneof=add remove"`
	IDs    []string `json:"ids" binding:"required,min=1"`
}

// batchFavorites applies one action tag to an id list.
func (h *Handler) batchFavorites(c *gin.Context) {
	var req favoriteBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(`action must be "add" or "remove" and ids must be non-empty`))
		return
	}
	action := models.FavoriteAction(req.Action)
	if err := h.favorites.Batch(c.Request.Context(), c.GetString(userIDKey), action, req.IDs); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("failed to update favorites"))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"action": req.Action, "ids": req.IDs}))
}
