package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/carstage/carstage/internal/config"
	"github.com/carstage/carstage/internal/logging"
	"github.com/carstage/carstage/internal/utils"
	"github.com/carstage/carstage/pkg/client"
	"github.com/carstage/carstage/pkg/processing"
	"github.com/carstage/carstage/pkg/session"
	"github.com/carstage/carstage/pkg/types"
)

// Handler wires the placement sessions to the HTTP API.
type Handler struct {
	cfg       *config.Config
	store     *SessionStore
	processor *processing.Processor
	blend     client.BlendClient
	cache     *BlendCache
}

func NewHandler(cfg *config.Config, store *SessionStore, blend client.BlendClient, cache *BlendCache) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		processor: processing.NewProcessor(),
		blend:     blend,
		cache:     cache,
	}
}

// CreateSession starts a new placement workflow.
func (h *Handler) CreateSession(c *gin.Context) {
	id, sess := h.store.Create()
	c.JSON(http.StatusOK, SessionResponse{
		Success: true,
		ID:      id,
		State:   sess.State().String(),
	})
}

// GetSession reports a session's current state.
func (h *Handler) GetSession(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	resp := SessionResponse{
		Success: true,
		ID:      c.Param("id"),
		State:   sess.State().String(),
		Scale:   sess.Scale(),
	}

	if anchor, has := sess.Anchor(); has {
		resp.Anchor = &anchor
		if hint, err := sess.DepthHint(); err == nil {
			resp.Hint = &hint
		}
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteSession drops a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	h.store.Delete(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UploadBackground decodes an uploaded background photograph into the
// session, resetting any prior placement.
func (h *Handler) UploadBackground(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	img, err := h.processor.DecodeBytes(data)
	if err != nil {
		logging.Logger.Error("failed to decode background", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "uploaded file is not a valid image",
			Error:   err.Error(),
		})
		return
	}

	sess.SetBackground(img)

	b := img.Bounds()
	c.JSON(http.StatusOK, UploadResponse{
		Success: true,
		Message: "background loaded",
		Width:   b.Dx(),
		Height:  b.Dy(),
	})
}

// UploadForeground decodes an uploaded foreground cutout into the
// session. With extract=true the raw photo is first routed through the
// extraction service to remove its background.
func (h *Handler) UploadForeground(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	data, ok := h.readUpload(c)
	if !ok {
		return
	}

	if c.DefaultPostForm("extract", "false") == "true" {
		img, err := h.processor.DecodeBytes(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Success: false,
				Message: "uploaded file is not a valid image",
				Error:   err.Error(),
			})
			return
		}

		b64, err := h.processor.EncodeForService(img, "png", h.cfg.Compose.SendMaxDim, h.cfg.Compose.SendQuality)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Success: false,
				Message: "failed to prepare image for extraction",
				Error:   err.Error(),
			})
			return
		}

		result, err := h.blend.RemoveBackground(c.Request.Context(), b64)
		if err != nil {
			logging.Logger.Error("extraction service failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, ErrorResponse{
				Success: false,
				Message: "extraction service failed",
				Error:   err.Error(),
			})
			return
		}
		data = result.Data
	}

	img, err := h.processor.DecodeBytes(data)
	if err != nil {
		logging.Logger.Error("failed to decode foreground", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "foreground is not a valid image",
			Error:   err.Error(),
		})
		return
	}

	sess.SetForeground(img)

	b := img.Bounds()
	c.JSON(http.StatusOK, UploadResponse{
		Success: true,
		Message: "foreground loaded",
		Width:   b.Dx(),
		Height:  b.Dy(),
	})
}

// SetAnchor records a placement gesture made against a render box of
// the given size and echoes the mapped native anchor plus the shadow
// halo styling for the overlay.
func (h *Handler) SetAnchor(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req AnchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "invalid anchor request",
			Error:   err.Error(),
		})
		return
	}

	if err := sess.SetRenderBox(req.BoxWidth, req.BoxHeight); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "invalid render box",
			Error:   err.Error(),
		})
		return
	}

	if err := sess.SetAnchor(types.Point{X: req.X, Y: req.Y}); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrImageNotReady) {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorResponse{
			Success: false,
			Message: "failed to place anchor",
			Error:   err.Error(),
		})
		return
	}

	native, _ := sess.Anchor()
	hint, err := sess.DepthHint()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Message: "failed to derive depth hint",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AnchorResponse{
		Success:      true,
		NativeAnchor: native,
		Hint:         hint,
	})
}

// SetScale records a user scale override.
func (h *Handler) SetScale(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req ScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "invalid scale request",
			Error:   err.Error(),
		})
		return
	}

	sess.SetScale(req.Scale)
	c.JSON(http.StatusOK, gin.H{"success": true, "scale": sess.Scale()})
}

// Composite flattens the current placement. With blend=true the
// composite is handed to the blend service and the photorealistic
// result is returned instead, cached by the composite's digest.
func (h *Handler) Composite(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	out, err := sess.RequestComposite(c.Request.Context())
	if err != nil {
		status := http.StatusConflict
		switch {
		case errors.Is(err, session.ErrNoAnchor):
		case errors.Is(err, session.ErrImageNotReady):
		default:
			status = http.StatusInternalServerError
		}
		c.JSON(status, ErrorResponse{
			Success: false,
			Message: "composite failed",
			Error:   err.Error(),
		})
		return
	}

	data, err := h.processor.EncodePNG(out)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Message: "failed to encode composite",
			Error:   err.Error(),
		})
		return
	}

	if c.Query("blend") != "true" {
		c.Data(http.StatusOK, "image/png", data)
		return
	}

	digest := utils.BytesMD5(data)
	ctx := c.Request.Context()

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, digest); err != nil {
			logging.Logger.Warn("blend cache lookup failed", zap.Error(err))
		} else if cached != nil {
			logging.Logger.Info("blend cache hit", zap.String("md5", digest))
			c.Data(http.StatusOK, cached.MimeType, cached.Data)
			return
		}
	}

	result, err := h.blend.Blend(ctx, types.BlendRequest{
		Model:    h.cfg.Services.BlendModel,
		Prompt:   h.cfg.Services.BlendPrompt,
		ImageB64: base64Encode(data),
	})
	if err != nil {
		logging.Logger.Error("blend service failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Success: false,
			Message: "blend service failed",
			Error:   err.Error(),
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, digest, result); err != nil {
			logging.Logger.Warn("blend cache store failed", zap.Error(err))
		}
	}

	c.Data(http.StatusOK, result.MimeType, result.Data)
}

// session fetches the session named in the route, replying 404 itself
// when it is missing.
func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	sess := h.store.Get(c.Param("id"))
	if sess == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Success: false,
			Message: "session not found",
		})
		return nil, false
	}
	return sess, true
}

// readUpload pulls the "image" form file, enforcing the configured
// size and type limits.
func (h *Handler) readUpload(c *gin.Context) ([]byte, bool) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "missing image file",
			Error:   err.Error(),
		})
		return nil, false
	}

	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "file too large (limit " + utils.FormatFileSize(h.cfg.Upload.MaxSize) + ")",
		})
		return nil, false
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "unsupported file type " + contentType,
		})
		return nil, false
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Message: "failed to open upload",
			Error:   err.Error(),
		})
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Success: false,
			Message: "failed to read upload",
			Error:   err.Error(),
		})
		return nil, false
	}

	return data, true
}

func (h *Handler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.Upload.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
