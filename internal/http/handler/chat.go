package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/upstream"
	"github.com/gin-gonic/gin"
)

const (
	defaultStreamContentType = "text/event-stream"
	maxClearBodyBytes        = 1 << 20
	streamBufferSize         = 32 << 10
)

// ChatHandler relays chat operations to the upstream service. The upstream
// API key never leaves the server.
type ChatHandler struct {
	upstream       upstream.Client
	maxUploadBytes int64
}

func NewChatHandler(client upstream.Client, maxUploadBytes int64) *ChatHandler {
	return &ChatHandler{
		upstream:       client,
		maxUploadBytes: maxUploadBytes,
	}
}

// Submit forwards a multipart chat turn and streams the upstream reply back
// chunk by chunk.
func (h *ChatHandler) Submit(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "chat.relay.submit"})

	contentType := c.GetHeader("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err != nil || mediaType != "multipart/form-data" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart/form-data"})
		return
	}

	body := c.Request.Body
	if h.maxUploadBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxUploadBytes)
	}

	resp, err := h.upstream.SubmitChat(ctx, contentType, body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		slog.ErrorContext(ctx, "proxying chat submission failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reach upstream chat service"})
		return
	}
	defer resp.Body.Close()

	upstreamType := resp.Header.Get("Content-Type")
	if upstreamType == "" {
		upstreamType = defaultStreamContentType
	}
	c.Header("Content-Type", upstreamType)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	written, err := streamBody(c.Writer, resp.Body)
	if err != nil {
		// Headers are out; the client sees a truncated stream.
		slog.WarnContext(ctx, "chat stream interrupted", "error", err, "bytes", written)
		return
	}
	slog.DebugContext(ctx, "chat stream relayed", "status", resp.StatusCode, "bytes", written)
}

// History forwards the query string verbatim and returns the upstream body.
func (h *ChatHandler) History(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "chat.relay.history"})
	if sessionID := c.Query("session_id"); sessionID != "" {
		ctx = logger.WithLogFields(ctx, logger.LogFields{ChatSessionID: logger.Ptr(sessionID)})
	}

	resp, err := h.upstream.FetchHistory(ctx, c.Request.URL.Query())
	if err != nil {
		slog.ErrorContext(ctx, "proxying chat history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat history"})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.ErrorContext(ctx, "reading chat history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch chat history"})
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(resp.StatusCode, contentTypeOr(resp, "application/json"), body)
}

// Clear validates the JSON body and forwards it to the upstream clear
// endpoint.
func (h *ChatHandler) Clear(c *gin.Context) {
	ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "chat.relay.clear"})

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxClearBodyBytes))
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	var ids struct {
		SessionID string `json:"session_id"`
	}
	if json.Unmarshal(body, &ids) == nil && ids.SessionID != "" {
		ctx = logger.WithLogFields(ctx, logger.LogFields{ChatSessionID: logger.Ptr(ids.SessionID)})
	}

	resp, err := h.upstream.ClearSession(ctx, body)
	if err != nil {
		slog.ErrorContext(ctx, "proxying chat clear failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear chat session"})
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.ErrorContext(ctx, "reading chat clear response failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear chat session"})
		return
	}

	if resp.StatusCode >= 300 {
		slog.WarnContext(ctx, "upstream rejected chat clear", "status", resp.StatusCode)
	}
	c.Data(resp.StatusCode, contentTypeOr(resp, "application/json"), respBody)
}

func contentTypeOr(resp *http.Response, fallback string) string {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return fallback
}

// streamBody copies src to w, flushing after every chunk so tokens reach
// the browser as they arrive.
func streamBody(w gin.ResponseWriter, src io.Reader) (int64, error) {
	buf := make([]byte, streamBufferSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			m, err := w.Write(buf[:n])
			written += int64(m)
			if err != nil {
				return written, err
			}
			w.Flush()
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}
