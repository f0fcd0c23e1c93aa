package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

type uploadStorage interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// UploadHandler 负责简历源文件的托管上传与访问。
// 这是"先上传后处理"流程的第一步：文件先落对象存储，
// 拿到 objectKey 后再提交给 /v1/pdf。
type UploadHandler struct {
	Storage   uploadStorage
	Logger    *slog.Logger
	ClamdAddr string
	MaxBytes  int64
}

// NewUploadHandler 返回 UploadHandler 实例。
func NewUploadHandler(storageClient uploadStorage, logger *slog.Logger, clamdAddr string, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		Storage:   storageClient,
		Logger:    logger,
		ClamdAddr: clamdAddr,
		MaxBytes:  maxBytes,
	}
}

// UploadResume 接收 PDF 并写入对象存储，返回 objectKey 与限时下载链接。
func (h *UploadHandler) UploadResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "No PDF file provided")
		return
	}

	if !strings.HasSuffix(strings.ToLower(file.Filename), ".pdf") {
		BadRequest(c, "Only PDF files are accepted")
		return
	}

	if h.MaxBytes > 0 && file.Size > h.MaxBytes {
		BadRequest(c, "file too large")
		return
	}

	data, err := readMultipartFile(file)
	if err != nil {
		Internal(c, "failed to read uploaded file")
		return
	}

	if h.ClamdAddr != "" {
		if err := scanBytes(h.ClamdAddr, data); err != nil {
			h.Logger.Warn("upload rejected by scanner", slog.Any("error", err))
			BadRequest(c, "malicious file detected")
			return
		}
	}

	objectKey := fmt.Sprintf("resumes/%d/%s.pdf", userID, uuid.NewString())
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	ctx := c.Request.Context()
	if _, err := h.Storage.UploadFile(ctx, objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		h.Logger.Error("upload file", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(ctx, objectKey, 15*time.Minute)
	if err != nil {
		h.Logger.Error("generate upload url", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"objectKey": objectKey,
		"url":       signedURL,
	})
}

// GetResumeFileURL 返回托管源文件的临时预签名 URL。
func (h *UploadHandler) GetResumeFileURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if objectKey == "" {
		BadRequest(c, "missing key")
		return
	}

	if !isValidUserResumeObjectKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		h.Logger.Error("generate presigned url", slog.Any("error", err))
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}
