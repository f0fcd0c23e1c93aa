package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"resumeingest/internal/database"
	"resumeingest/internal/errcode"
	"resumeingest/internal/extract"
	"resumeingest/internal/metrics"
	"resumeingest/internal/resume"
	"resumeingest/internal/tasks"
)

type textExtractor interface {
	Extract(ctx context.Context, in extract.Input) (*extract.Result, error)
}

type resumeStructurer interface {
	Structure(ctx context.Context, text string) (*resume.ParsedResume, error)
}

type resumeRepository interface {
	CreateWithSections(ctx context.Context, userID uint, title, resumeURL, rawText string, parsed *resume.ParsedResume) (*database.Resume, error)
	UpdateWithSections(ctx context.Context, resumeID uint, rawText string, parsed *resume.ParsedResume) (*database.Resume, error)
	GetWithSections(ctx context.Context, resumeID, userID uint) (*database.Resume, error)
}

type taskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IngestHandler 串联上传→提取→结构化→落库的同步流水线。
// 每一步失败都直接短路为对应的错误响应，不重试。
type IngestHandler struct {
	extractor  textExtractor
	structurer resumeStructurer
	repo       resumeRepository
	enqueuer   taskEnqueuer
	logger     *slog.Logger
	maxBytes   int64
	clamdAddr  string
}

// NewIngestHandler 构造 IngestHandler，所有依赖在启动时注入。
func NewIngestHandler(
	extractor textExtractor,
	structurerSvc resumeStructurer,
	repo resumeRepository,
	enqueuer taskEnqueuer,
	logger *slog.Logger,
	maxBytes int64,
	clamdAddr string,
) *IngestHandler {
	return &IngestHandler{
		extractor:  extractor,
		structurer: structurerSvc,
		repo:       repo,
		enqueuer:   enqueuer,
		logger:     logger,
		maxBytes:   maxBytes,
		clamdAddr:  clamdAddr,
	}
}

type ingestResponse struct {
	Success       bool                 `json:"success"`
	ResumeID      uint                 `json:"resumeId"`
	FileURL       string               `json:"fileUrl,omitempty"`
	ParsedContent *resume.ParsedResume `json:"parsedContent"`
	RawText       string               `json:"rawText"`
}

// HandlePDF 处理 POST /v1/pdf。
// 鉴权由路由中间件完成，未登录请求在读取请求体之前就被 401 拦截。
func (h *IngestHandler) HandlePDF(c *gin.Context) {
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

	if h.maxBytes > 0 && file.Size > h.maxBytes {
		BadRequest(c, "file too large")
		return
	}

	fileURL := strings.TrimSpace(c.PostForm("fileUrl"))
	resumeIDParam := strings.TrimSpace(c.PostForm("resumeId"))

	data, err := readMultipartFile(file)
	if err != nil {
		Internal(c, "failed to read uploaded file")
		return
	}

	if h.clamdAddr != "" {
		if err := scanBytes(h.clamdAddr, data); err != nil {
			h.logger.Warn("upload rejected by scanner", slog.Any("error", err))
			BadRequest(c, "malicious file detected")
			return
		}
	}

	ctx := c.Request.Context()
	logger := h.logger.With(slog.Uint64("user_id", uint64(userID)))

	start := time.Now()
	extracted, err := h.extractor.Extract(ctx, extract.Input{Buffer: data})
	metrics.ObserveStage(metrics.StageExtract, start, err)
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	start = time.Now()
	parsed, err := h.structurer.Structure(ctx, extracted.Text)
	metrics.ObserveStage(metrics.StageStructure, start, err)
	if err != nil {
		h.fail(c, logger, err)
		return
	}

	start = time.Now()
	var rec *database.Resume
	if resumeIDParam != "" {
		rec, err = h.updateExisting(ctx, userID, resumeIDParam, extracted.Text, parsed)
	} else {
		title := resumeTitle(parsed, file.Filename)
		rec, err = h.repo.CreateWithSections(ctx, userID, title, fileURL, extracted.Text, parsed)
	}
	metrics.ObserveStage(metrics.StagePersist, start, err)
	if err != nil {
		// 创建失败时宿主文件已无主，入队回收（尽力而为）。
		if resumeIDParam == "" && isValidUserResumeObjectKey(userID, fileURL) {
			h.enqueueCleanup(fileURL, logger)
		}
		h.fail(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, ingestResponse{
		Success:       true,
		ResumeID:      rec.ID,
		FileURL:       fileURL,
		ParsedContent: parsed,
		RawText:       extracted.Text,
	})
}

func (h *IngestHandler) updateExisting(ctx context.Context, userID uint, resumeIDParam, rawText string, parsed *resume.ParsedResume) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(resumeIDParam, 10, 64)
	if err != nil {
		return nil, errcode.New(errcode.KindBadRequest, "invalid resume id")
	}
	// 归属校验：目标简历必须属于当前用户。
	if _, err := h.repo.GetWithSections(ctx, uint(resumeID), userID); err != nil {
		return nil, err
	}
	return h.repo.UpdateWithSections(ctx, uint(resumeID), rawText, parsed)
}

func (h *IngestHandler) enqueueCleanup(objectKey string, logger *slog.Logger) {
	task, err := tasks.NewUploadCleanupTask(objectKey)
	if err != nil {
		logger.Error("create cleanup task failed", slog.Any("error", err))
		return
	}
	if _, err := h.enqueuer.Enqueue(task, asynq.MaxRetry(5)); err != nil {
		logger.Error("enqueue cleanup task failed",
			slog.String("object_key", objectKey),
			slog.Any("error", err),
		)
	}
}

func (h *IngestHandler) fail(c *gin.Context, logger *slog.Logger, err error) {
	kind := errcode.KindOf(err)
	logger.Error("resume ingest failed",
		slog.Int("kind", int(kind)),
		slog.Any("error", err),
	)
	Error(c, errcode.HTTPStatus(kind), errcode.UserMessage(err))
}

func resumeTitle(parsed *resume.ParsedResume, filename string) string {
	if parsed != nil && parsed.PersonalInfo.Name != "" {
		return parsed.PersonalInfo.Name
	}
	if filename != "" {
		return filename
	}
	return "Untitled Resume"
}

func readMultipartFile(file *multipart.FileHeader) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// scanBytes 将上传内容送交 clamd 扫描，检出即返回错误。
func scanBytes(clamdAddr string, data []byte) error {
	client := clamd.NewClamd(clamdAddr)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := client.ScanStream(bytes.NewReader(data), abortChan)
	if err != nil {
		return err
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return errcode.New(errcode.KindBadRequest, "malicious file detected")
		}
	}
	return nil
}
