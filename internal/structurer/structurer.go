package structurer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"resumeingest/internal/config"
	"resumeingest/internal/errcode"
	"resumeingest/internal/resume"
)

const promptTemplate = `Parse the following resume content into structured data. Extract all relevant information including personal details, education, work experience, skills, and projects if available. Make sure to maintain chronological order for education and experience sections.

Resume content:
%s`

// generator 抽象一次 schema 约束的生成调用，便于测试注入假实现。
type generator interface {
	generate(ctx context.Context, prompt string) (string, []*genai.SafetyRating, error)
}

// Service 调用生成模型，把简历原始文本转换为 ParsedResume。
// 单次调用、不重试；任何失败直接作为结构化错误上抛。
type Service struct {
	gen     generator
	logger  *slog.Logger
	timeout time.Duration
}

// NewService 用已初始化的 genai 客户端构造 Service。
// 客户端在进程启动时创建一次并复用，见 cmd/api。
func NewService(client *genai.Client, cfg config.GeminiConfig, logger *slog.Logger) *Service {
	return &Service{
		gen:     &geminiGenerator{client: client, model: cfg.Model},
		logger:  logger,
		timeout: cfg.Timeout,
	}
}

// Structure 请求模型抽取结构化简历，并在返回前做应用级二次校验。
func (s *Service) Structure(ctx context.Context, text string) (*resume.ParsedResume, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errcode.New(errcode.KindStructuring, "resume text is empty")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, ratings, err := s.gen.generate(ctx, fmt.Sprintf(promptTemplate, text))
	if err != nil {
		return nil, errcode.Wrap(errcode.KindStructuring, "failed to parse resume content", err)
	}

	// 安全评级仅做可观测记录，不参与控制流。
	if len(ratings) > 0 && s.logger != nil {
		s.logger.Info("model safety ratings", slog.Any("ratings", ratings))
	}

	var parsed resume.ParsedResume
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &parsed); err != nil {
		return nil, errcode.Wrap(errcode.KindStructuring, "model returned malformed resume data", err)
	}

	if err := parsed.Validate(); err != nil {
		return nil, errcode.Wrap(errcode.KindStructuring, "model output failed resume validation", err)
	}

	return &parsed, nil
}

type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string) (string, []*genai.SafetyRating, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   resumeSchema(),
	})
	if err != nil {
		return "", nil, err
	}

	text := resp.Text()
	if text == "" {
		return "", nil, errors.New("empty model response")
	}

	var ratings []*genai.SafetyRating
	if len(resp.Candidates) > 0 {
		ratings = resp.Candidates[0].SafetyRatings
	}
	return text, ratings, nil
}

// cleanJSON 去掉模型偶尔包裹的 Markdown 代码栅栏。
func cleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}
