package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"resumeingest/internal/errcode"
)

// Input 以显式标签区分三种来源，三者有且只能有一个非空：
// 内存中的字节、本地文件路径、或一个 HTTP(S) 地址。
type Input struct {
	Buffer    []byte
	Path      string
	RemoteURL string
}

// Result 汇总一次提取的全部产出。
type Result struct {
	Text        string
	NumPages    int
	NumRendered int
	Info        map[string]any
	Metadata    map[string]any
	Version     string
}

// Extractor 将 PDF 字节转换为纯文本。HTTP 客户端可注入，默认使用 http.DefaultClient。
type Extractor struct {
	httpClient *http.Client
}

// NewExtractor 构造 Extractor。
func NewExtractor() *Extractor {
	return &Extractor{httpClient: http.DefaultClient}
}

// Extract 解析给定来源的 PDF，返回文本与基础元信息。
// 任何失败都会包装为提取类错误返回，不做重试。
func (e *Extractor) Extract(ctx context.Context, in Input) (result *Result, err error) {
	data, err := e.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	// 底层解析库对损坏文件可能 panic，统一转成提取错误。
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errcode.Wrapf(errcode.KindExtraction, fmt.Errorf("%v", r), "failed to parse PDF")
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errcode.Wrap(errcode.KindExtraction, "failed to parse PDF", err)
	}

	numPages := reader.NumPage()
	var textBuilder strings.Builder
	rendered := 0
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页失败跳过，图片页或缺字体的页面正文可以为空。
			continue
		}
		if text != "" {
			rendered++
		}
		textBuilder.WriteString(text)
	}

	return &Result{
		Text:        textBuilder.String(),
		NumPages:    numPages,
		NumRendered: rendered,
		Info:        infoDict(reader),
		Metadata:    map[string]any{},
		Version:     pdfVersion(data),
	}, nil
}

// resolve 把三种输入形态统一解析为字节缓冲。
func (e *Extractor) resolve(ctx context.Context, in Input) ([]byte, error) {
	set := 0
	if len(in.Buffer) > 0 {
		set++
	}
	if in.Path != "" {
		set++
	}
	if in.RemoteURL != "" {
		set++
	}
	if set != 1 {
		return nil, errcode.New(errcode.KindExtraction, "exactly one input source must be provided")
	}

	switch {
	case len(in.Buffer) > 0:
		return in.Buffer, nil
	case in.Path != "":
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, errcode.Wrap(errcode.KindExtraction, "failed to read PDF file", err)
		}
		return data, nil
	default:
		return e.fetch(ctx, in.RemoteURL)
	}
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errcode.Wrap(errcode.KindExtraction, "invalid PDF url", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, errcode.Wrap(errcode.KindExtraction, "failed to fetch PDF url", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errcode.Wrapf(errcode.KindExtraction,
			errors.New(resp.Status), "failed to fetch PDF url (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errcode.Wrap(errcode.KindExtraction, "failed to read PDF response", err)
	}
	return data, nil
}

// infoDict 读取 trailer 中的 /Info 字典（作者、创建工具等）。
func infoDict(reader *pdf.Reader) map[string]any {
	info := map[string]any{}
	v := reader.Trailer().Key("Info")
	if v.Kind() != pdf.Dict {
		return info
	}
	for _, key := range v.Keys() {
		entry := v.Key(key)
		switch entry.Kind() {
		case pdf.String:
			info[key] = entry.RawString()
		case pdf.Integer:
			info[key] = entry.Int64()
		case pdf.Real:
			info[key] = entry.Float64()
		case pdf.Name:
			info[key] = entry.Name()
		}
	}
	return info
}

// pdfVersion 从文件头 %PDF-x.y 读出版本串。
func pdfVersion(data []byte) string {
	const prefix = "%PDF-"
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return ""
	}
	rest := data[len(prefix):]
	end := bytes.IndexAny(rest, "\r\n ")
	if end < 0 || end > 8 {
		end = min(len(rest), 8)
	}
	return strings.TrimSpace(string(rest[:end]))
}
