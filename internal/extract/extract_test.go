package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"resumeingest/internal/errcode"
)

// minimalPDF 在运行时拼出一份单页 PDF，交叉引用表偏移随正文计算。
func minimalPDF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	var offsets []int
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")
	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	addObj("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")
	addObj("4 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
	stream := "BT /F1 12 Tf 72 720 Td (Hello Resume) Tj ET"
	addObj(fmt.Sprintf("5 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream))
	addObj("6 0 obj\n<< /Producer (unit test) >>\nendobj\n")

	xrefPos := buf.Len()
	buf.WriteString(fmt.Sprintf("xref\n0 %d\n", len(offsets)+1))
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		buf.WriteString(fmt.Sprintf("%010d 00000 n \n", off))
	}
	buf.WriteString(fmt.Sprintf("trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefPos))
	return buf.Bytes()
}

func TestExtract_Buffer(t *testing.T) {
	e := NewExtractor()

	result, err := e.Extract(context.Background(), Input{Buffer: minimalPDF(t)})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.NumPages != 1 {
		t.Errorf("NumPages = %d, want 1", result.NumPages)
	}
	if result.Version != "1.4" {
		t.Errorf("Version = %q, want %q", result.Version, "1.4")
	}
	if got := result.Info["Producer"]; got != "unit test" {
		t.Errorf("Info[Producer] = %v, want %q", got, "unit test")
	}
	if result.Metadata == nil {
		t.Error("Metadata should be non-nil")
	}
}

func TestExtract_InvalidBuffer(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(context.Background(), Input{Buffer: []byte("this is not a pdf")})
	if err == nil {
		t.Fatal("expected error for non-PDF bytes")
	}
	if errcode.KindOf(err) != errcode.KindExtraction {
		t.Fatalf("expected extraction kind, got %v", errcode.KindOf(err))
	}
}

func TestExtract_Path(t *testing.T) {
	e := NewExtractor()

	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, minimalPDF(t), 0o600); err != nil {
		t.Fatalf("write temp pdf: %v", err)
	}

	result, err := e.Extract(context.Background(), Input{Path: path})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.NumPages != 1 {
		t.Errorf("NumPages = %d, want 1", result.NumPages)
	}
}

func TestExtract_MissingPath(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(context.Background(), Input{Path: filepath.Join(t.TempDir(), "absent.pdf")})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if errcode.KindOf(err) != errcode.KindExtraction {
		t.Fatalf("expected extraction kind, got %v", errcode.KindOf(err))
	}
}

func TestExtract_RemoteURL(t *testing.T) {
	pdfBytes := minimalPDF(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdfBytes)
	}))
	defer srv.Close()

	e := NewExtractor()
	result, err := e.Extract(context.Background(), Input{RemoteURL: srv.URL + "/resume.pdf"})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.NumPages != 1 {
		t.Errorf("NumPages = %d, want 1", result.NumPages)
	}
}

func TestExtract_RemoteURLNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := NewExtractor()
	_, err := e.Extract(context.Background(), Input{RemoteURL: srv.URL + "/gone.pdf"})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if errcode.KindOf(err) != errcode.KindExtraction {
		t.Fatalf("expected extraction kind, got %v", errcode.KindOf(err))
	}
}

func TestExtract_InputValidation(t *testing.T) {
	e := NewExtractor()
	ctx := context.Background()

	if _, err := e.Extract(ctx, Input{}); err == nil {
		t.Error("expected error when no input source is set")
	}
	if _, err := e.Extract(ctx, Input{Buffer: []byte("x"), Path: "/tmp/x.pdf"}); err == nil {
		t.Error("expected error when two input sources are set")
	}
}
