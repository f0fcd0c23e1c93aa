package structurer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"resumeingest/internal/errcode"
)

type fakeGenerator struct {
	output  string
	ratings []*genai.SafetyRating
	err     error

	prompts []string
}

func (f *fakeGenerator) generate(_ context.Context, prompt string) (string, []*genai.SafetyRating, error) {
	f.prompts = append(f.prompts, prompt)
	return f.output, f.ratings, f.err
}

func newTestService(gen generator) *Service {
	return &Service{
		gen:     gen,
		logger:  slog.Default(),
		timeout: time.Second,
	}
}

const validModelOutput = `{
  "personalInfo": {"name": "Ada Lovelace", "email": "ada@example.com"},
  "education": [{"institution": "University of London", "degree": "BSc", "date": "1833"}],
  "experience": [{"company": "Analytical Engines Ltd", "position": "Programmer", "startDate": "1842", "endDate": "1843", "highlights": ["first program"]}],
  "skills": {"technical": ["mathematics"], "soft": ["writing"]}
}`

func TestStructure_ValidOutput(t *testing.T) {
	gen := &fakeGenerator{output: validModelOutput}
	svc := newTestService(gen)

	parsed, err := svc.Structure(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	if parsed.PersonalInfo.Name != "Ada Lovelace" {
		t.Errorf("name = %q, want %q", parsed.PersonalInfo.Name, "Ada Lovelace")
	}
	if len(parsed.Experience) != 1 || parsed.Experience[0].Company != "Analytical Engines Ltd" {
		t.Errorf("experience mismatch: %+v", parsed.Experience)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "resume text") {
		t.Error("prompt should embed the extracted resume text")
	}
}

func TestStructure_StripsCodeFences(t *testing.T) {
	gen := &fakeGenerator{output: "```json\n" + validModelOutput + "\n```"}
	svc := newTestService(gen)

	parsed, err := svc.Structure(context.Background(), "resume text")
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	if parsed.PersonalInfo.Email != "ada@example.com" {
		t.Errorf("email = %q, want %q", parsed.PersonalInfo.Email, "ada@example.com")
	}
}

func TestStructure_EmptyText(t *testing.T) {
	gen := &fakeGenerator{output: validModelOutput}
	svc := newTestService(gen)

	_, err := svc.Structure(context.Background(), "   \n\t ")
	if err == nil {
		t.Fatal("expected error for empty text")
	}
	if errcode.KindOf(err) != errcode.KindStructuring {
		t.Fatalf("expected structuring kind, got %v", errcode.KindOf(err))
	}
	if len(gen.prompts) != 0 {
		t.Fatal("model should not be called for empty text")
	}
}

func TestStructure_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc := newTestService(gen)

	_, err := svc.Structure(context.Background(), "resume text")
	if err == nil {
		t.Fatal("expected error when generator fails")
	}
	if errcode.KindOf(err) != errcode.KindStructuring {
		t.Fatalf("expected structuring kind, got %v", errcode.KindOf(err))
	}
}

func TestStructure_MalformedJSON(t *testing.T) {
	gen := &fakeGenerator{output: "not json at all"}
	svc := newTestService(gen)

	_, err := svc.Structure(context.Background(), "resume text")
	if err == nil {
		t.Fatal("expected error for malformed model output")
	}
	if errcode.KindOf(err) != errcode.KindStructuring {
		t.Fatalf("expected structuring kind, got %v", errcode.KindOf(err))
	}
}

func TestStructure_FailsSecondaryValidation(t *testing.T) {
	// 合法 JSON 但缺少必填的姓名。
	gen := &fakeGenerator{output: `{"personalInfo": {"email": "no-name@example.com"}, "education": [], "experience": [], "skills": {"technical": [], "soft": []}}`}
	svc := newTestService(gen)

	_, err := svc.Structure(context.Background(), "resume text")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if errcode.KindOf(err) != errcode.KindStructuring {
		t.Fatalf("expected structuring kind, got %v", errcode.KindOf(err))
	}
}

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n{\"a\":1}\n  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanJSON(tc.input); got != tc.want {
				t.Errorf("cleanJSON(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}
