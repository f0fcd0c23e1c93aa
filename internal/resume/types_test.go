package resume

import (
	"encoding/json"
	"testing"
)

func sampleParsed() *ParsedResume {
	return &ParsedResume{
		PersonalInfo: PersonalInfo{
			Name:  "Ada Lovelace",
			Email: "ada@example.com",
		},
		Education: []Education{
			{Institution: "University of London", Degree: "BSc Mathematics", Date: "1833"},
		},
		Experience: []Experience{
			{Company: "Analytical Engines Ltd", Position: "Programmer", StartDate: "1842", EndDate: "1843", Highlights: []string{"wrote the first program"}},
		},
		Skills: Skills{
			Technical: []string{"mathematics"},
			Soft:      []string{"writing"},
		},
	}
}

func TestBuildSections_FixedOrder(t *testing.T) {
	sections, err := BuildSections(sampleParsed())
	if err != nil {
		t.Fatalf("build sections: %v", err)
	}
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections without projects, got %d", len(sections))
	}

	wantTypes := []string{SectionPersonalInfo, SectionEducation, SectionExperience, SectionSkills}
	for i, s := range sections {
		if s.Type != wantTypes[i] {
			t.Errorf("section %d: type = %q, want %q", i, s.Type, wantTypes[i])
		}
		if s.Order != i {
			t.Errorf("section %d: order = %d, want %d", i, s.Order, i)
		}
	}
}

func TestBuildSections_ProjectsOnlyWhenPresent(t *testing.T) {
	parsed := sampleParsed()
	parsed.Projects = []Project{
		{Name: "Notes on the Analytical Engine", Description: "annotated translation", Technologies: []string{"pen"}},
	}

	sections, err := BuildSections(parsed)
	if err != nil {
		t.Fatalf("build sections: %v", err)
	}
	if len(sections) != 5 {
		t.Fatalf("expected 5 sections with projects, got %d", len(sections))
	}
	last := sections[4]
	if last.Type != SectionProjects || last.Order != 4 {
		t.Fatalf("projects section = {type:%q order:%d}, want {type:%q order:4}", last.Type, last.Order, SectionProjects)
	}

	var got []Project
	if err := json.Unmarshal(last.Content, &got); err != nil {
		t.Fatalf("unmarshal projects content: %v", err)
	}
	if len(got) != 1 || got[0].Name != parsed.Projects[0].Name {
		t.Fatalf("projects content round trip mismatch: %+v", got)
	}
}

func TestBuildSections_SectionTitles(t *testing.T) {
	parsed := sampleParsed()
	parsed.Projects = []Project{{Name: "x"}}
	sections, err := BuildSections(parsed)
	if err != nil {
		t.Fatalf("build sections: %v", err)
	}
	wantTitles := []string{"Personal Information", "Education", "Experience", "Skills", "Projects"}
	for i, s := range sections {
		if s.Title != wantTitles[i] {
			t.Errorf("section %d: title = %q, want %q", i, s.Title, wantTitles[i])
		}
	}
}

func TestParsedResumeValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(p *ParsedResume)
		wantErr bool
	}{
		{"valid", func(p *ParsedResume) {}, false},
		{"missing name", func(p *ParsedResume) { p.PersonalInfo.Name = "" }, true},
		{"missing email", func(p *ParsedResume) { p.PersonalInfo.Email = "" }, true},
		{"education missing institution", func(p *ParsedResume) { p.Education[0].Institution = "" }, true},
		{"experience missing company", func(p *ParsedResume) { p.Experience[0].Company = "" }, true},
		{"project missing name", func(p *ParsedResume) { p.Projects = []Project{{Description: "no name"}} }, true},
		{"empty education allowed", func(p *ParsedResume) { p.Education = nil }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := sampleParsed()
			tc.mutate(p)
			err := p.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
