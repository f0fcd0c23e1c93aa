package resume

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	"resumeingest/internal/database"
)

// Section 类型取值，顺序即持久化时的 display_order。
const (
	SectionPersonalInfo = "personal_info"
	SectionEducation    = "education"
	SectionExperience   = "experience"
	SectionSkills       = "skills"
	SectionProjects     = "projects"
)

// ParsedResume 是生成模型从原始文本抽取出的结构化简历。
// 它只在请求内短暂存在，持久化时被拆成若干 Section。
type ParsedResume struct {
	PersonalInfo PersonalInfo `json:"personalInfo"`
	Education    []Education  `json:"education"`
	Experience   []Experience `json:"experience"`
	Skills       Skills       `json:"skills"`
	Projects     []Project    `json:"projects,omitempty"`
}

// PersonalInfo 描述个人信息区块。
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedIn,omitempty"`
}

// Education 描述一段教育经历。
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree"`
	Date        string `json:"date"`
	GPA         string `json:"gpa,omitempty"`
}

// Experience 描述一段工作经历。
type Experience struct {
	Company    string   `json:"company"`
	Position   string   `json:"position"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Highlights []string `json:"highlights"`
}

// Skills 分为硬技能与软技能两组。
type Skills struct {
	Technical []string `json:"technical"`
	Soft      []string `json:"soft"`
}

// Project 描述一个项目经历。
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
}

// Validate 在模型调用自身的 schema 校验之外再做一层应用级校验，
// 保证不会有半合法对象流入持久化层。
func (p *ParsedResume) Validate() error {
	if p == nil {
		return errors.New("parsed resume is nil")
	}
	if p.PersonalInfo.Name == "" {
		return errors.New("personalInfo.name is required")
	}
	if p.PersonalInfo.Email == "" {
		return errors.New("personalInfo.email is required")
	}
	for i, e := range p.Education {
		if e.Institution == "" || e.Degree == "" {
			return fmt.Errorf("education[%d] is missing institution or degree", i)
		}
	}
	for i, e := range p.Experience {
		if e.Company == "" || e.Position == "" {
			return fmt.Errorf("experience[%d] is missing company or position", i)
		}
	}
	for i, pr := range p.Projects {
		if pr.Name == "" {
			return fmt.Errorf("projects[%d] is missing name", i)
		}
	}
	return nil
}

// BuildSections 将 ParsedResume 拆成固定顺序的 Section 记录：
// personal_info=0、education=1、experience=2、skills=3，
// 仅当存在项目经历时追加 projects=4。
func BuildSections(parsed *ParsedResume) ([]database.Section, error) {
	type slice struct {
		typ     string
		title   string
		payload any
	}

	slices := []slice{
		{SectionPersonalInfo, "Personal Information", parsed.PersonalInfo},
		{SectionEducation, "Education", parsed.Education},
		{SectionExperience, "Experience", parsed.Experience},
		{SectionSkills, "Skills", parsed.Skills},
	}
	if len(parsed.Projects) > 0 {
		slices = append(slices, slice{SectionProjects, "Projects", parsed.Projects})
	}

	sections := make([]database.Section, 0, len(slices))
	for order, s := range slices {
		content, err := json.Marshal(s.payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s section: %w", s.typ, err)
		}
		sections = append(sections, database.Section{
			Type:    s.typ,
			Title:   s.title,
			Content: datatypes.JSON(content),
			Order:   order,
		})
	}
	return sections, nil
}
