package structurer

import "google.golang.org/genai"

// resumeSchema 约束模型输出必须符合 ParsedResume 的结构。
// 字段描述会直接影响抽取质量，调整前先在真实简历上回归。
func resumeSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: "A structured representation of a resume with personal information, education, experience, skills, and projects.",
		Properties: map[string]*genai.Schema{
			"personalInfo": {
				Type:        genai.TypeObject,
				Description: "Personal information section",
				Properties: map[string]*genai.Schema{
					"name":     {Type: genai.TypeString, Description: "Full name of the person"},
					"email":    {Type: genai.TypeString, Description: "Email address of the person"},
					"phone":    {Type: genai.TypeString, Description: "Phone number if available"},
					"location": {Type: genai.TypeString, Description: "Location/address if available"},
					"linkedIn": {Type: genai.TypeString, Description: "LinkedIn profile URL if available"},
				},
				Required: []string{"name", "email"},
			},
			"education": {
				Type:        genai.TypeArray,
				Description: "Education history",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"institution": {Type: genai.TypeString, Description: "Name of the educational institution"},
						"degree":      {Type: genai.TypeString, Description: "Degree or certification obtained"},
						"date":        {Type: genai.TypeString, Description: "Date of graduation or period of study"},
						"gpa":         {Type: genai.TypeString, Description: "GPA if available"},
					},
					Required: []string{"institution", "degree", "date"},
				},
			},
			"experience": {
				Type:        genai.TypeArray,
				Description: "Work experience history",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"company":   {Type: genai.TypeString, Description: "Company name"},
						"position":  {Type: genai.TypeString, Description: "Job title/position"},
						"startDate": {Type: genai.TypeString, Description: "Start date of employment"},
						"endDate":   {Type: genai.TypeString, Description: "End date of employment or \"Present\""},
						"highlights": {
							Type:        genai.TypeArray,
							Description: "Key achievements and responsibilities",
							Items:       &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"company", "position", "startDate", "endDate"},
				},
			},
			"skills": {
				Type:        genai.TypeObject,
				Description: "Skills section",
				Properties: map[string]*genai.Schema{
					"technical": {
						Type:        genai.TypeArray,
						Description: "Technical/hard skills",
						Items:       &genai.Schema{Type: genai.TypeString},
					},
					"soft": {
						Type:        genai.TypeArray,
						Description: "Soft/interpersonal skills",
						Items:       &genai.Schema{Type: genai.TypeString},
					},
				},
			},
			"projects": {
				Type:        genai.TypeArray,
				Description: "Notable projects",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name":        {Type: genai.TypeString, Description: "Project name"},
						"description": {Type: genai.TypeString, Description: "Project description"},
						"technologies": {
							Type:        genai.TypeArray,
							Description: "Technologies used in the project",
							Items:       &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"name", "description"},
				},
			},
		},
		Required: []string{"personalInfo", "education", "experience", "skills"},
	}
}
