package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username     string   `gorm:"uniqueIndex;size:64"`
	PasswordHash string   `gorm:"size:255"`
	Resumes      []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示一次成功上传产生的简历记录。
// RawContent 保存从 PDF 提取的原始文本，结构化内容落在 Sections。
type Resume struct {
	gorm.Model
	Title      string    `gorm:"size:255"`
	ResumeURL  string    `gorm:"size:512"` // 源文件在对象存储中的 key 或外部 URL
	RawContent string    `gorm:"type:text"`
	UserID     uint      `gorm:"index"`
	User       User      `gorm:"constraint:OnDelete:CASCADE"`
	Sections   []Section `gorm:"constraint:OnDelete:CASCADE"`
}

// Section 表示简历的一个结构化片段。
// Type 取值：personal_info / education / experience / skills / projects；
// Order 固定为 0..4，与类型一一对应且在同一份简历内唯一。
type Section struct {
	gorm.Model
	ResumeID uint           `gorm:"index"`
	Type     string         `gorm:"size:32"`
	Title    string         `gorm:"size:255"`
	Content  datatypes.JSON `gorm:"type:jsonb"`
	Order    int            `gorm:"column:display_order"`
}
