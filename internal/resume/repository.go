package resume

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"resumeingest/internal/database"
	"resumeingest/internal/errcode"
)

// 持久化层哨兵错误，供上层区分"目标不存在"与其它存储故障。
var (
	ErrUserNotFound   = errors.New("user does not exist")
	ErrResumeNotFound = errors.New("resume does not exist")
)

// Repository 负责 Resume 及其 Section 的持久化。
// 所有写操作在单个事务内完成，读侧不会观察到半写状态。
type Repository struct {
	db *gorm.DB
}

// NewRepository 构造 Repository。
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithSections 插入一条新的简历记录及其全部 Section。
func (r *Repository) CreateWithSections(ctx context.Context, userID uint, title, resumeURL, rawText string, parsed *ParsedResume) (*database.Resume, error) {
	sections, err := BuildSections(parsed)
	if err != nil {
		return nil, errcode.Wrap(errcode.KindPersistence, "failed to encode resume sections", err)
	}

	var created database.Resume
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user database.User
		if err := tx.Select("id").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.Wrap(errcode.KindPersistence, "user does not exist", ErrUserNotFound)
			}
			return errcode.Wrap(errcode.KindPersistence, "failed to load user", err)
		}

		created = database.Resume{
			Title:      title,
			ResumeURL:  resumeURL,
			RawContent: rawText,
			UserID:     userID,
			Sections:   sections,
		}
		if err := tx.Create(&created).Error; err != nil {
			return errcode.Wrap(errcode.KindPersistence, "failed to create resume", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateWithSections 替换既有简历的原始文本与全部 Section。
// 旧 Section 在同一事务中删除后重建，重复调用不会产生重复区块。
func (r *Repository) UpdateWithSections(ctx context.Context, resumeID uint, rawText string, parsed *ParsedResume) (*database.Resume, error) {
	sections, err := BuildSections(parsed)
	if err != nil {
		return nil, errcode.Wrap(errcode.KindPersistence, "failed to encode resume sections", err)
	}

	var updated database.Resume
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, resumeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.Wrap(errcode.KindPersistence, "resume does not exist", ErrResumeNotFound)
			}
			return errcode.Wrap(errcode.KindPersistence, "failed to load resume", err)
		}

		if err := tx.Where("resume_id = ?", resumeID).Delete(&database.Section{}).Error; err != nil {
			return errcode.Wrap(errcode.KindPersistence, "failed to clear resume sections", err)
		}

		for i := range sections {
			sections[i].ResumeID = resumeID
		}
		if err := tx.Create(&sections).Error; err != nil {
			return errcode.Wrap(errcode.KindPersistence, "failed to write resume sections", err)
		}

		if err := tx.Model(&updated).Update("raw_content", rawText).Error; err != nil {
			return errcode.Wrap(errcode.KindPersistence, "failed to update resume", err)
		}

		updated.RawContent = rawText
		updated.Sections = sections
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetWithSections 返回指定用户的一份简历，Section 按 display_order 升序。
func (r *Repository) GetWithSections(ctx context.Context, resumeID, userID uint) (*database.Resume, error) {
	var res database.Resume
	err := r.db.WithContext(ctx).
		Preload("Sections", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("id = ? AND user_id = ?", resumeID, userID).
		First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errcode.Wrap(errcode.KindPersistence, "resume does not exist", ErrResumeNotFound)
		}
		return nil, errcode.Wrap(errcode.KindPersistence, "failed to query resume", err)
	}
	return &res, nil
}

// ListByUser 列出用户全部简历（不含 Section）。
func (r *Repository) ListByUser(ctx context.Context, userID uint) ([]database.Resume, error) {
	var resumes []database.Resume
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error
	if err != nil {
		return nil, errcode.Wrap(errcode.KindPersistence, "failed to list resumes", err)
	}
	return resumes, nil
}

// Delete 删除指定用户的一份简历，Section 级联删除。
func (r *Repository) Delete(ctx context.Context, resumeID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var res database.Resume
		if err := tx.Where("id = ? AND user_id = ?", resumeID, userID).First(&res).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errcode.Wrap(errcode.KindPersistence, "resume does not exist", ErrResumeNotFound)
			}
			return errcode.Wrap(errcode.KindPersistence, "failed to query resume", err)
		}
		if err := tx.Where("resume_id = ?", resumeID).Delete(&database.Section{}).Error; err != nil {
			return errcode.Wrap(errcode.KindPersistence, "failed to delete resume sections", err)
		}
		if err := tx.Delete(&database.Resume{}, resumeID).Error; err != nil {
			return errcode.Wrap(errcode.KindPersistence, "failed to delete resume", err)
		}
		return nil
	})
}
