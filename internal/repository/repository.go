package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Template  PeriodTemplateRepository
	Period    PeriodRepository
	Directory DirectoryRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Template:  NewPeriodTemplateRepo(db),
		Period:    NewPeriodRepo(db),
		Directory: NewDirectoryRepo(db),
	}
}
