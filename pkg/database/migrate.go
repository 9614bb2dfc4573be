package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// 迁移脚本随二进制内嵌，部署不依赖外部文件。
// 唯一索引与 CHECK 约束（单元格唯一、教师时段唯一、时段变体互斥）都在
// 迁移里声明，业务层的并发与校验语义依赖它们
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 应用所有未执行的 schema 迁移
// 服务启动时调用；已是最新版本时为幂等空操作
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载内嵌迁移脚本失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		logger.Warn("数据库迁移处于 dirty 状态，需要人工介入", zap.Uint("version", version))
	} else {
		logger.Info("数据库 schema 就绪", zap.Uint("version", version))
	}

	return nil
}
