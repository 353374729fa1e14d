package migration

import (
	"context"
	"errors"
	"fmt"

	appconfig "github.com/BaSui01/quizflow/config"
)

// NewMigratorFromConfig 使用应用配置中的数据库段创建迁移器
func NewMigratorFromConfig(cfg *appconfig.Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	return NewMigratorFromDatabaseConfig(cfg.Database)
}

// NewMigratorFromDatabaseConfig 按 DatabaseConfig 拼接连接串。sqlite 时 Name 为文件路径
func NewMigratorFromDatabaseConfig(dbCfg appconfig.DatabaseConfig) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(dbCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	sslMode := ""
	if dbType == DatabaseTypePostgres {
		sslMode = dbCfg.SSLMode
	}
	url := BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, sslMode)
	return NewMigrator(&Config{DatabaseType: dbType, DatabaseURL: url})
}

// NewMigratorFromURL 直接使用连接串创建迁移器
func NewMigratorFromURL(dbType, dbURL string) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}
	return NewMigrator(&Config{DatabaseType: dt, DatabaseURL: dbURL})
}

// UpFromConfig 在独立连接上应用全部待执行迁移，返回迁移后的版本。
// serve 启动时调用。
func UpFromConfig(ctx context.Context, dbCfg appconfig.DatabaseConfig) (uint, error) {
	m, err := NewMigratorFromDatabaseConfig(dbCfg)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return 0, err
	}
	version, _, err := m.Version(ctx)
	return version, err
}
