package gormstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fxchannel/internal/store"
	storemodel "fxchannel/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tradeRuleModel = storemodel.TradeRuleModel
type tradeHistoryModel = storemodel.TradeHistoryModel
type dailyLogModel = storemodel.DailyLogModel

// GormStore 用 gorm + SQLite 保存规则、持仓记录与日快照。
type GormStore struct {
	db        *gorm.DB
	rules     *RuleRepo
	positions *PositionRepo
	logs      *DailyLogRepo
}

var _ store.Store = (*GormStore)(nil)

// NewGormStore 打开（不存在则创建）path 处的数据库并迁移表结构。
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: 数据库路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("gorm store: 创建目录失败: %w", err)
		}
	}
	db, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("gorm store: 打开 %s 失败: %w", path, err)
	}
	return &GormStore{
		db:        db,
		rules:     &RuleRepo{db: db},
		positions: &PositionRepo{db: db},
		logs:      &DailyLogRepo{db: db},
	}, nil
}

func open(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&tradeRuleModel{}, &tradeHistoryModel{}, &dailyLogModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite 只有一个写者；优化器并发写入时由连接池排队。
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return db, nil
}

func (s *GormStore) Rules() store.RuleStore         { return s.rules }
func (s *GormStore) Positions() store.PositionStore { return s.positions }
func (s *GormStore) DailyLogs() store.DailyLogStore { return s.logs }

func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
