package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqliteDriver "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/tatianab/questforge/internal/models"
)

// GormDurable persists one row per session. The full session is kept as a
// JSON document; a few columns are lifted out for operators.
type GormDurable struct {
	db *gorm.DB
}

type sessionRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	OwnerName string `gorm:"size:64"`
	Scenario  string `gorm:"size:32;index"`
	Status    string `gorm:"size:16;index"`
	TurnIndex int
	Document  []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sessionRow) TableName() string {
	return "sessions"
}

func NewGormDurable(driver, dsn string) (*GormDurable, error) {
	db, err := OpenGorm(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open gorm store: %w", err)
	}
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &GormDurable{db: db}, nil
}

func (g *GormDurable) Load(ctx context.Context, id string) (*models.Session, error) {
	var row sessionRow
	err := g.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(row.Document, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (g *GormDurable) Save(ctx context.Context, sess *models.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	row := sessionRow{
		ID:        sess.ID,
		OwnerName: sess.OwnerName,
		Scenario:  string(sess.Scenario),
		Status:    string(sess.Status()),
		TurnIndex: sess.TurnIndex,
		Document:  doc,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	err = g.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (g *GormDurable) Delete(ctx context.Context, id string) error {
	if err := g.db.WithContext(ctx).Delete(&sessionRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (g *GormDurable) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// OpenGorm opens a sqlite (default) or postgres database.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = "sqlite"
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		if driver == "sqlite" {
			dsn = "questforge.db"
		} else {
			return nil, fmt.Errorf("dsn is required for driver %q", driver)
		}
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	switch driver {
	case "sqlite":
		if err := ensureSQLiteDirectory(dsn); err != nil {
			return nil, err
		}
		return gorm.Open(sqliteDriver.Open(dsn), cfg)
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

func ensureSQLiteDirectory(dsn string) error {
	path, ok := sqliteFilePath(dsn)
	if !ok {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite db dir: %w", err)
	}
	return nil
}

func sqliteFilePath(dsn string) (string, bool) {
	lower := strings.ToLower(dsn)
	if lower == ":memory:" || strings.HasPrefix(lower, "file::memory:") {
		return "", false
	}
	if !strings.HasPrefix(lower, "file:") {
		return stripQuery(dsn), true
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return stripQuery(strings.TrimPrefix(dsn, "file:")), true
	}
	if strings.EqualFold(parsed.Query().Get("mode"), "memory") {
		return "", false
	}
	if parsed.Path != "" {
		return parsed.Path, true
	}
	if parsed.Opaque != "" {
		return stripQuery(parsed.Opaque), true
	}
	return "", false
}

func stripQuery(v string) string {
	if i := strings.Index(v, "?"); i >= 0 {
		return v[:i]
	}
	return v
}
