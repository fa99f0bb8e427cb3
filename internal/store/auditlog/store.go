// Package auditlog 每轮写入一行：与模型的往来内容和结果标签。不记录数量、成交和盈亏。
package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

// Entry 是单轮记录的领域视图。
type Entry struct {
	TraceID      string    `json:"trace_id"`
	Symbol       string    `json:"symbol"`
	Provider     string    `json:"provider"`
	PromptSource string    `json:"prompt_source"`
	Payload      string    `json:"payload,omitempty"`
	RawResponse  string    `json:"raw_response,omitempty"`
	Decision     string    `json:"decision"`
	Reason       string    `json:"reason"`
	Outcome      string    `json:"outcome"`
	SkipReason   string    `json:"skip_reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type cycleModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	TraceID       string         `gorm:"column:trace_id;uniqueIndex"`
	Symbol        string         `gorm:"column:symbol;index"`
	Provider      string         `gorm:"column:provider"`
	PromptSource  string         `gorm:"column:prompt_source"`
	PayloadJSON   datatypes.JSON `gorm:"column:payload_json;type:TEXT"`
	RawResponse   string         `gorm:"column:raw_response"`
	Decision      string         `gorm:"column:decision"`
	Reason        string         `gorm:"column:reason"`
	Outcome       string         `gorm:"column:outcome;index"`
	SkipReason    string         `gorm:"column:skip_reason"`
	Error         string         `gorm:"column:error"`
	WarningsJSON  datatypes.JSON `gorm:"column:warnings_json;type:TEXT"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (cycleModel) TableName() string { return "decision_cycles" }

type Store struct {
	db *gorm.DB
}

// Open 打开（必要时创建）审计库，使用纯 Go 的 modernc sqlite 驱动。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("auditlog: 数据库路径不能为空")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("auditlog: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&cycleModel{}); err != nil {
		return nil, fmt.Errorf("auditlog: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Append(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("auditlog: store not initialized")
	}
	if e.TraceID == "" {
		return fmt.Errorf("auditlog: trace id required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	warnings, err := json.Marshal(e.Warnings)
	if err != nil {
		return err
	}
	row := cycleModel{
		TraceID:       e.TraceID,
		Symbol:        e.Symbol,
		Provider:      e.Provider,
		PromptSource:  e.PromptSource,
		PayloadJSON:   jsonOrNull(e.Payload),
		RawResponse:   e.RawResponse,
		Decision:      e.Decision,
		Reason:        e.Reason,
		Outcome:       e.Outcome,
		SkipReason:    e.SkipReason,
		Error:         e.Error,
		WarningsJSON:  datatypes.JSON(warnings),
		CreatedAtUnix: e.CreatedAt.UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("auditlog: insert %s: %w", e.TraceID, err)
	}
	return nil
}

// Recent 按时间倒序返回最近 limit 条记录。
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("auditlog: store not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []cycleModel
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("auditlog: query: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toEntry())
	}
	return out, nil
}

// CountByOutcome 汇总各结果标签的条数。
func (s *Store) CountByOutcome(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Outcome string
		N       int64
	}
	err := s.db.WithContext(ctx).Model(&cycleModel{}).
		Select("outcome, COUNT(*) AS n").
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("auditlog: count: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Outcome] = r.N
	}
	return out, nil
}

func (r cycleModel) toEntry() Entry {
	e := Entry{
		TraceID:      r.TraceID,
		Symbol:       r.Symbol,
		Provider:     r.Provider,
		PromptSource: r.PromptSource,
		RawResponse:  r.RawResponse,
		Decision:     r.Decision,
		Reason:       r.Reason,
		Outcome:      r.Outcome,
		SkipReason:   r.SkipReason,
		Error:        r.Error,
		CreatedAt:    time.UnixMilli(r.CreatedAtUnix),
	}
	if len(r.PayloadJSON) > 0 && string(r.PayloadJSON) != "null" {
		e.Payload = string(r.PayloadJSON)
	}
	if len(r.WarningsJSON) > 0 {
		_ = json.Unmarshal(r.WarningsJSON, &e.Warnings)
	}
	return e
}

func jsonOrNull(raw string) datatypes.JSON {
	raw = strings.TrimSpace(raw)
	if raw == "" || !json.Valid([]byte(raw)) {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(raw)
}
