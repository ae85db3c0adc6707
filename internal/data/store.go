package data

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"mlops-service/internal/domain"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS ai_metrics (
	id SERIAL PRIMARY KEY,
	business_id VARCHAR(100) NOT NULL,
	conversation_id VARCHAR(100),
	session_id VARCHAR(100),
	response_time_ms INTEGER,
	success_rate FLOAT,
	tokens_used INTEGER,
	api_cost_usd FLOAT,
	model_name VARCHAR(50),
	intent_detected VARCHAR(100),
	appointment_requested BOOLEAN,
	appointment_booked BOOLEAN,
	human_handoff_requested BOOLEAN,
	user_message_length INTEGER,
	ai_response_length INTEGER,
	response_type VARCHAR(50),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

const insertSQL = `
INSERT INTO ai_metrics (
	business_id, conversation_id, session_id,
	response_time_ms, success_rate,
	tokens_used, api_cost_usd, model_name,
	intent_detected, appointment_requested, appointment_booked, human_handoff_requested,
	user_message_length, ai_response_length, response_type
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
)`

// Config 存储网关配置
type Config struct {
	URL     string
	Enabled bool
}

// Store PostgreSQL 存储网关
//
// 每次写入都新开一条连接、用完即关，不做连接池。持久化被关闭
// （未配置连接串或开关关闭）时所有写入直接按成功返回，这是有意的
// 降级模式：没有数据库时摄入链路照常工作。
type Store struct {
	url     string
	enabled bool
	logger  *zap.Logger
}

// NewStore 创建存储网关
func NewStore(cfg Config, logger *zap.Logger) *Store {
	return &Store{
		url:     cfg.URL,
		enabled: cfg.Enabled,
		logger:  logger,
	}
}

// Configured 是否配置了数据库连接串
func (s *Store) Configured() bool {
	return s.url != ""
}

// Enabled 持久化开关是否打开
func (s *Store) Enabled() bool {
	return s.enabled
}

// active 写入路径是否真正触达数据库
func (s *Store) active() bool {
	return s.url != "" && s.enabled
}

// open 建立一条新连接并验证可用
func (s *Store) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", s.url)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema 幂等建表，表已存在时为空操作
func (s *Store) EnsureSchema(ctx context.Context) bool {
	if !s.active() {
		s.logger.Info("Database operations disabled, skipping table creation")
		return true
	}

	db, err := s.open(ctx)
	if err != nil {
		s.logger.Error("Could not connect to database to create table", zap.Error(err))
		return false
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		s.logger.Error("Error creating metrics table", zap.Error(err))
		return false
	}

	s.logger.Info("Metrics table created successfully")
	return true
}

// Probe 尽力而为的连通性探测，结果只用于日志，不影响任何运行时行为
func (s *Store) Probe(ctx context.Context) bool {
	if !s.active() {
		s.logger.Info("Database operations disabled, skipping metrics fetch")
		return false
	}

	db, err := s.open(ctx)
	if err != nil {
		s.logger.Warn("Could not connect to database", zap.Error(err))
		return false
	}
	db.Close()

	s.logger.Info("Successfully connected to database")
	return true
}

// Insert 单条参数化插入，所有失败在此转换为布尔结果，不向上抛
func (s *Store) Insert(ctx context.Context, ev *domain.TrackedEvent) bool {
	if !s.active() {
		s.logger.Info("Database operations disabled, skipping metrics storage")
		return true
	}

	db, err := s.open(ctx)
	if err != nil {
		s.logger.Error("Error connecting to database", zap.Error(err))
		return false
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, insertSQL,
		ev.BusinessID,
		ev.ConversationID,
		ev.SessionID,
		ev.ResponseTimeMs,
		ev.SuccessRate,
		ev.TokensUsed,
		ev.APICostUSD,
		ev.ModelName,
		ev.IntentDetected,
		ev.AppointmentRequested,
		ev.AppointmentBooked,
		ev.HumanHandoffRequested,
		ev.UserMessageLength,
		ev.AIResponseLength,
		ev.ResponseType,
	)
	if err != nil {
		s.logger.Error("Error storing metrics", zap.Error(err))
		return false
	}

	s.logger.Info("Successfully stored metrics", zap.String("business_id", ev.BusinessID))
	return true
}
