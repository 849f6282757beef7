// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
//
// Конфиг загружается один раз при старте процесса и дальше не изменяется.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string       `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string       `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string       `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	RabbitMQ                `yaml:"rabbitmq"`
	Terms                   []TermConfig `yaml:"terms"`
	FallbackTerm            string       `yaml:"fallback_term"`
	RateLimit               `yaml:"rate_limit"`
	Expiry                  `yaml:"expiry"`
	Conversation            `yaml:"conversation"`
	Reminder                `yaml:"reminder"`
	ProfileSync             `yaml:"profile_sync"`
	SchoolAPI               `yaml:"school_api"`
	WhatsApp                `yaml:"whatsapp"`
	Assistant               `yaml:"assistant"`
	Artifact                `yaml:"artifact"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP  string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP  time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	APIRateLimit float64       `yaml:"api_rate_limit" env-default:"5"`
	APIRateBurst int           `yaml:"api_rate_burst" env-default:"10"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// TermConfig строка таблицы четвертей, даты в формате 2006-01-02.
type TermConfig struct {
	Code  string `yaml:"code"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// RateLimit пороги недельного лимита запросов пропуска.
type RateLimit struct {
	DegradedFrom int `yaml:"degraded_from" env-default:"3"`
	BlockedFrom  int `yaml:"blocked_from" env-default:"5"`
}

// Expiry пороги процента оплаты и смещения срока действия.
type Expiry struct {
	FullThreshold       float64 `yaml:"full_threshold" env-default:"100"`
	PartialThreshold    float64 `yaml:"partial_threshold" env-default:"70"`
	MinimumThreshold    float64 `yaml:"minimum_threshold" env-default:"50"`
	PartialOffsetDays   int     `yaml:"partial_offset_days" env-default:"30"`
	NextMonthOffsetDays int     `yaml:"next_month_offset_days" env-default:"32"`
	FloorDays           int     `yaml:"floor_days" env-default:"1"`
}

// Conversation настройки диалога.
type Conversation struct {
	SupportContact         string        `yaml:"support_contact" env-default:"admin@shiningsmilescollege.ac.zw"`
	UnregisteredDailyLimit int           `yaml:"unregistered_daily_limit" env-default:"5"`
	SubjectIDPattern       string        `yaml:"subject_id_pattern" env-default:"^SSC\\d+$"`
	DefaultCountryCode     string        `yaml:"default_country_code" env-default:"263"`
	IssueLockTTL           time.Duration `yaml:"issue_lock_ttl" env-default:"30s"`
	ContactCacheTTL        time.Duration `yaml:"contact_cache_ttl" env-default:"1h"`
}

// Reminder настройки рассылки напоминаний.
type Reminder struct {
	Interval             time.Duration `yaml:"interval" env-default:"24h"`
	BatchSize            int           `yaml:"batch_size" env-default:"20"`
	BatchPause           time.Duration `yaml:"batch_pause" env-default:"2s"`
	RetryMaxAttempts     int           `yaml:"retry_max_attempts" env-default:"3"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval" env-default:"60s"`
}

// ProfileSync настройки пакетной синхронизации профилей.
type ProfileSync struct {
	SyncInterval time.Duration `yaml:"interval" env-default:"168h"`
	PageSize     int           `yaml:"page_size" env-default:"60"`
	PagePause    time.Duration `yaml:"page_pause" env-default:"1s"`
	Freshness    time.Duration `yaml:"freshness" env-default:"24h"`
}

// SchoolAPI подключение к школьной системе (профили, начисления, платежи).
type SchoolAPI struct {
	SchoolBaseURL string        `yaml:"base_url"`
	SchoolAPIKey  string        `yaml:"api_key" env:"SCHOOL_API_KEY"`
	SchoolTimeout time.Duration `yaml:"timeout" env-default:"15s"`
}

// WhatsApp подключение к WhatsApp Cloud API.
type WhatsApp struct {
	WhatsAppBaseURL string        `yaml:"base_url" env-default:"https://graph.facebook.com/v19.0"`
	PhoneNumberID   string        `yaml:"phone_number_id" env:"WHATSAPP_PHONE_NUMBER_ID"`
	AccessToken     string        `yaml:"access_token" env:"WHATSAPP_ACCESS_TOKEN"`
	VerifyToken     string        `yaml:"verify_token" env:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppTimeout time.Duration `yaml:"timeout" env-default:"15s"`
}

// Assistant подключение к ИИ-ассистенту для незарегистрированных номеров.
type Assistant struct {
	AssistantBaseURL string        `yaml:"base_url"`
	AssistantAPIKey  string        `yaml:"api_key" env:"ASSISTANT_API_KEY"`
	Model            string        `yaml:"model"`
	KnowledgeFile    string        `yaml:"knowledge_file"`
	AssistantTimeout time.Duration `yaml:"timeout" env-default:"30s"`
}

// Artifact настройки документов пропусков и подписанных ссылок на них.
type Artifact struct {
	SigningKey    string        `yaml:"signing_key" env:"ARTIFACT_SIGNING_KEY"`
	URLTTL        time.Duration `yaml:"url_ttl" env-default:"1h"`
	PublicBaseURL string        `yaml:"public_base_url"`
}

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if _, err := cfg.TermTable(); err != nil {
		log.Fatalf("invalid term table: %s", err)
	}
	return &cfg
}

// TermTable преобразует таблицу четвертей из конфига.
func (c *Config) TermTable() ([]models.Term, error) {
	terms := make([]models.Term, 0, len(c.Terms))
	for _, t := range c.Terms {
		start, err := datetime.ParseDate(t.Start)
		if err != nil {
			return nil, fmt.Errorf("term %s start: %w", t.Code, err)
		}
		end, err := datetime.ParseDate(t.End)
		if err != nil {
			return nil, fmt.Errorf("term %s end: %w", t.Code, err)
		}
		terms = append(terms, models.Term{Code: t.Code, Start: start, End: end})
	}
	return terms, nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"Redis: %s db=%d\n"+
			"HTTPServer: %s timeout=%s\n"+
			"RabbitMQ: retries=%d delay=%s\n"+
			"Terms: %d fallback=%q\n"+
			"RateLimit: degraded_from=%d blocked_from=%d\n"+
			"Expiry: %.0f/%.0f/%.0f offsets=%d/%d/%d days\n"+
			"Conversation: daily_limit=%d support=%s\n"+
			"Reminder: every %s batch=%d pause=%s\n",
		c.Env,
		c.AddressRedis, c.RedisConnection.DB,
		c.AddressHTTP, c.TimeoutHTTP,
		c.RabbitMQMaxRetries, c.RabbitMQRetryDelay,
		len(c.Terms), c.FallbackTerm,
		c.DegradedFrom, c.BlockedFrom,
		c.FullThreshold, c.PartialThreshold, c.MinimumThreshold,
		c.PartialOffsetDays, c.NextMonthOffsetDays, c.FloorDays,
		c.UnregisteredDailyLimit, c.SupportContact,
		c.Reminder.Interval, c.BatchSize, c.BatchPause,
	)
}
