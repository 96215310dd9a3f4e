package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load 加载配置
//  1. 加载 .env.{env}（dev/test，敏感信息）
//  2. 加载 {env}.yaml（默认值之上覆盖）
//  3. 环境变量覆盖
//  4. Validate
func Load() (*Config, error) {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadDotEnv(env)

	yamlCfg, err := loadYAMLConfig(env)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(&yamlCfg.YAMLConfig)

	yamlCfg.Database.Password = os.Getenv("DB_PASSWORD")
	yamlCfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	yamlCfg.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	yamlCfg.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")
	yamlCfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if yamlCfg.Auth.JWTSecret == "" && env != EnvProduction {
		yamlCfg.Auth.JWTSecret = DevJWTSecret
	}

	databaseURL := os.Getenv("DATABASE_URL")
	driver := detectDatabaseDriver(yamlCfg.Database.Driver, databaseURL)
	if databaseURL == "" {
		yamlCfg.Database.Driver = driver
		databaseURL = buildDatabaseURL(yamlCfg.Database, yamlCfg.Database.Password)
	}

	cfg := &Config{
		Env:            env,
		DatabaseDriver: driver,
		DatabaseURL:    databaseURL,
		RedisURL:       buildRedisURL(yamlCfg.Redis),
		APIPort:        yamlCfg.Server.Port,
		Server:         yamlCfg.Server,
		Auth:           yamlCfg.Auth,
		MinIO:          yamlCfg.MinIO,
		Log:            yamlCfg.Log,
		ConfigFilePath: yamlCfg.loadedFrom,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultYAMLConfig 代码硬编码默认值
func defaultYAMLConfig() YAMLConfig {
	return YAMLConfig{
		Server: ServerConfig{
			Port:            "3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		// Driver 留空：由 detectDatabaseDriver 按 DATABASE_URL 判断，最后回落 sqlite
		Database: DatabaseConfig{
			Path:    "data/tugas.db",
			Host:    "localhost",
			Port:    5432,
			User:    "tugas",
			Name:    "manajemen_tugas",
			SSLMode: "disable",
		},
		MinIO: MinIOConfig{Bucket: "manajemen-tugas"},
		Auth: AuthConfig{
			MaxLoginAttempts: 5,
			LockoutWindow:    15 * time.Minute,
			GateMode:         GateModePresence,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → {env}.yaml；文件不存在时只用默认值
func loadYAMLConfig(env Environment) (*yamlConfigInternal, error) {
	cfg := &yamlConfigInternal{YAMLConfig: defaultYAMLConfig()}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configDirs(env) {
		path := filepath.Join(base, filename)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cfg.loadedFrom = path
		break
	}
	return cfg, nil
}

// applyEnvOverrides 非敏感配置的环境变量覆盖
func applyEnvOverrides(cfg *YAMLConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("AUTH_GATE_MODE"); v != "" {
		cfg.Auth.GateMode = v
	}
	if v := os.Getenv("AUTH_MAX_LOGIN_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Auth.MaxLoginAttempts = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// buildDatabaseURL 根据驱动类型构建数据库连接字符串
func buildDatabaseURL(db DatabaseConfig, password string) string {
	switch strings.ToLower(db.Driver) {
	case "sqlite":
		dbPath := db.Path
		if dbPath == "" {
			dbPath = "data/tugas.db"
		}
		return fmt.Sprintf("file:%s?cache=shared&mode=rwc", dbPath)
	default: // postgres
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			db.User, password, db.Host, db.Port, db.Name, db.SSLMode)
	}
}

// detectDatabaseDriver 检测数据库驱动类型
// 优先级：YAML driver 字段 > DATABASE_URL 前缀自动检测 > 默认 sqlite
func detectDatabaseDriver(yamlDriver, databaseURL string) string {
	switch strings.ToLower(yamlDriver) {
	case "sqlite":
		return "sqlite"
	case "postgres", "postgresql":
		return "postgres"
	}
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// buildRedisURL 构建 Redis 连接字符串
// URL 字段优先；未配置 host 时返回空串（不启用 Redis）
func buildRedisURL(redis RedisConfig) string {
	if redis.URL != "" {
		return redis.URL
	}
	if redis.Host == "" {
		return ""
	}
	port := redis.Port
	if port == 0 {
		port = 6379
	}
	if redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", redis.Password, redis.Host, port, redis.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", redis.Host, port, redis.DB)
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate 校验最终配置
func (c *Config) Validate() error {
	var errs []error
	if c.Env == EnvProduction && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == DevJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Auth.GateMode != GateModePresence && c.Auth.GateMode != GateModeVerify {
		errs = append(errs, fmt.Errorf("auth.gate_mode must be %q or %q, got %q",
			GateModePresence, GateModeVerify, c.Auth.GateMode))
	}
	if c.Auth.MaxLoginAttempts < 0 {
		errs = append(errs, errors.New("auth.max_login_attempts must not be negative"))
	}
	if c.Auth.MaxLoginAttempts > 0 && c.Auth.LockoutWindow <= 0 {
		errs = append(errs, errors.New("auth.lockout_window must be positive"))
	}
	if c.APIPort == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.MinIO.Enabled() && (c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "") {
		errs = append(errs, errors.New("MINIO_ROOT_USER and MINIO_ROOT_PASSWORD are required when minio.endpoint is set"))
	}
	return errors.Join(errs...)
}

// IsProduction 是否为生产环境
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// CookieSecure 会话 cookie 是否带 Secure（仅生产环境）
func (c *Config) CookieSecure() bool {
	return c.IsProduction()
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	redis := c.RedisURL
	if redis == "" {
		redis = "disabled"
	}
	return fmt.Sprintf("Config{Env: %s, DB: %s %s, Redis: %s, Gate: %s}",
		c.Env, c.DatabaseDriver, maskPassword(c.DatabaseURL), maskPassword(redis), c.Auth.GateMode)
}

var passwordRe = regexp.MustCompile(`(://[^:/@]*:)([^@]+)(@)`)

// maskPassword 隐藏密码
func maskPassword(url string) string {
	return passwordRe.ReplaceAllString(url, "${1}***${3}")
}
