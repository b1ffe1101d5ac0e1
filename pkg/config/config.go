package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	App        AppConfig
	Database   DatabaseConfig
	TenantDB   TenantDBConfig
	JWT        JWTConfig `mapstructure:"jwt"`
	Log        LogConfig
	Redis      RedisConfig
	Secret     SecretConfig
	SuperAdmin SuperAdminConfig
	Provision  ProvisionConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

// AppConfig 应用级信息
type AppConfig struct {
	Env    string // development / test / production
	Domain string // 学校访问地址的根域名，如 myapp.com
}

// DatabaseConfig 控制面数据库（admins / schools）
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TenantDBConfig 租户schema所在的共享数据库
type TenantDBConfig struct {
	DBName      string
	SSLMode     string
	DefaultPort int
}

type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`     // JWT密钥
	TokenDuration string `mapstructure:"token_duration"` // 令牌有效期，如 "24h"
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int    // MB
	MaxBackups int    // 保留的备份文件数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩
	Format     string // json 或 text
}

type RedisConfig struct {
	Enabled  bool   // 关闭时登出只在客户端生效
	Host     string // Redis主机地址
	Port     int    // Redis端口
	Password string // Redis密码
	DB       int    // Redis数据库编号
	Prefix   string // 键前缀
}

type SecretConfig struct {
	EncryptionKey string // 租户数据库密码加密密钥（32字节用于AES-256）
}

// SuperAdminConfig 启动时创建的超级管理员
type SuperAdminConfig struct {
	Email    string
	Password string
	Name     string
}

type ProvisionConfig struct {
	Timeout        time.Duration // 单次开通超时，0 表示不限制
	ReconcileCron  string        // 补偿任务cron表达式，为空则不启动
	MaxAttempts    int           // 自动补偿的最大尝试次数
	ReconcileBatch int           // 每轮补偿处理的学校数量
}

type CORSConfig struct {
	AllowOrigins     []string // 允许的源
	AllowMethods     []string // 允许的HTTP方法
	AllowHeaders     []string // 允许的请求头
	ExposeHeaders    []string // 暴露的响应头
	AllowCredentials bool     // 是否允许携带凭证
	MaxAge           int      // 预检请求缓存时间（小时）
}

// 全局配置实例和同步锁
var (
	globalConfig *Config
	once         sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		var err error
		globalConfig, err = LoadConfig()
		if err != nil {
			panic("Failed to load config: " + err.Error())
		}
	})
	return globalConfig
}

// 获取环境变量，如果不存在则使用默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 获取环境变量转换为int
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 获取环境变量转换为bool
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// 获取环境变量转换为时长，如 "30s"、"2m"
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// 获取环境变量转换为字符串数组（逗号分隔）
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	// .env 不存在时直接使用进程环境变量
	_ = godotenv.Load()

	dbName := getEnv("DB_NAME", "schoolhub")
	dbSSLMode := getEnv("DB_SSLMODE", "disable")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "3000"),
			Mode: getEnv("SERVER_MODE", "debug"),
		},
		App: AppConfig{
			Env:    getEnv("APP_ENV", "development"),
			Domain: getEnv("APP_DOMAIN", "myapp.com"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   dbName,
			SSLMode:  dbSSLMode,
		},
		TenantDB: TenantDBConfig{
			DBName:      getEnv("TENANT_DB_NAME", dbName),
			SSLMode:     getEnv("TENANT_DB_SSLMODE", "require"),
			DefaultPort: getEnvAsInt("TENANT_DB_DEFAULT_PORT", 5432),
		},
		JWT: JWTConfig{
			SecretKey:     getEnv("JWT_SECRET_KEY", "default-secret-change-me"),
			TokenDuration: getEnv("JWT_TOKEN_DURATION", "24h"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "schoolhub"),
		},
		Secret: SecretConfig{
			EncryptionKey: getEnv("SECRET_ENCRYPTION_KEY", "schoolhub-tenant-secret-key-0032"),
		},
		SuperAdmin: SuperAdminConfig{
			Email:    getEnv("SUPER_ADMIN_EMAIL", "admin@myapp.com"),
			Password: getEnv("SUPER_ADMIN_PASSWORD", "Admin@123456"),
			Name:     getEnv("SUPER_ADMIN_NAME", "Super Admin"),
		},
		Provision: ProvisionConfig{
			Timeout:        getEnvAsDuration("PROVISION_TIMEOUT", 60*time.Second),
			ReconcileCron:  getEnv("PROVISION_RECONCILE_CRON", ""),
			MaxAttempts:    getEnvAsInt("PROVISION_MAX_ATTEMPTS", 5),
			ReconcileBatch: getEnvAsInt("PROVISION_RECONCILE_BATCH", 20),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsStringArray("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsStringArray("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			AllowHeaders:     getEnvAsStringArray("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"}),
			ExposeHeaders:    getEnvAsStringArray("CORS_EXPOSE_HEADERS", []string{"Content-Length", "Content-Type", "Content-Disposition"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 12),
		},
	}

	return config, nil
}

// Duration 解析JWT有效期，格式错误时回退到24小时
func (c *JWTConfig) Duration() time.Duration {
	d, err := time.ParseDuration(c.TokenDuration)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}
