package config

import (
	"os"
	"strconv"
)

// Config futures-signal（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr        string
		CORSOrigins string // 逗号分隔的允许来源，"*" 表示全部
	}
	Database DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
		File   string // 非空时写入滚动日志文件
	}
	JWT struct {
		Secret      string
		ExpireHours int
	}
	Tushare TushareConfig
	Upload  struct {
		Dir      string
		MaxBytes int64
	}
	Jobs struct {
		PriceUpdateMinutes int  // 现价刷新间隔（分钟）
		ExpirySweepEnabled bool // 合约到期汰换
	}
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// TushareConfig Tushare Pro 行情数据源配置
type TushareConfig struct {
	APIURL string
	Token  string // 为空时 K 线/价格接口返回 503
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.CORSOrigins = getEnv("CORS_ORIGINS", "*")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "futures_signal")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.File = getEnv("LOG_FILE", "")

	// JWT：默认密钥仅供本地开发，生产必须通过环境变量覆盖
	cfg.JWT.Secret = getEnv("JWT_SECRET", "dev-only-secret-change-me")
	cfg.JWT.ExpireHours = parseInt(getEnv("JWT_EXPIRE_HOURS", "24"), 24)

	cfg.Tushare.APIURL = getEnv("TUSHARE_API_URL", "http://api.tushare.pro")
	cfg.Tushare.Token = getEnv("TUSHARE_TOKEN", "")

	cfg.Upload.Dir = getEnv("UPLOAD_DIR", "uploads")
	cfg.Upload.MaxBytes = int64(parseInt(getEnv("UPLOAD_MAX_BYTES", "10485760"), 10<<20))

	cfg.Jobs.PriceUpdateMinutes = parseInt(getEnv("PRICE_UPDATE_INTERVAL_MINUTES", "5"), 5)
	cfg.Jobs.ExpirySweepEnabled = getEnv("EXPIRY_SWEEP_ENABLED", "true") == "true"

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
