package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Values come from the environment (optionally a .env file) with sane defaults.
type Config struct {
	ServerAddr string
	FFmpegPath string // ffprobe is derived from this path
	JWTSecret  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO 对象存储配置（曲库音频字节存放处）
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// 播放引擎配置
	CrossfadeWindowSeconds float64 // Flow State 交叉淡出窗口
	PlayCountThresholdSecs float64 // 超过该秒数才计一次播放
	DeckTickIntervalMillis int     // 引擎时钟步进间隔
	AutoSkipOnLoadError    bool    // 加载失败时是否自动切到下一首
	PreviousRestartSeconds float64 // 超过该进度时"上一首"只回到开头

	// 自动导入目录（为空则关闭目录监听）及归属用户
	MusicWatchDir    string
	MusicWatchUserID int64

	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() 不会覆盖已有的环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),
		JWTSecret:  getEnv("JWT_SECRET", "sonata-dev-secret"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "sonata"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:    getEnv("MINIO_BUCKET", "sonata-audio"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		CrossfadeWindowSeconds: getEnvFloat("PLAYER_CROSSFADE_SECONDS", 6),
		PlayCountThresholdSecs: getEnvFloat("PLAYER_COUNT_THRESHOLD_SECONDS", 5),
		DeckTickIntervalMillis: getEnvInt("PLAYER_TICK_INTERVAL_MS", 250),
		AutoSkipOnLoadError:    getEnvBool("PLAYER_AUTO_SKIP_ON_LOAD_ERROR", false),
		PreviousRestartSeconds: getEnvFloat("PLAYER_PREVIOUS_RESTART_SECONDS", 3),

		MusicWatchDir:    getEnv("MUSIC_WATCH_DIR", ""),
		MusicWatchUserID: int64(getEnvInt("MUSIC_WATCH_USER_ID", 1)),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}
