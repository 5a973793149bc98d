package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"alias-service/internal/alias/model"
)

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	MaxUploadMB  int
	LogFile      string

	DatabaseURL         string
	DBMaxOpenConns      int
	DBConnectAttempts   int
	MigrationFolderPath string

	// магазины, которые читаются в снапшот; TargetStore получает алиасы
	Stores         []string
	TargetStore    string
	Threshold      float64
	Confidence     float64
	ConfidenceMode string
	Strategy       string
	ScoreWorkers   int
	WriteWorkers   int
	WriteRetries   int
	StopOnError    bool

	MeiliURL    string
	MeiliAPIKey string
	MeiliIndex  string
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         getint("PORT", 8082),
		AllowOrigins: getlist("ALLOW_ORIGINS", "*"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		MaxUploadMB:  getint("MAX_UPLOAD_MB", 64),
		LogFile:      getenv("LOG_FILE", "logs/alias-service.log"),

		DatabaseURL:         getenv("DATABASE_URL", ""),
		DBMaxOpenConns:      getint("DB_MAX_OPEN_CONNS", 8),
		DBConnectAttempts:   getint("DB_CONNECT_ATTEMPTS", 5),
		MigrationFolderPath: getenv("DB_MIGRATION_FOLDER_PATH", "db/pg"),

		Stores:         getlist("STORES", "gibbo,loshusans,pricesmart,sampars"),
		TargetStore:    getenv("TARGET_STORE", "gibbo"),
		Threshold:      getfloat("ALIAS_THRESHOLD", 0.7),
		Confidence:     getfloat("ALIAS_CONFIDENCE", 0.85),
		ConfidenceMode: getenv("ALIAS_CONFIDENCE_MODE", model.ConfidenceFixed),
		Strategy:       getenv("CLUSTER_STRATEGY", model.StrategyIndexed),
		ScoreWorkers:   getint("SCORE_WORKERS", runtime.NumCPU()),
		WriteWorkers:   getint("WRITE_WORKERS", 4),
		WriteRetries:   getint("WRITE_RETRIES", 3),
		StopOnError:    getbool("STOP_ON_ERROR", false),

		MeiliURL:    getenv("MEILI_URL", ""),
		MeiliAPIKey: getenv("MEILI_API_KEY", ""),
		MeiliIndex:  getenv("MEILI_INDEX", "product_aliases"),
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// AliasOptions maps the config onto pipeline options.
func (c Config) AliasOptions() model.Options {
	return model.Options{
		Threshold:      c.Threshold,
		TargetStore:    c.TargetStore,
		Confidence:     c.Confidence,
		ConfidenceMode: c.ConfidenceMode,
		Strategy:       c.Strategy,
		Workers:        c.ScoreWorkers,
		WriteWorkers:   c.WriteWorkers,
		WriteRetries:   c.WriteRetries,
		StopOnError:    c.StopOnError,
	}
}

// Validate checks what the batch run cannot work without.
func (c Config) Validate() error {
	if len(c.Stores) == 0 {
		return fmt.Errorf("STORES is empty")
	}
	for _, s := range c.Stores {
		if s == c.TargetStore {
			return nil
		}
	}
	return fmt.Errorf("TARGET_STORE %q is not listed in STORES %v", c.TargetStore, c.Stores)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	i, err := strconv.Atoi(getenv(k, ""))
	if err != nil {
		return def
	}
	return i
}

func getfloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(getenv(k, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func getbool(k string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getlist(k, def string) []string {
	var out []string
	for _, s := range strings.Split(getenv(k, def), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
