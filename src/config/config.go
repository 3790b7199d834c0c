package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/utils"
)

type AppConfig struct {
	Port               string
	LogLevel           string
	DatabasePath       string
	MaxUploadSizeBytes int64
	AllowedOrigins     []string

	DefaultSourcePath string
	Encodings         []string
	Delimiter         rune
	CurrencyTokens    []string
	HSColumnNames     []string
	AliasTablePath    string
	Aliases           models.AliasTable

	MonthLocale string
	OtherLabel  string

	TopNDefault         int
	TopNMin             int
	TopNMax             int
	LimitTopKCategories bool
	TopKCategories      int

	DashboardCacheTTL time.Duration
}

// DefaultEncodings is the ordered list of candidate source encodings.
var DefaultEncodings = []string{"utf-8", "latin-1", "iso-8859-1", "windows-1252"}

// DefaultHSColumnNames are the recognized tariff/HS-code header spellings.
var DefaultHSColumnNames = []string{
	"Kodi HS", "Kodi_HS", "KodiHS", "Kodi Tarifor", "Kodi tarifor", "Kod HS",
	"HS Code", "HS_Code", "HSCode", "HS", "HS6", "Tariff Code", "Tariff", "Kodi",
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")
	Cfg = FromEnv()
	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DefaultSource=%s, Encodings=%v, Locale=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DefaultSourcePath, Cfg.Encodings, Cfg.MonthLocale)
}

// FromEnv resolves the configuration from the current process environment.
func FromEnv() *AppConfig {
	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil || maxUploadSizeBytes <= 0 {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	cfg := &AppConfig{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabasePath:       getEnv("DATABASE_PATH", "./customsdash.db"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		AllowedOrigins:     getEnvAsList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		DefaultSourcePath: getEnv("DEFAULT_SOURCE_PATH", "te_dhena_doganore_simuluara.csv"),
		Encodings:         getEnvAsList("CSV_ENCODINGS", DefaultEncodings),
		Delimiter:         getEnvAsRune("CSV_DELIMITER", ','),
		CurrencyTokens:    getEnvAsList("CURRENCY_TOKENS", utils.DefaultCurrencyTokens),
		HSColumnNames:     getEnvAsList("HS_COLUMN_NAMES", DefaultHSColumnNames),
		AliasTablePath:    getEnv("ALIAS_TABLE_PATH", ""),

		MonthLocale: getEnv("MONTH_LOCALE", utils.DefaultLocale),
		OtherLabel:  getEnv("OTHER_LABEL", "Other"),

		TopNDefault:         getEnvAsInt("TOP_N_DEFAULT", 10),
		TopNMin:             getEnvAsInt("TOP_N_MIN", 3),
		TopNMax:             getEnvAsInt("TOP_N_MAX", 25),
		LimitTopKCategories: getEnvAsBool("LIMIT_TOP_K_CATEGORIES", false),
		TopKCategories:      getEnvAsInt("TOP_K_CATEGORIES", 10),

		DashboardCacheTTL: getEnvAsDuration("DASHBOARD_CACHE_TTL", 15*time.Minute),
	}

	if _, ok := utils.LookupLocale(cfg.MonthLocale); !ok {
		log.Printf("WARNING: Unknown MONTH_LOCALE '%s'. Using '%s'.", cfg.MonthLocale, utils.DefaultLocale)
		cfg.MonthLocale = utils.DefaultLocale
	}
	if cfg.TopNMin < 1 {
		cfg.TopNMin = 1
	}
	if cfg.TopNMax < cfg.TopNMin {
		log.Printf("WARNING: TOP_N_MAX (%d) below TOP_N_MIN (%d). Using TOP_N_MIN.", cfg.TopNMax, cfg.TopNMin)
		cfg.TopNMax = cfg.TopNMin
	}
	cfg.TopNDefault = cfg.ClampTopN(cfg.TopNDefault)
	if cfg.TopKCategories < 1 {
		cfg.TopKCategories = 1
	}

	aliases, err := LoadAliasTable(cfg.AliasTablePath)
	if err != nil {
		log.Printf("WARNING: Could not load ALIAS_TABLE_PATH '%s'. Using built-in aliases. Error: %v", cfg.AliasTablePath, err)
		aliases = DefaultAliasTable()
	}
	cfg.Aliases = aliases
	return cfg
}

// ClampTopN bounds a user-supplied top-N cutoff to [TopNMin, TopNMax]. Zero
// selects the default.
func (c *AppConfig) ClampTopN(n int) int {
	if n == 0 {
		n = c.TopNDefault
	}
	if n < c.TopNMin {
		return c.TopNMin
	}
	if n > c.TopNMax {
		return c.TopNMax
	}
	return n
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(strings.TrimSpace(valueStr)); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(strings.TrimSpace(valueStr)); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList splits a comma-separated value; empty items are dropped.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if strings.TrimSpace(valueStr) == "" {
		return append([]string(nil), fallback...)
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func getEnvAsRune(key string, fallback rune) rune {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "":
		return fallback
	case `\t`, "tab":
		return '\t'
	}
	r := []rune(valueStr)
	if len(r) != 1 {
		log.Printf("Invalid delimiter for %s ('%s'), using default: %q", key, valueStr, fallback)
		return fallback
	}
	return r[0]
}
