package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"customerSegments/business/segmentation"
	"customerSegments/domain"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Redis        RedisConfig
	LLM          LLMConfig
	Ticketing    TicketingConfig
	Scheduler    SchedulerConfig
	Segmentation SegmentationConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	SecretKey string
	TokenTTL  time.Duration
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	IOTimeout     time.Duration
	SegmentTTL    time.Duration
}

// LLMConfig drives the segment naming collaborator. Naming is disabled when
// LLMAPIKey is empty.
type LLMConfig struct {
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMRatePerMin  int
	LLMMaxTokens   int
	LLMTemperature float64
}

type TicketingConfig struct {
	Provider        string
	ZendeskBaseURL  string
	ZendeskEmail    string
	ZendeskAPIToken string
	GorgiasBaseURL  string
	GorgiasUsername string
	GorgiasAPIKey   string
}

type SchedulerConfig struct {
	DiscoveryCron string
	Tenants       string
}

// TenantIDs splits the comma separated tenant list, dropping blanks.
func (s SchedulerConfig) TenantIDs() []string {
	var out []string
	for _, t := range strings.Split(s.Tenants, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type SegmentationConfig struct {
	MinK                int
	MaxK                int
	MinSilhouette       float64
	MinPopulation       int
	WinsorPercentile    float64
	Scaler              string
	MaxDominantShare    float64
	MinSegmentShare     float64
	SelectionPolicy     string
	ClusterMode         string
	Fuzziness           float64
	FuzzyMaxIter        int
	KMeansRestarts      int
	Seed                int64
	Subdivide           bool
	MaxDepth            int
	MinSubsegmentSize   int
	SubdivideShare      float64
	SubdivideMinMembers int
	MaxVariance         float64
	NamingTimeout       time.Duration
	Workers             int
	ObservationDays     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Customer Segments"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "customer_segments"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			PoolSize:      getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns:  getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:   getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			IOTimeout:     getEnvDuration("REDIS_IO_TIMEOUT", 3*time.Second),
			SegmentTTL:    getEnvDuration("REDIS_SEGMENT_TTL", 24*time.Hour),
		},
		LLM: LLMConfig{
			LLMBaseURL:     getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:      getEnv("LLM_API_KEY", ""),
			LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			LLMRatePerMin:  getEnvInt("LLM_RATE_PER_MIN", 60),
			LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 120),
			LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.2),
		},
		Ticketing: TicketingConfig{
			Provider:        getEnv("TICKETING_PROVIDER", "none"),
			ZendeskBaseURL:  getEnv("ZENDESK_BASE_URL", ""),
			ZendeskEmail:    getEnv("ZENDESK_EMAIL", ""),
			ZendeskAPIToken: getEnv("ZENDESK_API_TOKEN", ""),
			GorgiasBaseURL:  getEnv("GORGIAS_BASE_URL", ""),
			GorgiasUsername: getEnv("GORGIAS_USERNAME", ""),
			GorgiasAPIKey:   getEnv("GORGIAS_API_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			DiscoveryCron: getEnv("SCHEDULER_DISCOVERY_CRON", "0 3 * * *"),
			Tenants:       getEnv("SCHEDULER_TENANTS", ""),
		},
		Segmentation: SegmentationConfig{
			MinK:                getEnvInt("SEG_MIN_K", 2),
			MaxK:                getEnvInt("SEG_MAX_K", 8),
			MinSilhouette:       getEnvFloat("SEG_MIN_SILHOUETTE", 0.25),
			MinPopulation:       getEnvInt("SEG_MIN_POPULATION", 50),
			WinsorPercentile:    getEnvFloat("SEG_WINSOR_PERCENTILE", 99),
			Scaler:              getEnv("SEG_SCALER", string(domain.ScalerRobust)),
			MaxDominantShare:    getEnvFloat("SEG_MAX_DOMINANT_SHARE", 0.5),
			MinSegmentShare:     getEnvFloat("SEG_MIN_SEGMENT_SHARE", 0.03),
			SelectionPolicy:     getEnv("SEG_SELECTION_POLICY", string(segmentation.PolicyBalanced)),
			ClusterMode:         getEnv("SEG_CLUSTER_MODE", string(segmentation.ModeKMeans)),
			Fuzziness:           getEnvFloat("SEG_FUZZINESS", 2.0),
			FuzzyMaxIter:        getEnvInt("SEG_FCM_MAX_ITER", 150),
			KMeansRestarts:      getEnvInt("SEG_KMEANS_RESTARTS", 10),
			Seed:                int64(getEnvInt("SEG_SEED", 42)),
			Subdivide:           getEnvBool("SEG_SUBDIVIDE", true),
			MaxDepth:            getEnvInt("SEG_MAX_DEPTH", 3),
			MinSubsegmentSize:   getEnvInt("SEG_MIN_SUBSEGMENT_SIZE", 30),
			SubdivideShare:      getEnvFloat("SEG_SUBDIVIDE_SHARE", 0.6),
			SubdivideMinMembers: getEnvInt("SEG_SUBDIVIDE_MIN_MEMBERS", 100),
			MaxVariance:         getEnvFloat("SEG_MAX_VARIANCE", 4.0),
			NamingTimeout:       getEnvDuration("SEG_NAMING_TIMEOUT", 3*time.Second),
			Workers:             getEnvInt("SEG_WORKERS", runtime.NumCPU()),
			ObservationDays:     getEnvInt("SEG_OBSERVATION_DAYS", 365),
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	if err := cfg.SegmentationEngine().Validate(); err != nil {
		return nil, fmt.Errorf("invalid segmentation settings: %w", err)
	}

	return cfg, nil
}

// SegmentationEngine converts the env-derived settings into the engine config.
// Values the environment does not expose keep the engine defaults.
func (c *Config) SegmentationEngine() segmentation.Config {
	s := c.Segmentation
	out := segmentation.DefaultConfig()
	out.MinK = s.MinK
	out.MaxK = s.MaxK
	out.MinSilhouette = s.MinSilhouette
	out.MinPopulation = s.MinPopulation
	out.WinsorPercentile = s.WinsorPercentile
	out.Scaler = domain.ScalerType(s.Scaler)
	out.MaxDominantShare = s.MaxDominantShare
	out.MinSegmentShare = s.MinSegmentShare
	out.Policy = segmentation.SelectionPolicy(s.SelectionPolicy)
	out.Mode = segmentation.ClusterMode(s.ClusterMode)
	out.Fuzziness = s.Fuzziness
	out.FuzzyMaxIter = s.FuzzyMaxIter
	out.KMeansRestarts = s.KMeansRestarts
	out.Seed = s.Seed
	out.Subdivide = s.Subdivide
	out.MaxDepth = s.MaxDepth
	out.MinSubsegmentSize = s.MinSubsegmentSize
	out.SubdivideShare = s.SubdivideShare
	out.SubdivideMinMembers = s.SubdivideMinMembers
	out.MaxVariance = s.MaxVariance
	out.NamingTimeout = s.NamingTimeout
	out.Workers = s.Workers
	out.MinObservationDays = s.ObservationDays
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultVal
}
