package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	// postgres (Produktion) oder sqlite (lokal, Tests)
	DBDriver   string `envconfig:"DB_DRIVER" default:"postgres"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"scholarlens"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"scholarlens.db"`

	HTTPPort       string   `envconfig:"HTTP_PORT" default:"8000"`
	APISecretKey   string   `envconfig:"API_SECRET_KEY"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001"`
	LogLevel       string   `envconfig:"LOG_LEVEL" default:"info"`

	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"100"`

	// Hintergrund-Jobs; leerer Schedule deaktiviert den Job
	CronSchedule      string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`
	ReconcileSchedule string `envconfig:"RECONCILE_SCHEDULE" default:"30 * * * *"`
	GraphSyncSchedule string `envconfig:"GRAPH_SYNC_SCHEDULE"`

	IngestQueries    []string `envconfig:"INGEST_QUERIES"`
	IngestMaxResults int      `envconfig:"INGEST_MAX_RESULTS" default:"50"`
	IngestWorkers    int      `envconfig:"INGEST_WORKERS" default:"5"`

	// Provider-Konfiguration
	EnabledProviders string `envconfig:"ENABLED_PROVIDERS" default:"arxiv,pubmed"`

	PubMedBaseURL string `envconfig:"PUBMED_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	PubMedAPIKey  string `envconfig:"PUBMED_API_KEY"`
	PubMedEmail   string `envconfig:"PUBMED_EMAIL"`
	PubMedTool    string `envconfig:"PUBMED_TOOL" default:"scholarlens"`

	ArxivBaseURL     string `envconfig:"ARXIV_BASE_URL" default:"https://export.arxiv.org/api/query"`
	EuropePMCBaseURL string `envconfig:"EUROPEPMC_BASE_URL" default:"https://www.ebi.ac.uk/europepmc/webservices/rest/search"`

	// Unpaywall-API für freie Volltexte
	UnpaywallBaseURL string `envconfig:"UNPAYWALL_BASE_URL" default:"https://api.unpaywall.org/v2"`
	UnpaywallEmail   string `envconfig:"UNPAYWALL_EMAIL"`

	// Optionales PDF-Archiv (S3-kompatibel)
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`

	// Optionaler Graph-Spiegel
	Neo4jURI            string `envconfig:"NEO4J_URI"`
	Neo4jUser           string `envconfig:"NEO4J_USER" default:"neo4j"`
	Neo4jPassword       string `envconfig:"NEO4J_PASSWORD"`
	Neo4jDatabase       string `envconfig:"NEO4J_DATABASE" default:"neo4j"`
	Neo4jTimeoutSeconds int    `envconfig:"NEO4J_TIMEOUT_SECONDS" default:"10"`
	Neo4jMaxPoolSize    int    `envconfig:"NEO4J_MAX_POOL_SIZE" default:"50"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"512"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"50"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// S3Enabled meldet, ob das PDF-Archiv vollständig konfiguriert ist.
func (c *Config) S3Enabled() bool {
	return c.S3Key != "" && c.S3Secret != "" && c.S3URL != "" && c.S3Bucket != ""
}

// Providers liefert die aktivierten Provider-Namen in Kleinschreibung.
func (c *Config) Providers() []string {
	var names []string
	for _, p := range strings.Split(c.EnabledProviders, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			names = append(names, p)
		}
	}
	return names
}

// Validate prüft Kombinationen, die envconfig nicht abdeckt.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be between 1 and MAX_PAGE_SIZE")
	}
	if c.ChunkSize < 1 || c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}
	if c.IngestWorkers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be positive")
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
