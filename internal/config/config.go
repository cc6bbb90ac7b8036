package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

type Neo4jConfig struct {
	URI                   string `toml:"uri"`
	User                  string `toml:"user"`
	Password              string `toml:"password"`
	Database              string `toml:"database"`
	MaxPoolSize           int    `toml:"max_pool_size"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
	QueryTimeoutSeconds   int    `toml:"query_timeout_seconds"`
	// ReadRetries is how many times a read is retried after a transient
	// failure. Unset means 2; 0 disables retries.
	ReadRetries           *int   `toml:"read_retries"`
}

type OntologyConfig struct {
	Path string `toml:"path"`
}

// AliasConfig adds a known column name for one endpoint of a relationship type.
type AliasConfig struct {
	Relationship string `toml:"relationship"`
	Endpoint     string `toml:"endpoint"` // "from" or "to"
	Column       string `toml:"column"`
}

type S3Config struct {
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

type IngestConfig struct {
	DataDir    string        `toml:"data_dir"`
	S3         S3Config      `toml:"s3"`
	BatchSize  int           `toml:"batch_size"`
	TypeColumn string        `toml:"type_column"`
	IDColumn   string        `toml:"id_column"`
	Aliases    []AliasConfig `toml:"aliases"`
}

type ConcurrencyConfig struct {
	BulkIngest int `toml:"bulk_ingest"`
}

type TraversalConfig struct {
	DisplayFields map[string]string `toml:"display_fields"`
}

type HeuristicConfig struct {
	Type       string  `toml:"type"`
	Kind       string  `toml:"kind"`
	NameField  string  `toml:"name_field"`
	BlockField string  `toml:"block_field"`
	Confidence float64 `toml:"confidence"`
}

type ResolutionConfig struct {
	Heuristics []HeuristicConfig `toml:"heuristics"`
}

type DocStoreConfig struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	ManifestTable  string `toml:"manifest_table"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type LoggingConfig struct {
	Mode string `toml:"mode"`
}

type Config struct {
	Neo4j       Neo4jConfig       `toml:"neo4j"`
	Ontology    OntologyConfig    `toml:"ontology"`
	Ingest      IngestConfig      `toml:"ingest"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Traversal   TraversalConfig   `toml:"traversal"`
	Resolution  ResolutionConfig  `toml:"resolution"`
	DocStore    DocStoreConfig    `toml:"docstore"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
}

// Default returns a configuration usable against a local Neo4j with the sample ontology.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the TOML file at path, fills unset fields with defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Neo4j.URI == "" {
		c.Neo4j.URI = "bolt://localhost:7687"
	}
	if c.Neo4j.User == "" {
		c.Neo4j.User = "neo4j"
	}
	if c.Neo4j.MaxPoolSize == 0 {
		c.Neo4j.MaxPoolSize = 50
	}
	if c.Neo4j.ConnectTimeoutSeconds == 0 {
		c.Neo4j.ConnectTimeoutSeconds = 10
	}
	if c.Neo4j.QueryTimeoutSeconds == 0 {
		c.Neo4j.QueryTimeoutSeconds = 30
	}
	if c.Neo4j.ReadRetries == nil {
		retries := 2
		c.Neo4j.ReadRetries = &retries
	}
	if c.Ontology.Path == "" {
		c.Ontology.Path = "config/ontology.yaml"
	}
	if c.Ingest.DataDir == "" && c.Ingest.S3.Bucket == "" {
		c.Ingest.DataDir = "data"
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 500
	}
	if c.Ingest.TypeColumn == "" {
		c.Ingest.TypeColumn = "entity_type"
	}
	if c.Ingest.IDColumn == "" {
		c.Ingest.IDColumn = "entity_id"
	}
	if c.Concurrency.BulkIngest == 0 {
		c.Concurrency.BulkIngest = 4
	}
	if c.DocStore.ManifestTable == "" {
		c.DocStore.ManifestTable = "ingestion_manifests"
	}
	if c.DocStore.TimeoutSeconds == 0 {
		c.DocStore.TimeoutSeconds = 30
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Logging.Mode == "" {
		c.Logging.Mode = "development"
	}
}

// ApplyEnv overrides file values with the environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := getenv("NEO4J_DATABASE"); v != "" {
		c.Neo4j.Database = v
	}
	if v := getenv("NEO4J_MAX_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Neo4j.MaxPoolSize = n
		}
	}
	if v := getenv("NEO4J_QUERY_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Neo4j.QueryTimeoutSeconds = n
		}
	}
	if v := getenv("ONTOLOGY_PATH"); v != "" {
		c.Ontology.Path = v
	}
	if v := getenv("DATA_DIR"); v != "" {
		c.Ingest.DataDir = v
	}
	if v := getenv("S3_BUCKET"); v != "" {
		c.Ingest.S3.Bucket = v
	}
	if v := getenv("AWS_REGION"); v != "" {
		c.Ingest.S3.Region = v
	}
	if v := getenv("AWS_ENDPOINT"); v != "" {
		c.Ingest.S3.Endpoint = v
	}
	if v := getenv("AWS_ACCESS_KEY"); v != "" {
		c.Ingest.S3.AccessKey = v
	}
	if v := getenv("AWS_SECRET_KEY"); v != "" {
		c.Ingest.S3.SecretKey = v
	}
	if v := getenv("DOCSTORE_URL"); v != "" {
		c.DocStore.URL = v
	}
	if v := getenv("DOCSTORE_API_KEY"); v != "" {
		c.DocStore.APIKey = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("LOG_MODE"); v != "" {
		c.Logging.Mode = v
	}
}

// Validate checks the fields the engine cannot run without.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri must not be empty")
	}
	if c.Ontology.Path == "" {
		return fmt.Errorf("ontology.path must not be empty")
	}
	if c.Neo4j.ReadRetries != nil && *c.Neo4j.ReadRetries < 0 {
		return fmt.Errorf("neo4j.read_retries must not be negative")
	}
	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be greater than 0")
	}
	if c.Concurrency.BulkIngest < 1 {
		return fmt.Errorf("concurrency.bulk_ingest must be greater than 0")
	}
	for i, a := range c.Ingest.Aliases {
		if a.Endpoint != "from" && a.Endpoint != "to" {
			return fmt.Errorf("ingest.aliases[%d].endpoint must be \"from\" or \"to\", got %q", i, a.Endpoint)
		}
		if a.Relationship == "" || a.Column == "" {
			return fmt.Errorf("ingest.aliases[%d] needs relationship and column", i)
		}
	}
	for i, h := range c.Resolution.Heuristics {
		if h.Type == "" {
			return fmt.Errorf("resolution.heuristics[%d].type must not be empty", i)
		}
		if h.Confidence < 0 || h.Confidence > 1 {
			return fmt.Errorf("resolution.heuristics[%d].confidence must be between 0 and 1", i)
		}
	}
	return nil
}
