package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// JobConfig holds the per-task execution settings of a job.
type JobConfig struct {
	// Robust downgrades recoverable application errors to logged, skipped values.
	Robust     bool `yaml:"robust"`
	MapTasks   int  `yaml:"map_tasks"`
	Nodes      int  `yaml:"nodes"`
	Partitions int  `yaml:"partitions"`
	Combine    bool `yaml:"combine"`
}

// TargetDef declares one aggregation target and the variant that reduces it.
type TargetDef struct {
	Name    string            `yaml:"name"`
	Variant string            `yaml:"variant"`
	Params  map[string]string `yaml:"params"`
}

// ShuffleConfig holds the NATS transport settings.
type ShuffleConfig struct {
	NATSURL  string `yaml:"nats_url"`
	Subject  string `yaml:"subject"`
	MapTasks int    `yaml:"map_tasks"`
}

// ClickHouseConfig holds the connection details for the ClickHouse output.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// OutputConfig selects where final output lines go.
type OutputConfig struct {
	Type       string           `yaml:"type"`
	RootPath   string           `yaml:"root_path"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// APIConfig holds the listen addresses of the status and health servers.
type APIConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	GRPCListenAddr string `yaml:"grpc_listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Job     JobConfig     `yaml:"job"`
	Targets []TargetDef   `yaml:"targets"`
	Shuffle ShuffleConfig `yaml:"shuffle"`
	Output  OutputConfig  `yaml:"output"`
	API     APIConfig     `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document, filling in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config YAML")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Job.MapTasks <= 0 {
		c.Job.MapTasks = 1
	}
	if c.Job.Nodes <= 0 {
		c.Job.Nodes = 1
	}
	if c.Job.Partitions <= 0 {
		c.Job.Partitions = 1
	}
	if c.Shuffle.Subject == "" {
		c.Shuffle.Subject = "saw.shuffle"
	}
	if c.Shuffle.MapTasks <= 0 {
		c.Shuffle.MapTasks = 1
	}
	if c.Output.Type == "" {
		c.Output.Type = "text"
	}
	if c.Output.RootPath == "" {
		c.Output.RootPath = "./out"
	}
}

// Validate checks the invariants the runtime relies on.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return errors.Newf("target #%d has no name", i)
		}
		if t.Variant == "" {
			return errors.Newf("target '%s' has no variant", t.Name)
		}
		if seen[t.Name] {
			return errors.Newf("target '%s' declared twice", t.Name)
		}
		seen[t.Name] = true
	}
	switch c.Output.Type {
	case "text", "clickhouse":
	default:
		return errors.Newf("unknown output type: '%s'", c.Output.Type)
	}
	return nil
}

// Param returns a target parameter or def when it is unset.
func (t TargetDef) Param(name, def string) string {
	if v, ok := t.Params[name]; ok && v != "" {
		return v
	}
	return def
}
