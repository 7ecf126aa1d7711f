package types

import "time"

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Execution ExecutionConfig `yaml:"execution"`
	Scan      ScanConfig      `yaml:"scan"`
	Timing    TimingConfig    `yaml:"timing"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`

	Analysis struct {
		LogFile string `yaml:"logFile" envconfig:"ANALYSIS_LOG_FILE"`
	} `yaml:"analysis"`

	Monitor MonitorConfig `yaml:"monitor"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`
}

type ExecutionConfig struct {
	// Endpoint is a http(s)/ws(s) url or an ipc socket path
	Endpoint    string            `yaml:"endpoint" envconfig:"EXECUTION_ENDPOINT"`
	Headers     map[string]string `yaml:"headers"`
	Ssh         *SshConfig        `yaml:"ssh"`
	Backend     string            `yaml:"backend" envconfig:"EXECUTION_BACKEND"`
	CastPath    string            `yaml:"castPath" envconfig:"EXECUTION_CAST_PATH"`
	CallTimeout time.Duration     `yaml:"callTimeout" envconfig:"EXECUTION_CALL_TIMEOUT"`
}

type SshConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Keyfile  string `yaml:"keyfile"`
	// KnownHosts enables host key verification, any key is accepted when empty
	KnownHosts string `yaml:"knownHosts"`
}

type ScanConfig struct {
	TargetAddress        string        `yaml:"targetAddress" envconfig:"SCAN_TARGET_ADDRESS"`
	GasLimit             uint64        `yaml:"gasLimit" envconfig:"SCAN_GAS_LIMIT"`
	DepthPolicy          string        `yaml:"depthPolicy" envconfig:"SCAN_DEPTH_POLICY"`
	MaxTraceDepth        int           `yaml:"maxTraceDepth" envconfig:"SCAN_MAX_TRACE_DEPTH"`
	ProbeTimeout         time.Duration `yaml:"probeTimeout" envconfig:"SCAN_PROBE_TIMEOUT"`
	ProbeRateLimit       float64       `yaml:"probeRateLimit" envconfig:"SCAN_PROBE_RATE_LIMIT"`
	ProbeBurst           int           `yaml:"probeBurst" envconfig:"SCAN_PROBE_BURST"`
	MaxUnreachableProbes int           `yaml:"maxUnreachableProbes" envconfig:"SCAN_MAX_UNREACHABLE_PROBES"`
}

type TimingConfig struct {
	BatchSize      uint64        `yaml:"batchSize" envconfig:"TIMING_BATCH_SIZE"`
	BatchTagPrefix string        `yaml:"batchTagPrefix" envconfig:"TIMING_BATCH_TAG_PREFIX"`
	LookupTimeout  time.Duration `yaml:"lookupTimeout" envconfig:"TIMING_LOOKUP_TIMEOUT"`
}

type DatabaseConfig struct {
	Engine string                `yaml:"engine" envconfig:"DATABASE_ENGINE"`
	Sqlite *SqliteDatabaseConfig `yaml:"sqlite"`
	Pgsql  *PgsqlDatabaseConfig  `yaml:"pgsql"`
}

type SqliteDatabaseConfig struct {
	File         string `yaml:"file" envconfig:"DATABASE_SQLITE_FILE"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_SQLITE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_SQLITE_MAX_IDLE_CONNS"`
}

type PgsqlDatabaseConfig struct {
	Username     string `yaml:"user" envconfig:"POSTGRES_USER"`
	Password     string `yaml:"password" envconfig:"POSTGRES_PASSWORD"`
	Name         string `yaml:"name" envconfig:"POSTGRES_DB"`
	Host         string `yaml:"host" envconfig:"POSTGRES_HOST"`
	Port         string `yaml:"port" envconfig:"POSTGRES_PORT"`
	MaxOpenConns int    `yaml:"maxOpenConns" envconfig:"DATABASE_PGSQL_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"maxIdleConns" envconfig:"DATABASE_PGSQL_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	Addr        string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password    string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB          int           `yaml:"db" envconfig:"REDIS_DB"`
	KeyPrefix   string        `yaml:"keyPrefix" envconfig:"REDIS_KEY_PREFIX"`
	TTL         time.Duration `yaml:"ttl" envconfig:"REDIS_TTL"`
	RecentLimit int64         `yaml:"recentLimit" envconfig:"REDIS_RECENT_LIMIT"`
}

type MonitorConfig struct {
	ResultsFile string        `yaml:"resultsFile" envconfig:"MONITOR_RESULTS_FILE"`
	Interval    time.Duration `yaml:"interval" envconfig:"MONITOR_INTERVAL"`
	MinAge      time.Duration `yaml:"minAge" envconfig:"MONITOR_MIN_AGE"`

	ReceiptAttempts   int           `yaml:"receiptAttempts" envconfig:"MONITOR_RECEIPT_ATTEMPTS"`
	ReceiptRetryDelay time.Duration `yaml:"receiptRetryDelay" envconfig:"MONITOR_RECEIPT_RETRY_DELAY"`
}
