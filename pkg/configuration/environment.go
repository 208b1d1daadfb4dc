package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/formsync/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValues(func() (*Configuration, error) {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
})

// LoadEnv loads the env files that exist, looking in the working directory first and
// then in the nearest parent directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		root, ok := moduleRoot()
		if ok {
			for _, file := range envFiles {
				path := filepath.Join(root, file)
				if fs.FileExists(path) {
					existingFiles = append(existingFiles, path)
				}
			}
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Driver   string `env:"DB_DRIVER" envDefault:"pgx" validate:"oneof=pgx postgres"`
	Name     string `env:"DB_NAME" envDefault:"formsync" validate:"required"`
	Host     string `env:"DB_HOST" envDefault:"localhost" validate:"required"`
	Port     string `env:"DB_PORT" envDefault:"5432" validate:"required,numeric"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"formsync"`
}

// ImportOptions holds the reconciliation defaults; CLI flags override them per run.
type ImportOptions struct {
	DataDir               string `env:"FORMSYNC_DATA_DIR" envDefault:"data" validate:"required"`
	Workbook              string `env:"FORMSYNC_WORKBOOK" envDefault:"forms.xlsx" validate:"required"`
	DocumentExt           string `env:"FORMSYNC_DOCUMENT_EXT" envDefault:".pdf" validate:"required,startswith=."`
	HeaderScanRows        int    `env:"FORMSYNC_HEADER_SCAN_ROWS" envDefault:"20" validate:"gte=1,lte=500"`
	SampleLimit           int    `env:"FORMSYNC_SAMPLE_LIMIT" envDefault:"30" validate:"gte=1"`
	FallbackEnabled       bool   `env:"FORMSYNC_FALLBACK_ENABLED" envDefault:"false"`
	CreateMissingSections bool   `env:"FORMSYNC_CREATE_MISSING_SECTIONS" envDefault:"false"`
	TablesPath            string `env:"FORMSYNC_TABLES_PATH"`
	UploadDir             string `env:"FORMSYNC_UPLOAD_DIR" envDefault:"forms" validate:"required"`
}

type Configuration struct {
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Import        ImportOptions

	UploadsPath      string        `env:"UPLOADS_PATH" envDefault:"media" validate:"required"`
	MetricsTextfile  string        `env:"METRICS_TEXTFILE"`
	ConnectTimeout   time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	GoAppEnvironment string        `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogPath          string        `env:"LOG_PATH"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Use returns the process-wide configuration, loading it on first call.
func Use() (*Configuration, error) {
	return singleton()
}

// Load reads configuration from the given env files and the environment without
// touching the process-wide singleton.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validate() error {
	c.Import.DocumentExt = strings.ToLower(strings.TrimSpace(c.Import.DocumentExt))
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
		c.logFile = nil
	}
}
