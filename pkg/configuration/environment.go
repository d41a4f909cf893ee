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
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/storekit/platform/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"storekit"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

// AWSOptions configures the cloud gateways used for tenant hosting
// infrastructure (bucket, distribution, DNS alias, certificates).
type AWSOptions struct {
	Region                 string        `env:"AWS_REGION" envDefault:"us-east-1"`
	HostedZoneID           string        `env:"AWS_HOSTED_ZONE_ID"`
	WildcardCertificateARN string        `env:"AWS_WILDCARD_CERTIFICATE_ARN"`
	TemplateBucket         string        `env:"AWS_TEMPLATE_BUCKET" envDefault:"storekit-template-market"`
	BucketSuffix           string        `env:"AWS_BUCKET_SUFFIX" envDefault:"storefront"`
	CallTimeout            time.Duration `env:"AWS_CALL_TIMEOUT" envDefault:"30s"`
	MaxRetryElapsed        time.Duration `env:"AWS_MAX_RETRY_ELAPSED" envDefault:"2m"`
}

type ResolverOptions struct {
	// BaseDomain is the platform domain under which tenant subdomains live,
	// e.g. "storekit.app" serves tenants at "<subdomain>.storekit.app".
	BaseDomain string `env:"BASE_DOMAIN" envDefault:"localhost"`
	// OrgHeader is the explicit tenant-selection header.
	OrgHeader string `env:"ORG_HEADER" envDefault:"X-Organization-ID"`
	// AllowQueryParam enables the ?org= development escape hatch.
	AllowQueryParam bool `env:"ORG_QUERY_PARAM_ENABLED" envDefault:"false"`
}

type CertificateReconcilerOptions struct {
	Enabled  bool          `env:"CERT_RECONCILER_ENABLED" envDefault:"false"`
	Interval time.Duration `env:"CERT_RECONCILER_INTERVAL" envDefault:"5m"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"1000"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
	// Provisioning endpoints drive slow cloud mutations and get their own,
	// much tighter limit.
	ProvisioningRequests int           `env:"RATE_LIMIT_PROVISIONING_REQUESTS" envDefault:"5"`
	ProvisioningPeriod   time.Duration `env:"RATE_LIMIT_PROVISIONING_PERIOD" envDefault:"1m"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.ProvisioningRequests < 0 {
		return fmt.Errorf("rate limit ProvisioningRequests must be non-negative, got %d", r.ProvisioningRequests)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

type Configuration struct {
	Database       DatabaseOptions
	AWS            AWSOptions
	Resolver       ResolverOptions
	CertReconciler CertificateReconcilerOptions
	Prometheus     PrometheusOptions
	RateLimit      RateLimitOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Looked up on each request; a random uuidv4 is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Looked up on each request; falls back to request.RemoteAddr.
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

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
		return logrus.ErrorLevel
	}
}

func (c *Configuration) Scheme() string {
	if c.GoAppEnvironment == Production {
		return "https"
	}
	return "http"
}

func Use() *Configuration {
	return singleton()
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

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.validateResolver(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}

	return nil
}

func (c *Configuration) validateResolver() error {
	domain := strings.ToLower(strings.TrimSpace(c.Resolver.BaseDomain))
	if domain == "" {
		return fmt.Errorf("BASE_DOMAIN must not be empty")
	}
	c.Resolver.BaseDomain = domain

	if strings.TrimSpace(c.Resolver.OrgHeader) == "" {
		return fmt.Errorf("ORG_HEADER must not be empty")
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
