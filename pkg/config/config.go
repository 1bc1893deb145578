package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	HTTP    HTTPConfig
	SUNAT   SUNATConfig
	Signer  SignerConfig
	Storage StorageConfig
	Worker  WorkerConfig
	Sweep   SweepConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// RedisConfig configuración de Redis (lock distribuido, espejo de correlativos y pub/sub).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SUNATConfig configuración del envío al WS de la administración tributaria.
// Las credenciales del proveedor (OSE) se usan para las empresas con envío delegado;
// las demás usan sus propias credenciales SOL almacenadas en la empresa.
type SUNATConfig struct {
	Endpoint         string // URL del servicio de recepción (beta o producción)
	ProviderRUC      string
	ProviderUser     string
	ProviderPassword string
	Timeout          time.Duration
}

// SignerConfig configuración del servicio externo de generación y firma de XML.
type SignerConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// StorageConfig raíz del almacenamiento de artefactos (XML, XML firmado, CDR, impresos).
type StorageConfig struct {
	Root string
}

// WorkerConfig parámetros del pool de workers de envío.
type WorkerConfig struct {
	Count       int
	QueueSize   int
	MaxAttempts int
	BackoffBase time.Duration
}

// SweepConfig cadencias del barrido de reconciliación.
type SweepConfig struct {
	ImmediateEvery time.Duration // documentos atascados en modo inmediato
	DeferredEvery  time.Duration // envío por lotes
	StuckAfter     time.Duration // antigüedad mínima para considerar un documento atascado
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo .env).
// Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "facturacion-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "facturacion"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", "localhost:6379"),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		SUNAT: SUNATConfig{
			Endpoint:         getString(v, "SUNAT_ENDPOINT", "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"),
			ProviderRUC:      getString(v, "SUNAT_PROVIDER_RUC", ""),
			ProviderUser:     getString(v, "SUNAT_PROVIDER_USER", ""),
			ProviderPassword: getString(v, "SUNAT_PROVIDER_PASSWORD", ""),
			Timeout:          time.Duration(getInt(v, "SUNAT_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Signer: SignerConfig{
			Endpoint: getString(v, "SIGNER_ENDPOINT", "http://localhost:8081"),
			Timeout:  time.Duration(getInt(v, "SIGNER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Storage: StorageConfig{
			Root: getString(v, "STORAGE_ROOT", "./storage"),
		},
		Worker: WorkerConfig{
			Count:       getInt(v, "WORKER_COUNT", 4),
			QueueSize:   getInt(v, "WORKER_QUEUE_SIZE", 256),
			MaxAttempts: getInt(v, "WORKER_MAX_ATTEMPTS", 3),
			BackoffBase: time.Duration(getInt(v, "WORKER_BACKOFF_MS", 5000)) * time.Millisecond,
		},
		Sweep: SweepConfig{
			ImmediateEvery: time.Duration(getInt(v, "SWEEP_IMMEDIATE_SECONDS", 300)) * time.Second,
			DeferredEvery:  time.Duration(getInt(v, "SWEEP_DEFERRED_SECONDS", 900)) * time.Second,
			StuckAfter:     time.Duration(getInt(v, "SWEEP_STUCK_AFTER_SECONDS", 120)) * time.Second,
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}
