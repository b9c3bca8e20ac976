package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env       string // DEV (default) | TEST | QA | PROD
		Debug     bool
		TestMode  bool
		AppName   string
		SecretKey []byte
		WorkDir   string
		Build     string

		DefaultFromEmail          mail.Address
		PasswordResetTimeoutDelta time.Duration

		Server    serverConfig
		Database  databaseConfig
		Redis     redisConfig
		Sendgrid  sendgridConfig
		Rollbar   rollbarConfig
		Storage   storageConfig
		Assistant assistantConfig
	}

	serverConfig struct {
		Host                      string
		Port                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	databaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	redisConfig struct {
		Addr     string
		Password string
	}

	sendgridConfig struct {
		APIKey string
	}

	rollbarConfig struct {
		Token string
	}

	// storageConfig configures the Cloudinary store holding assignment attachments.
	storageConfig struct {
		CloudName string
		APIKey    string
		APISecret string
		Folder    string
	}

	// assistantConfig configures the hosted prompt-completion backend.
	assistantConfig struct {
		APIURL  string
		APIKey  string
		Timeout time.Duration
	}
)

func (c databaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig loads the app configuration from env-prefixed variables;
// an optional config/.env.<env> file is loaded first.
func NewConfig(workDir string) (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "APSConnect")
	v.SetDefault("secretKey", "q0zp-ayx)cnd$+75=gk&wtvh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("build", "dev")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "apsconnect")
	v.SetDefault("redisAddr", "localhost:6379")
	v.SetDefault("assistantApiUrl", "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent")
	v.SetDefault("assistantTimeout", 20*time.Second)
	v.SetDefault("storageFolder", "apsconnect/assignments")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stating %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:       env,
		Debug:     v.GetBool("debug"),
		TestMode:  v.GetBool("testMode"),
		AppName:   v.GetString("appName"),
		SecretKey: []byte(v.GetString("secretKey")),
		WorkDir:   workDir,
		Build:     v.GetString("build"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		Server: serverConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetString("serverPort"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("shutdownTimeout"),
		},
		Database: databaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTls"),
		},
		Redis: redisConfig{
			Addr:     v.GetString("redisAddr"),
			Password: v.GetString("redisPassword"),
		},
		Sendgrid: sendgridConfig{APIKey: v.GetString("sendgridApiKey")},
		Rollbar:  rollbarConfig{Token: v.GetString("rollbarToken")},
		Storage: storageConfig{
			CloudName: v.GetString("storageCloudName"),
			APIKey:    v.GetString("storageApiKey"),
			APISecret: v.GetString("storageApiSecret"),
			Folder:    v.GetString("storageFolder"),
		},
		Assistant: assistantConfig{
			APIURL:  v.GetString("assistantApiUrl"),
			APIKey:  v.GetString("assistantApiKey"),
			Timeout: v.GetDuration("assistantTimeout"),
		},
	}
	return conf, nil
}

func (c *Config) ServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}
