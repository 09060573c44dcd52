package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		DefaultFromEmail mail.Address
		Admins           []mail.Address
		FrontendBaseURL  string
		RollbarToken     string
		SendgridApiKey   string
		WorkDir          string
		Location         *time.Location

		Server   ServerConfig
		Database DatabaseConfig
		Media    MediaConfig
		Session  SessionConfig
		Backup   BackupConfig
		SSOLinks SSOLinksConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	MediaConfig struct {
		Root        string
		URL         string
		Backend     string // fs | s3
		S3Bucket    string
		S3Region    string
		S3Endpoint  string
		S3AccessKey string
		S3SecretKey string
	}

	SessionConfig struct {
		CookieName string
		Age        time.Duration
		RedisURL   string
	}

	BackupConfig struct {
		Schedule string
	}

	SSOLinksConfig struct {
		TTL      time.Duration
		Schedule string
	}
)

func (dbConf DatabaseConfig) Address() string {
	return net.JoinHostPort(dbConf.Host, strconv.Itoa(dbConf.Port))
}

// NewConfig loads the configuration of the current environment.
// ENV selects the environment: DEV (local; default), TEST, QA, PROD.
// Values are read from viper defaults, then `config/.env.<env>` (if any), then the environment (prefixed by ENV).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Academia")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "Academia <noreply@localhost>")
	v.SetDefault("admins", "")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("timeZone", "UTC")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "academia")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("media.root", "media")
	v.SetDefault("media.url", "/media/")
	v.SetDefault("media.backend", "fs")
	v.SetDefault("media.s3Bucket", "")
	v.SetDefault("media.s3Region", "")
	v.SetDefault("media.s3Endpoint", "")
	v.SetDefault("media.s3AccessKey", "")
	v.SetDefault("media.s3SecretKey", "")

	v.SetDefault("session.cookieName", "sessionid")
	v.SetDefault("session.age", 14*24*time.Hour)
	v.SetDefault("session.redisURL", "")

	v.SetDefault("backup.schedule", "0 30 1 * * *")
	v.SetDefault("ssoLinks.ttl", time.Minute)
	v.SetDefault("ssoLinks.schedule", "0 * * * * *")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("timeZone"))
	if err != nil {
		log.Fatalf("config.LoadLocation(%s): %v", v.GetString("timeZone"), err)
	}

	conf := &Config{
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		WorkDir:         workDir,
		Location:        loc,
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Media: MediaConfig{
			Root:        v.GetString("media.root"),
			URL:         v.GetString("media.url"),
			Backend:     v.GetString("media.backend"),
			S3Bucket:    v.GetString("media.s3Bucket"),
			S3Region:    v.GetString("media.s3Region"),
			S3Endpoint:  v.GetString("media.s3Endpoint"),
			S3AccessKey: v.GetString("media.s3AccessKey"),
			S3SecretKey: v.GetString("media.s3SecretKey"),
		},
		Session: SessionConfig{
			CookieName: v.GetString("session.cookieName"),
			Age:        v.GetDuration("session.age"),
			RedisURL:   v.GetString("session.redisURL"),
		},
		Backup: BackupConfig{
			Schedule: v.GetString("backup.schedule"),
		},
		SSOLinks: SSOLinksConfig{
			TTL:      v.GetDuration("ssoLinks.ttl"),
			Schedule: v.GetString("ssoLinks.schedule"),
		},
	}

	if from, err := mail.ParseAddress(v.GetString("defaultFromEmail")); err == nil {
		conf.DefaultFromEmail = *from
	} else {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	if admins := v.GetString("admins"); admins != "" {
		addrs, err := mail.ParseAddressList(admins)
		if err != nil {
			log.Fatalf("config.admins: %v", err)
		}
		for _, a := range addrs {
			conf.Admins = append(conf.Admins, *a)
		}
	}
	if !filepath.IsAbs(conf.Media.Root) {
		conf.Media.Root = filepath.Join(workDir, conf.Media.Root)
	}
	return conf
}

// NewTestConfig returns a Config suitable for unit tests: no env lookups, no filesystem probing.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		TestMode:         true,
		AppName:          "Academia",
		SecretKey:        "secret",
		DefaultFromEmail: mail.Address{Name: "Academia", Address: "noreply@localhost"},
		Location:         time.UTC,
		Server: ServerConfig{
			Host:                      "localhost",
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Media:    MediaConfig{Root: os.TempDir(), URL: "/media/", Backend: "fs"},
		Session:  SessionConfig{CookieName: "sessionid", Age: 14 * 24 * time.Hour},
		Backup:   BackupConfig{Schedule: "0 30 1 * * *"},
		SSOLinks: SSOLinksConfig{TTL: time.Minute, Schedule: "0 * * * * *"},
	}
}
