package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

// Conf holds the app configuration; it is loaded once at startup.
var Conf *Config

type (
	ServerConfig struct {
		Host                      string
		Port                      int
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          int
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string
		WorkDir  string

		SecretKey       string
		FrontendBaseURL string
		MediaRoot       string

		DefaultFromEmailAddr          string
		SendgridApiKey                string
		RollbarToken                  string
		PasswordResetTimeoutDelta     time.Duration
		EmailConfirmationTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func (conf *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmailAddr}
}

func (conf *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", conf.Host, conf.Port)
}

func (conf *DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", conf.Host, conf.Port)
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "WEPGCOMP")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "h^0f=7y!(1kp#+zq&58$wepgcomp9#v@g$r%_2u3mc4x&yn-s7")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("mediaRoot", "media")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("emailConfirmationTimeoutDelta", 7*24*time.Hour)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "wepgcomp")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:                         v.GetBool("debug"),
		TestMode:                      testMode,
		Env:                           env,
		Build:                         v.GetString("build"),
		AppName:                       v.GetString("appName"),
		WorkDir:                       wd,
		SecretKey:                     v.GetString("secretKey"),
		FrontendBaseURL:               v.GetString("frontendBaseURL"),
		MediaRoot:                     v.GetString("mediaRoot"),
		DefaultFromEmailAddr:          v.GetString("defaultFromEmail"),
		SendgridApiKey:                v.GetString("sendgridApiKey"),
		RollbarToken:                  v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta:     v.GetDuration("passwordResetTimeoutDelta"),
		EmailConfirmationTimeoutDelta: v.GetDuration("emailConfirmationTimeoutDelta"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Port:                      v.GetInt("server.port"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Name:          v.GetString("database.name"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
	}

	if !(Conf.Debug || Conf.TestMode) {
		// production requirements
		err := vala.BeginValidation().Validate(
			vala.StringNotEmpty(Conf.SecretKey, "secretKey"),
			vala.StringNotEmpty(Conf.SendgridApiKey, "sendgridApiKey"),
			vala.StringNotEmpty(Conf.Database.Password, "database.password"),
		).Check()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}
}
