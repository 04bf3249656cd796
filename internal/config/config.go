package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	fileName  = ".camdash"
	envPrefix = "CAMDASH"
)

// Settings is the resolved client configuration.
type Settings struct {
	BaseURL              string
	Username             string
	Password             string
	SessionToken         string
	EventLimit           int
	RequestTimeout       time.Duration
	InsecureSkipVerify   bool
	NotificationDuration time.Duration
	Reconnect            Reconnect
	MetricsPort          string
	LogLevel             string
}

// Reconnect holds the live channel backoff settings.
type Reconnect struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxRetries   int
	NotifyAfter  int
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("base_url", "http://localhost:8080")
	viper.SetDefault("event_limit", 20)
	viper.SetDefault("request_timeout", 10*time.Second)
	viper.SetDefault("insecure_skip_verify", false)
	viper.SetDefault("notifications.duration", 5*time.Second)
	viper.SetDefault("reconnect.initial_delay", time.Second)
	viper.SetDefault("reconnect.max_delay", 30*time.Second)
	viper.SetDefault("reconnect.max_retries", 0)
	viper.SetDefault("reconnect.notify_after", 5)
	viper.SetDefault("metrics.port", "9110")
	viper.SetDefault("log_level", "info")
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	SetDefaults()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".camdash" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(fileName)
	}

	// CAMDASH_RECONNECT_MAX_DELAY maps to reconnect.max_delay
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing file is fine; everything has a default.
	_ = viper.ReadInConfig()
}

// Load resolves and validates the current settings.
func Load() (Settings, error) {
	s := Settings{
		BaseURL:              strings.TrimRight(viper.GetString("base_url"), "/"),
		Username:             viper.GetString("username"),
		Password:             viper.GetString("password"),
		SessionToken:         viper.GetString("session_token"),
		EventLimit:           viper.GetInt("event_limit"),
		RequestTimeout:       viper.GetDuration("request_timeout"),
		InsecureSkipVerify:   viper.GetBool("insecure_skip_verify"),
		NotificationDuration: viper.GetDuration("notifications.duration"),
		Reconnect: Reconnect{
			InitialDelay: viper.GetDuration("reconnect.initial_delay"),
			MaxDelay:     viper.GetDuration("reconnect.max_delay"),
			MaxRetries:   viper.GetInt("reconnect.max_retries"),
			NotifyAfter:  viper.GetInt("reconnect.notify_after"),
		},
		MetricsPort: viper.GetString("metrics.port"),
		LogLevel:    viper.GetString("log_level"),
	}
	return s, s.Validate()
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	if s.BaseURL == "" {
		return errors.New("base_url is not set; run 'camdash login --host <url>' first")
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q must be an http(s) URL", s.BaseURL)
	}
	if s.EventLimit <= 0 {
		return fmt.Errorf("event_limit must be positive, got %d", s.EventLimit)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", s.RequestTimeout)
	}
	if s.Reconnect.InitialDelay <= 0 || s.Reconnect.MaxDelay < s.Reconnect.InitialDelay {
		return fmt.Errorf("reconnect delays are inconsistent (initial %s, max %s)", s.Reconnect.InitialDelay, s.Reconnect.MaxDelay)
	}
	if s.Reconnect.MaxRetries < 0 || s.Reconnect.NotifyAfter < 0 {
		return errors.New("reconnect.max_retries and reconnect.notify_after must not be negative")
	}
	return nil
}

// SaveSession stores the server URL and session token in the config file.
func SaveSession(baseURL, token string) error {
	viper.Set("base_url", strings.TrimRight(baseURL, "/"))
	viper.Set("session_token", token)
	return write()
}

// ClearSession forgets the stored session token.
func ClearSession() error {
	viper.Set("session_token", "")
	return write()
}

func write() error {
	// Ensure the file exists before writing
	if err := viper.WriteConfig(); err != nil {
		// If file doesn't exist, create it
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return viper.SafeWriteConfig()
		}
		// If it exists but failed to write, try writing to default path
		home, herr := os.UserHomeDir()
		if herr != nil {
			return err
		}
		return viper.WriteConfigAs(filepath.Join(home, fileName+".yaml"))
	}
	return nil
}
