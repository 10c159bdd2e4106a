package cfg

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creativeprojects/feedme/feed"
	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type MailboxType string

const (
	IMAP    MailboxType = "imap"
	MAILDIR MailboxType = "maildir"
	LOCAL   MailboxType = "local"
	// MEMORY keeps the messages in memory for the duration of the run
	MEMORY MailboxType = "memory"
)

const (
	DefaultIMAPPort   = 993
	DefaultTimeout    = 60 * time.Second
	DefaultWorkers    = 4
	DefaultAuth       = "login"
	DefaultEnvFile    = ".env"
	DefaultConfigFile = "feedme.yaml"
)

type Config struct {
	Mailbox  Mailbox  `yaml:"mailbox"`
	HTTP     HTTP     `yaml:"http"`
	Identity Identity `yaml:"identity"`
	Message  Message  `yaml:"message"`
	Feeds    []Feed   `yaml:"feeds"`
}

type Mailbox struct {
	Type                MailboxType   `yaml:"type"`
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	User                string        `yaml:"user"`
	Password            string        `yaml:"password"`
	UseTLS              bool          `yaml:"useTls"`
	SkipTLSVerification bool          `yaml:"skipTlsVerification"`
	Auth                string        `yaml:"auth"`
	Compress            bool          `yaml:"compress"`
	Timeout             time.Duration `yaml:"timeout"`
	Root                string        `yaml:"root"`
	File                string        `yaml:"file"`
}

type HTTP struct {
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	MaxRedirects   int           `yaml:"maxRedirects"`
	MaxBodySize    int64         `yaml:"maxBodySize"`
	Workers        int           `yaml:"workers"`
	RateLimit      float64       `yaml:"rateLimit"`
	UserAgent      string        `yaml:"userAgent"`
}

type Identity struct {
	Namespace string        `yaml:"namespace"`
	Fallback  feed.Fallback `yaml:"fallback"`
}

type Message struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	// Flags set on the delivered messages, like "seen" or "flagged"
	Flags []string `yaml:"flags"`
}

type Feed struct {
	URL    string `yaml:"url"`
	Folder string `yaml:"folder"`
}

func newConfig() *Config {
	return &Config{
		Mailbox: Mailbox{
			Type:    IMAP,
			Port:    DefaultIMAPPort,
			UseTLS:  true,
			Auth:    DefaultAuth,
			Timeout: DefaultTimeout,
		},
		HTTP: HTTP{
			ConnectTimeout: feed.DefaultConnectTimeout,
			ReadTimeout:    feed.DefaultReadTimeout,
			MaxRedirects:   feed.DefaultMaxRedirects,
			MaxBodySize:    feed.DefaultMaxBodySize,
			Workers:        DefaultWorkers,
			UserAgent:      feed.DefaultUserAgent,
		},
		Identity: Identity{
			Namespace: feed.DefaultNamespace,
			Fallback:  feed.FallbackContent,
		},
	}
}

// LoadEnvFile loads the variables from a dotenv file. A missing file is not an error
// unless it was explicitly requested.
func LoadEnvFile(fileName string, required bool) error {
	if _, err := os.Stat(fileName); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return err
	}
	return godotenv.Load(fileName)
}

// LoadFromFile loads and validates the configuration file. The .env file next to it
// is loaded first so its variables can be referenced from the credentials.
func LoadFromFile(fileName string) (*Config, error) {
	err := LoadEnvFile(filepath.Join(filepath.Dir(fileName), DefaultEnvFile), false)
	if err != nil {
		return nil, fmt.Errorf("cannot load environment file: %w", err)
	}
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	return Load(file)
}

// Load decodes the configuration from a io.ReadCloser
func Load(reader io.ReadCloser) (*Config, error) {
	defer reader.Close()
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	config := newConfig()
	err := decoder.Decode(config)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &lib.ValidationError{Message: "empty configuration"}
		}
		return nil, fmt.Errorf("cannot decode configuration: %w", err)
	}
	config.expandEnv()
	err = config.Validate()
	if err != nil {
		return nil, err
	}
	return config, nil
}

// expandEnv replaces ${VAR} or $VAR in the credentials
func (c *Config) expandEnv() {
	c.Mailbox.Host = os.ExpandEnv(c.Mailbox.Host)
	c.Mailbox.User = os.ExpandEnv(c.Mailbox.User)
	c.Mailbox.Password = os.ExpandEnv(c.Mailbox.Password)
	c.Mailbox.Root = os.ExpandEnv(c.Mailbox.Root)
	c.Mailbox.File = os.ExpandEnv(c.Mailbox.File)
}

func (c *Config) Validate() error {
	if err := c.Mailbox.validate(); err != nil {
		return err
	}
	if err := c.HTTP.validate(); err != nil {
		return err
	}
	switch c.Identity.Fallback {
	case feed.FallbackContent, feed.FallbackTime:
	default:
		return &lib.ValidationError{Field: "identity.fallback", Message: fmt.Sprintf("unknown value %q", c.Identity.Fallback)}
	}
	if strings.TrimSpace(c.Identity.Namespace) == "" {
		return &lib.ValidationError{Field: "identity.namespace", Message: "cannot be empty"}
	}
	flags, err := mailbox.ParseFlags(c.Message.Flags)
	if err != nil {
		return &lib.ValidationError{Field: "message.flags", Message: err.Error()}
	}
	c.Message.Flags = flags
	if len(c.Feeds) == 0 {
		return &lib.ValidationError{Field: "feeds", Message: "no feed defined"}
	}
	for i, source := range c.Feeds {
		if err := source.validate(); err != nil {
			return &lib.ValidationError{Field: fmt.Sprintf("feeds[%d]", i), Message: err.Error()}
		}
	}
	return nil
}

func (m Mailbox) validate() error {
	switch m.Type {
	case IMAP:
		if m.Host == "" {
			return &lib.ValidationError{Field: "mailbox.host", Message: "missing server name"}
		}
		if m.User == "" {
			return &lib.ValidationError{Field: "mailbox.user", Message: "missing user name"}
		}
		if m.Password == "" {
			return &lib.ValidationError{Field: "mailbox.password", Message: "missing password"}
		}
		if m.Port < 1 || m.Port > 65535 {
			return &lib.ValidationError{Field: "mailbox.port", Message: fmt.Sprintf("invalid port %d", m.Port)}
		}
		switch m.Auth {
		case "login", "plain":
		default:
			return &lib.ValidationError{Field: "mailbox.auth", Message: fmt.Sprintf("unknown authentication %q", m.Auth)}
		}
		if m.Timeout <= 0 {
			return &lib.ValidationError{Field: "mailbox.timeout", Message: "must be positive"}
		}
	case MAILDIR:
		if m.Root == "" {
			return &lib.ValidationError{Field: "mailbox.root", Message: "missing maildir root"}
		}
	case LOCAL:
		if m.File == "" {
			return &lib.ValidationError{Field: "mailbox.file", Message: "missing database file"}
		}
	case MEMORY:
	default:
		return &lib.ValidationError{Field: "mailbox.type", Message: fmt.Sprintf("unknown mailbox type %q", m.Type)}
	}
	return nil
}

func (h HTTP) validate() error {
	if h.ConnectTimeout <= 0 {
		return &lib.ValidationError{Field: "http.connectTimeout", Message: "must be positive"}
	}
	if h.ReadTimeout <= 0 {
		return &lib.ValidationError{Field: "http.readTimeout", Message: "must be positive"}
	}
	if h.MaxRedirects < 0 {
		return &lib.ValidationError{Field: "http.maxRedirects", Message: "cannot be negative"}
	}
	if h.MaxBodySize <= 0 {
		return &lib.ValidationError{Field: "http.maxBodySize", Message: "must be positive"}
	}
	if h.Workers < 1 {
		return &lib.ValidationError{Field: "http.workers", Message: "needs at least one worker"}
	}
	if h.RateLimit < 0 {
		return &lib.ValidationError{Field: "http.rateLimit", Message: "cannot be negative"}
	}
	return nil
}

func (f Feed) validate() error {
	uri, err := url.Parse(f.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if (uri.Scheme != "http" && uri.Scheme != "https") || uri.Host == "" {
		return fmt.Errorf("URL %q is not an absolute http(s) address", f.URL)
	}
	return mailbox.FolderPath(f.Folder).Validate()
}

// FetcherConfig returns the HTTP settings for the feed fetcher
func (c *Config) FetcherConfig() feed.FetcherConfig {
	return feed.FetcherConfig{
		ConnectTimeout: c.HTTP.ConnectTimeout,
		ReadTimeout:    c.HTTP.ReadTimeout,
		MaxRedirects:   c.HTTP.MaxRedirects,
		NoRedirects:    c.HTTP.MaxRedirects == 0,
		MaxBodySize:    c.HTTP.MaxBodySize,
		RateLimit:      c.HTTP.RateLimit,
		UserAgent:      c.HTTP.UserAgent,
	}
}

// FeedList returns the feeds to synchronize, in configuration order
func (c *Config) FeedList() []feed.Feed {
	feeds := make([]feed.Feed, len(c.Feeds))
	for i, source := range c.Feeds {
		feeds[i] = feed.Feed{
			URL:    source.URL,
			Folder: mailbox.FolderPath(source.Folder),
		}
	}
	return feeds
}
