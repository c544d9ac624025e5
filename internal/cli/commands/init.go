package commands

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/ledgerapi/internal/cache"
	"github.com/conduit-lang/ledgerapi/internal/cli/ui"
	"github.com/conduit-lang/ledgerapi/internal/config"
)

// initAnswers are the values ledgerapi init asks for
type initAnswers struct {
	BaseURL          string
	DatabaseDriver   string
	DatabaseURL      string
	HostMaintainerID string
	CacheDriver      string
	GenerateSecret   bool
}

func defaultInitAnswers() initAnswers {
	d := config.Default()
	return initAnswers{
		BaseURL:          d.API.BaseURL,
		DatabaseDriver:   d.Database.Driver,
		DatabaseURL:      d.Database.URL,
		HostMaintainerID: uuid.NewString(),
		CacheDriver:      d.Cache.Driver,
		GenerateSecret:   true,
	}
}

// NewInitCommand creates the init command
func NewInitCommand(opts *globalOptions) *cobra.Command {
	var (
		yes   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file",
		Long: `Ask for the base URL, database, host maintainer and cache, then write
them to ledgerapi.yaml (or the --config path). Every other key gets its default.`,
		Example: `  # Interactive
  ledgerapi init

  # Accept every default, e.g. in CI
  ledgerapi init --yes --config /etc/ledgerapi.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				path = config.FileName
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			answers := defaultInitAnswers()
			if !yes {
				if err := askInitAnswers(&answers); err != nil {
					return err
				}
			}

			cfg, err := buildInitConfig(answers)
			if err != nil {
				return err
			}
			if err := writeConfig(path, cfg); err != nil {
				return err
			}

			ui.Success(cmd.OutOrStdout(), "wrote "+path, opts.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept every default without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func askInitAnswers(answers *initAnswers) error {
	questions := []*survey.Question{
		{
			Name: "BaseURL",
			Prompt: &survey.Input{
				Message: "Public base URL of the API:",
				Default: answers.BaseURL,
				Help:    "Prefix of every link in rendered documents, without a trailing slash",
			},
			Validate: survey.ComposeValidators(survey.Required, func(v interface{}) error {
				if s, _ := v.(string); strings.HasSuffix(s, "/") {
					return errors.New("base URL must not end with '/'")
				}
				return nil
			}),
		},
		{
			Name: "DatabaseDriver",
			Prompt: &survey.Select{
				Message: "Database driver:",
				Options: []string{"pgx", "postgres", "sqlite3", "sqlite"},
				Default: answers.DatabaseDriver,
			},
		},
		{
			Name: "DatabaseURL",
			Prompt: &survey.Input{
				Message: "Database URL:",
				Default: answers.DatabaseURL,
				Help:    "A postgres:// URL, or a file path for the sqlite drivers",
			},
			Validate: survey.Required,
		},
		{
			Name: "HostMaintainerID",
			Prompt: &survey.Input{
				Message: "Participant id of this node's maintainer:",
				Default: answers.HostMaintainerID,
				Help:    "Served at /maintainer; it may also read every participant's keys",
			},
		},
		{
			Name: "CacheDriver",
			Prompt: &survey.Select{
				Message: "Document cache:",
				Options: []string{cache.DriverMemory, cache.DriverRedis, cache.DriverNone},
				Default: answers.CacheDriver,
			},
		},
		{
			Name: "GenerateSecret",
			Prompt: &survey.Confirm{
				Message: "Generate a JWT secret for the key routes?",
				Default: answers.GenerateSecret,
			},
		},
	}

	return survey.Ask(questions, answers)
}

// buildInitConfig applies the answers to the defaults and validates the result
func buildInitConfig(answers initAnswers) (*config.Config, error) {
	cfg := config.Default()
	cfg.API.BaseURL = answers.BaseURL
	cfg.API.HostMaintainerID = answers.HostMaintainerID
	cfg.Database.Driver = answers.DatabaseDriver
	cfg.Database.URL = answers.DatabaseURL
	cfg.Cache.Driver = answers.CacheDriver

	if answers.GenerateSecret {
		secret, err := generateSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.JWTSecret = secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// writeConfig writes cfg as YAML; the file may hold a secret so it is private
func writeConfig(path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	header := "# ledgerapi configuration. Every key can be overridden with LEDGERAPI_<SECTION>_<KEY>.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
