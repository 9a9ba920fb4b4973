package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/holon-run/reportbot/pkg/publisher"
)

const (
	envPrefix         = "REPORTBOT"
	defaultConfigName = ".reportbot"
	cacheDirName      = "reportbot-http-cache"
)

// Config is the resolved configuration of one invocation.
type Config struct {
	Token    string
	APIURL   string
	Timeout  time.Duration
	Target   string
	HeadSHA  string
	LogLevel string
	LogFmt   string

	ResultFile string
	CacheDir   string

	Metadata   publisher.ReportMetadata
	BodyFile   string
	Conclusion string

	UpdateCommentIfOneExists bool
	CommentsPerPage          int
	CommentsSinglePage       bool
}

// actionInputs maps config keys to the INPUT_* variables the Actions
// runner sets for `with:` inputs. GITHUB_TOKEN is read last.
var actionInputs = map[string][]string{
	"token":                        {"INPUT_GITHUB-TOKEN", "INPUT_GITHUB_TOKEN", "GITHUB_TOKEN"},
	"api-url":                      {"GITHUB_API_URL"},
	"title":                        {"INPUT_REPORT-TITLE"},
	"name":                         {"INPUT_REPORT-NAME"},
	"body-file":                    {"INPUT_MARKUP-FILE"},
	"conclusion":                   {"INPUT_CONCLUSION"},
	"update-comment-if-one-exists": {"INPUT_UPDATE-COMMENT-IF-ONE-EXISTS"},
}

// loadConfig layers flags, environment and the optional config file into
// a Config. Precedence: explicitly set flags, REPORTBOT_* variables,
// Actions inputs, config file, flag defaults.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	// Env names are bound one by one. A key replacer would also rewrite
	// the hyphenated INPUT_* names the runner sets.
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		names := append([]string{f.Name, envName(f.Name)}, actionInputs[f.Name]...)
		bindErr = v.BindEnv(names...)
	})
	if bindErr != nil {
		return nil, bindErr
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		Token:      strings.TrimSpace(v.GetString("token")),
		APIURL:     v.GetString("api-url"),
		Timeout:    v.GetDuration("timeout"),
		Target:     v.GetString("target"),
		HeadSHA:    v.GetString("head-sha"),
		LogLevel:   v.GetString("log-level"),
		LogFmt:     v.GetString("log-format"),
		ResultFile: v.GetString("result-file"),
		CacheDir:   v.GetString("http-cache-dir"),
		Metadata: publisher.ReportMetadata{
			Title: v.GetString("title"),
			Name:  v.GetString("name"),
		},
		BodyFile:                 v.GetString("body-file"),
		Conclusion:               v.GetString("conclusion"),
		UpdateCommentIfOneExists: v.GetBool("update-comment-if-one-exists"),
		CommentsPerPage:          v.GetInt("comments-per-page"),
		CommentsSinglePage:       v.GetBool("comments-single-page"),
	}

	// Runs within one job share $RUNNER_TEMP, so later runs revalidate
	// the comment list instead of downloading it again.
	if cfg.CacheDir == "" {
		if tmp := os.Getenv("RUNNER_TEMP"); tmp != "" {
			cfg.CacheDir = filepath.Join(tmp, cacheDirName)
		}
	}

	if path := v.GetString("metadata-file"); path != "" {
		meta, err := loadMetadata(path)
		if err != nil {
			return nil, err
		}
		// Explicit title/name win over the file.
		if cfg.Metadata.Title == "" {
			cfg.Metadata.Title = meta.Title
		}
		if cfg.Metadata.Name == "" {
			cfg.Metadata.Name = meta.Name
		}
	}

	return cfg, nil
}

// envName returns the REPORTBOT_* variable for a config key.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// metadataFile accepts both the flat form (title/name) and the report
// data form produced by the test result processor
// ({"ReportMetaData": {"ReportTitle": ..., "ReportName": ...}}).
type metadataFile struct {
	Title  string `yaml:"title"`
	Name   string `yaml:"name"`
	Report struct {
		Title string `yaml:"ReportTitle"`
		Name  string `yaml:"ReportName"`
	} `yaml:"ReportMetaData"`
}

// loadMetadata reads report metadata from a YAML or JSON file.
func loadMetadata(path string) (publisher.ReportMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return publisher.ReportMetadata{}, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var f metadataFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return publisher.ReportMetadata{}, fmt.Errorf("failed to parse metadata file %s: %w", path, err)
	}

	meta := publisher.ReportMetadata{Title: f.Title, Name: f.Name}
	if meta.Title == "" {
		meta.Title = f.Report.Title
	}
	if meta.Name == "" {
		meta.Name = f.Report.Name
	}
	return meta, nil
}

// readBody returns the report markup from path, or from stdin when path is "-".
func readBody(path string, stdin io.Reader) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--body-file is required")
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read report body: %w", err)
	}
	return string(data), nil
}

// validateCheck checks the inputs of the status check flow.
func (c *Config) validateCheck() (publisher.Conclusion, error) {
	if err := c.Metadata.Validate(); err != nil {
		return "", err
	}
	return publisher.ParseConclusion(c.Conclusion)
}
