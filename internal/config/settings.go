package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/sift/internal/common"
)

// Settings is the typed view of the effective configuration.
type Settings struct {
	Paths          PathSettings
	Vault          VaultSettings
	LLM            LLMSettings
	Logging        LoggingSettings
	Watch          WatchSettings
	Safety         SafetySettings
	Classification ClassificationSettings
}

// PathSettings locates the file organizer's state on disk.
type PathSettings struct {
	AreasRoot string
	Database  string
	Backups   string
	Scan      string
}

// ClassificationSettings tunes escalation to the oracle.
type ClassificationSettings struct {
	AIThreshold        float64
	MaxFileSizeMB      int64
	BatchSize          int
	CorrectionExamples int
	AIEnabled          bool
}

// WatchSettings configures the watch daemon and the ignore list.
type WatchSettings struct {
	Paths          []string
	IgnorePatterns []string
	Debounce       time.Duration
	IgnoreHidden   bool
}

// SafetySettings configures execution safety nets.
type SafetySettings struct {
	BackupRetentionDays int
	DryRun              bool
	BackupBeforeMove    bool
}

// LLMSettings configures the oracle client.
type LLMSettings struct {
	Provider       string
	Model          string
	APIKey         string
	MaxRetries     int
	RateLimit      int
	MaxTokens      int
	BatchMaxTokens int
	ClaudeCodePath string
	CacheTTL       time.Duration
	Timeout        time.Duration
}

// VaultSettings configures the note vault variant.
type VaultSettings struct {
	Path            string
	Database        string
	Backups         string
	AreasFolder     string
	ArchiveFolder   string
	Protected       []string
	IgnorePatterns  []string
	AIThreshold     float64
	MaxContentChars int
}

// LoggingSettings selects the log level and format.
type LoggingSettings struct {
	Level  string
	Format string
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.areas_root", "~/Dropbox/_Areas")
	v.SetDefault("paths.database", "~/.sift/plans.db")
	v.SetDefault("paths.backups", "~/.sift/backups")
	v.SetDefault("paths.scan", "~/Desktop")

	v.SetDefault("classification.ai_threshold", 0.8)
	v.SetDefault("classification.ai_enabled", true)
	v.SetDefault("classification.max_file_size_mb", 100)
	v.SetDefault("classification.batch_size", 20)
	v.SetDefault("classification.correction_examples", 10)

	v.SetDefault("watch.paths", []string{"~/Desktop", "~/Downloads"})
	v.SetDefault("watch.debounce", "5s")
	v.SetDefault("watch.ignore_hidden", true)
	v.SetDefault("watch.ignore_patterns", []string{
		".DS_Store", ".localized", "*.tmp", "*.part", "*.crdownload", "Icon\r",
	})

	v.SetDefault("safety.dry_run", false)
	v.SetDefault("safety.backup_before_move", true)
	v.SetDefault("safety.backup_retention_days", 30)

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.rate_limit", 50)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.batch_max_tokens", 4000)
	v.SetDefault("llm.claude_code_path", "claude")
	v.SetDefault("llm.cache_ttl", "15m")
	v.SetDefault("llm.timeout", "60s")

	v.SetDefault("vault.path", "~/Library/Mobile Documents/iCloud~md~obsidian/Documents/Second Brain")
	v.SetDefault("vault.database", "~/.sift/vault.db")
	v.SetDefault("vault.backups", "~/.sift/vault-backups")
	v.SetDefault("vault.areas_folder", "40 - Areas")
	v.SetDefault("vault.archive_folder", "60 - Archives")
	v.SetDefault("vault.protected", []string{
		"10 - Meta", "20 - Journal", "Bookmarks", "52 - Templates", "53 - Literature Notes",
		"54 - Permanent Notes", "60 - Archives", "90 - Templates", ".obsidian", ".git", "00 - Inbox",
	})
	v.SetDefault("vault.ignore_patterns", []string{".DS_Store", "*.canvas", "*.excalidraw"})
	v.SetDefault("vault.ai_threshold", 0.9)
	v.SetDefault("vault.max_content_chars", 2000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the effective settings from v. Every path is expanded; the
// API key falls back to ANTHROPIC_API_KEY when not configured.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Paths: PathSettings{
			AreasRoot: ExpandPath(v.GetString("paths.areas_root")),
			Database:  ExpandPath(v.GetString("paths.database")),
			Backups:   ExpandPath(v.GetString("paths.backups")),
			Scan:      ExpandPath(v.GetString("paths.scan")),
		},
		Classification: ClassificationSettings{
			AIThreshold:        v.GetFloat64("classification.ai_threshold"),
			AIEnabled:          v.GetBool("classification.ai_enabled"),
			MaxFileSizeMB:      v.GetInt64("classification.max_file_size_mb"),
			BatchSize:          v.GetInt("classification.batch_size"),
			CorrectionExamples: v.GetInt("classification.correction_examples"),
		},
		Watch: WatchSettings{
			Paths:          expandAll(v.GetStringSlice("watch.paths")),
			Debounce:       v.GetDuration("watch.debounce"),
			IgnoreHidden:   v.GetBool("watch.ignore_hidden"),
			IgnorePatterns: v.GetStringSlice("watch.ignore_patterns"),
		},
		Safety: SafetySettings{
			DryRun:              v.GetBool("safety.dry_run"),
			BackupBeforeMove:    v.GetBool("safety.backup_before_move"),
			BackupRetentionDays: v.GetInt("safety.backup_retention_days"),
		},
		LLM: LLMSettings{
			Provider:       v.GetString("llm.provider"),
			Model:          v.GetString("llm.model"),
			APIKey:         v.GetString("llm.api_key"),
			MaxRetries:     v.GetInt("llm.max_retries"),
			RateLimit:      v.GetInt("llm.rate_limit"),
			MaxTokens:      v.GetInt("llm.max_tokens"),
			BatchMaxTokens: v.GetInt("llm.batch_max_tokens"),
			ClaudeCodePath: ExpandPath(v.GetString("llm.claude_code_path")),
			CacheTTL:       v.GetDuration("llm.cache_ttl"),
			Timeout:        v.GetDuration("llm.timeout"),
		},
		Vault: VaultSettings{
			Path:            ExpandPath(v.GetString("vault.path")),
			Database:        ExpandPath(v.GetString("vault.database")),
			Backups:         ExpandPath(v.GetString("vault.backups")),
			AreasFolder:     v.GetString("vault.areas_folder"),
			ArchiveFolder:   v.GetString("vault.archive_folder"),
			Protected:       v.GetStringSlice("vault.protected"),
			IgnorePatterns:  v.GetStringSlice("vault.ignore_patterns"),
			AIThreshold:     v.GetFloat64("vault.ai_threshold"),
			MaxContentChars: v.GetInt("vault.max_content_chars"),
		},
		Logging: LoggingSettings{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if s.LLM.APIKey == "" {
		s.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings no component can work with.
func (s *Settings) Validate() error {
	if s.Classification.AIThreshold < 0 || s.Classification.AIThreshold > 1 {
		return fmt.Errorf("%w: classification.ai_threshold must be within [0,1], got %v",
			common.ErrInvalidConfig, s.Classification.AIThreshold)
	}
	if s.Vault.AIThreshold < 0 || s.Vault.AIThreshold > 1 {
		return fmt.Errorf("%w: vault.ai_threshold must be within [0,1], got %v",
			common.ErrInvalidConfig, s.Vault.AIThreshold)
	}
	if s.Classification.BatchSize <= 0 {
		return fmt.Errorf("%w: classification.batch_size must be positive", common.ErrInvalidConfig)
	}
	if s.Paths.Database == "" {
		return fmt.Errorf("%w: paths.database", common.ErrMissingConfig)
	}
	return nil
}

// ConfigDir returns the directory holding config.yaml.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "sift"), nil
}

func expandAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, ExpandPath(p))
	}
	return out
}
