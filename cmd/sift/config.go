package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/sift/internal/cli"
	"github.com/Veraticus/sift/internal/config"
	"github.com/Veraticus/sift/internal/model"
)

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadSettings(); err != nil {
				return err
			}
			out, err := renderSettings(viper.GetViper())
			if err != nil {
				return err
			}
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("# "+used))
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// renderSettings dumps every setting as YAML with the API key masked.
func renderSettings(v *viper.Viper) (string, error) {
	all := v.AllSettings()
	if llm, ok := all["llm"].(map[string]any); ok {
		if key, _ := llm["api_key"].(string); key != "" {
			llm["api_key"] = maskSecret(key)
		}
	}
	data, err := yaml.Marshal(all)
	if err != nil {
		return "", fmt.Errorf("failed to render settings: %w", err)
	}
	return string(data), nil
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func initCmd() *cobra.Command {
	var interactive, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database, backup and area folders",
		Long: `Creates the directories sift needs: the database and backup folders and
the area layout (Finance/Documents, Health/Archive, ... for files, or the
numbered area folders inside the vault). With --interactive a short form
collects the main paths and writes them to the config file first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interactive {
				path, err := writeConfigInteractive(force)
				if err != nil {
					return err
				}
				if path == "" {
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Wrote "+path))
			}

			s, err := loadSettings()
			if err != nil {
				return err
			}
			created, err := createDirectories(s, vaultMode)
			if err != nil {
				return err
			}
			for _, dir := range created {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Created "+dir))
			}
			if len(created) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Everything is already in place."))
			}

			store, err := openStore(cmd.Context(), s)
			if err != nil {
				return err
			}
			return store.Close()
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "fill in the main settings with a form")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// createDirectories makes every directory the variant needs and returns
// the ones that did not exist yet.
func createDirectories(s *config.Settings, vault bool) ([]string, error) {
	var dirs []string
	if vault {
		if info, err := os.Stat(s.Vault.Path); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("vault not found at %s", s.Vault.Path)
		}
		dirs = append(dirs, filepath.Dir(s.Vault.Database), s.Vault.Backups,
			filepath.Join(s.Vault.Path, s.Vault.ArchiveFolder))
		for _, area := range model.AllAreas {
			dirs = append(dirs, filepath.Join(s.Vault.Path, s.Vault.AreasFolder, area))
		}
	} else {
		dirs = append(dirs, filepath.Dir(s.Paths.Database), s.Paths.Backups)
		for _, d := range model.AllDomains {
			for _, sub := range model.DomainSubfolders[d] {
				dirs = append(dirs, filepath.Join(s.Paths.AreasRoot, string(d), sub))
			}
		}
	}

	var created []string
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", dir, err)
		}
		created = append(created, dir)
	}
	return created, nil
}

// writeConfigInteractive runs the setup form and writes the answers to the
// config file. It returns "" when the user aborts.
func writeConfigInteractive(force bool) (string, error) {
	path := cfgFile
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	areas := viper.GetString("paths.areas_root")
	scan := viper.GetString("paths.scan")
	vaultPath := viper.GetString("vault.path")
	provider := viper.GetString("llm.provider")
	aiEnabled := viper.GetBool("classification.ai_enabled")

	notEmpty := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Areas folder").
				Description("Where organized files are filed by domain").
				Value(&areas).
				Validate(notEmpty),
			huh.NewInput().
				Title("Scan folder").
				Description("Default folder for sift organize").
				Value(&scan).
				Validate(notEmpty),
			huh.NewInput().
				Title("Note vault").
				Description("Used with --vault (optional)").
				Value(&vaultPath),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use AI for items the rules cannot place?").
				Value(&aiEnabled),
			huh.NewSelect[string]().
				Title("AI provider").
				Options(
					huh.NewOption("Anthropic API (ANTHROPIC_API_KEY)", "anthropic"),
					huh.NewOption("Claude Code CLI", "claudecode"),
				).
				Value(&provider),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", nil
		}
		return "", fmt.Errorf("form error: %w", err)
	}

	viper.Set("paths.areas_root", strings.TrimSpace(areas))
	viper.Set("paths.scan", strings.TrimSpace(scan))
	viper.Set("vault.path", strings.TrimSpace(vaultPath))
	viper.Set("llm.provider", provider)
	viper.Set("classification.ai_enabled", aiEnabled)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
