package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmallory/revu/internal/review"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "revu"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage revu configuration.

Running bare 'revu config' is the same as 'revu config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List available review settings presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configPresetsRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPresetsCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# revu configuration
# See: revu config show (for effective values and sources)

# SQLite database path (default: ~/.config/revu/revu.db)
# db_path: {{ .DBPath }}

# Review settings presets file (default: ~/.config/revu/presets.yaml)
# presets_path: {{ .PresetsPath }}

# Active LLM provider: openai or anthropic (default: openai)
provider: "{{ .Provider }}"

openai:
  # API key for OpenAI (or REVU_OPENAI_API_KEY)
  api_key: "{{ .OpenAIAPIKey }}"

  # Model to use (default: "gpt-4o-mini")
  model: "{{ .OpenAIModel }}"

  # Base URL override for OpenAI-compatible services
  # base_url: ""

anthropic:
  # API key for Anthropic (or REVU_ANTHROPIC_API_KEY)
  api_key: "{{ .AnthropicAPIKey }}"

  # Model to use
  model: "{{ .AnthropicModel }}"

stream:
  # Maximum accumulated characters per streaming review (default: 2000000)
  max_chars: {{ .StreamMaxChars }}
`

type configTemplateData struct {
	DBPath          string
	PresetsPath     string
	Provider        string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	StreamMaxChars  int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:          viper.GetString("db_path"),
		PresetsPath:     viper.GetString("presets_path"),
		Provider:        viper.GetString("provider"),
		OpenAIAPIKey:    viper.GetString("openai.api_key"),
		OpenAIModel:     viper.GetString("openai.model"),
		AnthropicAPIKey: viper.GetString("anthropic.api_key"),
		AnthropicModel:  viper.GetString("anthropic.model"),
		StreamMaxChars:  viper.GetInt("stream.max_chars"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "db_path", EnvVar: "REVU_DB_PATH"},
	{Key: "presets_path", EnvVar: "REVU_PRESETS_PATH"},
	{Key: "provider", EnvVar: "REVU_PROVIDER"},
	{Key: "openai.api_key", EnvVar: "REVU_OPENAI_API_KEY", Secret: true},
	{Key: "openai.model", EnvVar: "REVU_OPENAI_MODEL"},
	{Key: "openai.base_url", EnvVar: "REVU_OPENAI_BASE_URL"},
	{Key: "anthropic.api_key", EnvVar: "REVU_ANTHROPIC_API_KEY", Secret: true},
	{Key: "anthropic.model", EnvVar: "REVU_ANTHROPIC_MODEL"},
	{Key: "stream.max_chars", EnvVar: "REVU_STREAM_MAX_CHARS"},
	{Key: "port", EnvVar: "REVU_PORT"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret {
			if s, ok := val.(string); ok && s != "" {
				val = "(set)"
			}
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-22s %v  %s\n", k.Key, val, source)
	}

	return nil
}

func configPresetsRun() error {
	presets, err := review.LoadPresets(viper.GetString("presets_path"))
	if err != nil {
		return err
	}

	table := ui.Table([]string{"NAME", "STRICTNESS", "DETAIL", "FOCUS", "LANG", "DESCRIPTION"})
	for _, p := range presets {
		focus := ""
		for i, f := range p.Settings.FocusAreas {
			if i > 0 {
				focus += ","
			}
			focus += string(f)
		}
		_ = table.Append([]string{
			p.Name,
			string(p.Settings.Strictness),
			string(p.Settings.DetailLevel),
			focus,
			string(p.Settings.OutputLanguage),
			p.Description,
		})
	}
	return table.Render()
}

// detectSource reports where a config value came from: env, file, or default.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if os.Getenv(envVar) != "" {
		return fmt.Sprintf("(env %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}
