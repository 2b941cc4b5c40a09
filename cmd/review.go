package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmallory/revu/internal/models"
	"github.com/jmallory/revu/internal/review"
)

var (
	reviewLanguage   string
	reviewPreset     string
	reviewStrictness string
	reviewDetail     string
	reviewFocus      []string
	reviewOutputLang string
	reviewJSON       bool
	reviewNoSave     bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Review a source file with the configured LLM",
	Long: `Review a source file and print the structured result.

The language is inferred from the file extension unless --language is
set. The review is stored in session history unless --no-save is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd.Context(), args[0])
	},
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewLanguage, "language", "l", "", "Language of the code (default: inferred from extension)")
	reviewCmd.Flags().StringVar(&reviewPreset, "preset", "", "Settings preset name (see 'revu config show')")
	reviewCmd.Flags().StringVar(&reviewStrictness, "strictness", "", "Strictness: lenient, normal, strict")
	reviewCmd.Flags().StringVar(&reviewDetail, "detail", "", "Detail level: brief, normal, deep")
	reviewCmd.Flags().StringSliceVar(&reviewFocus, "focus", nil, "Focus areas: security, performance, readability, maintainability")
	reviewCmd.Flags().StringVar(&reviewOutputLang, "output-language", "", "Review text language: en, ja")
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Print the raw JSON result")
	reviewCmd.Flags().BoolVar(&reviewNoSave, "no-save", false, "Do not record the review in session history")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	code := string(data)

	language := reviewLanguage
	if language == "" {
		language = languageFromExtension(path)
	}

	settings, err := resolveSettings()
	if err != nil {
		return err
	}

	prov, err := getProvider()
	if err != nil {
		return err
	}

	ui.VerboseLog("reviewing %s (%s) with %s", path, language, prov.Name())
	result, err := prov.GenerateReview(ctx, code, language, settings)
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	if !reviewNoSave {
		if err := saveReview(ctx, code, language, prov.Name(), settings, result); err != nil {
			ui.Warning("could not save review: %v", err)
		}
	}

	if reviewJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	ui.RenderResult(result)
	return nil
}

// resolveSettings layers explicit flags over the selected preset (or the
// defaults when no preset is named).
func resolveSettings() (review.Settings, error) {
	settings := review.DefaultSettings()

	if reviewPreset != "" {
		presets, err := review.LoadPresets(viper.GetString("presets_path"))
		if err != nil {
			return review.Settings{}, err
		}
		p, err := review.FindPreset(presets, reviewPreset)
		if err != nil {
			return review.Settings{}, err
		}
		settings = p.Settings
	}

	if reviewStrictness != "" {
		settings.Strictness = review.Strictness(reviewStrictness)
	}
	if reviewDetail != "" {
		settings.DetailLevel = review.DetailLevel(reviewDetail)
	}
	if len(reviewFocus) > 0 {
		settings.FocusAreas = nil
		for _, f := range reviewFocus {
			settings.FocusAreas = append(settings.FocusAreas, review.FocusArea(f))
		}
	}
	if reviewOutputLang != "" {
		settings.OutputLanguage = review.OutputLanguage(reviewOutputLang)
	}

	settings = settings.Normalize()
	if err := settings.Validate(); err != nil {
		return review.Settings{}, err
	}
	return settings, nil
}

func saveReview(ctx context.Context, code, language, providerName string, settings review.Settings, result *review.Result) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	userContent, err := json.Marshal(map[string]any{
		"type":     "user_code",
		"code":     code,
		"language": language,
	})
	if err != nil {
		return err
	}

	session := &models.ReviewSession{
		UserID:   "cli",
		Code:     code,
		Language: language,
		Provider: providerName,
		Settings: settingsJSON,
	}
	if err := s.CreateSession(ctx, session, &models.ReviewMessage{
		Role:    models.RoleUser,
		Content: userContent,
	}); err != nil {
		return err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.AppendMessage(ctx, &models.ReviewMessage{
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   resultJSON,
	})
}

// languageFromExtension maps common file extensions to language labels.
func languageFromExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".cs":
		return "csharp"
	case ".sh":
		return "shell"
	case ".sql":
		return "sql"
	default:
		return strings.TrimPrefix(ext, ".")
	}
}
