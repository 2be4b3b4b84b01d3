package utils

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

//go:embed prompts/*.txt
var embeddedPrompts embed.FS

const (
	CourseGenerationPrompt   = "course_generation.txt"
	CurriculumDesignerSystem = "curriculum_designer_system.txt"
)

var placeholderPattern = regexp.MustCompile(`\{[A-Z][A-Z0-9_]*\}`)

// PromptLoader プロンプトファイルを読み込むためのユーティリティ
type PromptLoader struct {
	files fs.FS
}

// NewPromptLoader プロンプトローダーを初期化。baseDir が空なら組み込みのプロンプトを使う
func NewPromptLoader(baseDir string) *PromptLoader {
	if baseDir == "" {
		sub, _ := fs.Sub(embeddedPrompts, "prompts")
		return &PromptLoader{files: sub}
	}
	return &PromptLoader{files: os.DirFS(baseDir)}
}

// NewPromptLoaderFS loads prompts from an arbitrary file system.
func NewPromptLoaderFS(files fs.FS) *PromptLoader {
	return &PromptLoader{files: files}
}

// LoadPrompt プロンプトファイルを読み込み、変数を置換して返す。
// 置換されずに残ったプレースホルダーがあればエラー
func (p *PromptLoader) LoadPrompt(filename string, variables map[string]string) (string, error) {
	content, err := fs.ReadFile(p.files, filename)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	// 値の中の波括弧を誤検出しないよう、置換前のテンプレートで確認する
	var missing []string
	for _, placeholder := range unique(placeholderPattern.FindAllString(string(content), -1)) {
		if _, ok := variables[strings.Trim(placeholder, "{}")]; !ok {
			missing = append(missing, placeholder)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s has unresolved placeholders: %s", filename, strings.Join(missing, ", "))
	}

	// 変数の置換は一度だけ。値に含まれるプレースホルダーは再置換しない
	keys := make([]string, 0, len(variables))
	for key := range variables {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", variables[key])
	}
	return strings.NewReplacer(pairs...).Replace(string(content)), nil
}

// LoadCourseGenerationPrompt コース生成プロンプトを読み込み
func (p *PromptLoader) LoadCourseGenerationPrompt(goals models.LearningGoals) (string, error) {
	variables := map[string]string{
		"NATIVE_LANGUAGE":   goals.NativeLanguage,
		"TARGET_LANGUAGE":   goals.TargetLanguage,
		"PROFICIENCY_LEVEL": goals.ProficiencyLevel,
		"MOTIVATION":        orNone(goals.Motivation),
		"DAILY_MINUTES":     strconv.Itoa(goals.DailyTimeCommitment),
		"LEARNING_STYLES":   orNone(strings.Join(goals.LearningStyles, ", ")),
		"SCENARIOS":         orNone(strings.Join(goals.Scenarios, ", ")),
	}
	return p.LoadPrompt(CourseGenerationPrompt, variables)
}

// LoadSystemPrompt loads a prompt that takes no variables.
func (p *PromptLoader) LoadSystemPrompt(filename string) (string, error) {
	prompt, err := p.LoadPrompt(filename, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(prompt), nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none specified"
	}
	return s
}

func unique(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
