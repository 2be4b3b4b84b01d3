package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
	"github.com/KokiWakatsuki/lingua-path/back/internal/repositories"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

const (
	courseTemperature = 0.7
	courseMaxTokens   = 4000

	defaultCourseListLimit = 20
	maxCourseListLimit     = 100
)

// ErrInvalidGoals is returned when the learning goals cannot drive generation.
var ErrInvalidGoals = errors.New("invalid learning goals")

// CourseGeneration is a stored, freshly generated course.
type CourseGeneration struct {
	CourseID int64
	Course   *models.GeneratedCourse
	Provider string
	Model    string
}

type CourseService interface {
	GeneratePersonalizedCourse(ctx context.Context, userID int64, goals models.LearningGoals) (*CourseGeneration, error)
	// GenerateCourseForUser uses the stored goals of the user. Non-empty
	// fields of overrides replace the stored values.
	GenerateCourseForUser(ctx context.Context, userID int64, overrides *models.LearningGoals) (*CourseGeneration, error)
	GetCourse(ctx context.Context, userID, courseID int64) (*models.Course, []*models.CourseTask, error)
	ListCourses(ctx context.Context, userID int64, limit, offset int) ([]*models.Course, error)
}

type courseService struct {
	orchestrator AIOrchestrator
	courseRepo   repositories.CourseRepository
	userRepo     repositories.UserRepository
	prompts      *utils.PromptLoader
	validate     *validator.Validate
	metrics      *Collector
}

func NewCourseService(
	orchestrator AIOrchestrator,
	courseRepo repositories.CourseRepository,
	userRepo repositories.UserRepository,
	prompts *utils.PromptLoader,
	metrics *Collector,
) CourseService {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &courseService{
		orchestrator: orchestrator,
		courseRepo:   courseRepo,
		userRepo:     userRepo,
		prompts:      prompts,
		validate:     validate,
		metrics:      metrics,
	}
}

func (s *courseService) GenerateCourseForUser(ctx context.Context, userID int64, overrides *models.LearningGoals) (*CourseGeneration, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	goals := user.Goals()
	if overrides != nil {
		mergeGoals(&goals, overrides)
	}
	return s.GeneratePersonalizedCourse(ctx, userID, goals)
}

func mergeGoals(goals *models.LearningGoals, overrides *models.LearningGoals) {
	if overrides.NativeLanguage != "" {
		goals.NativeLanguage = overrides.NativeLanguage
	}
	if overrides.TargetLanguage != "" {
		goals.TargetLanguage = overrides.TargetLanguage
	}
	if overrides.ProficiencyLevel != "" {
		goals.ProficiencyLevel = overrides.ProficiencyLevel
	}
	if overrides.Motivation != "" {
		goals.Motivation = overrides.Motivation
	}
	if overrides.DailyTimeCommitment != 0 {
		goals.DailyTimeCommitment = overrides.DailyTimeCommitment
	}
	if len(overrides.LearningStyles) > 0 {
		goals.LearningStyles = overrides.LearningStyles
	}
	if len(overrides.Scenarios) > 0 {
		goals.Scenarios = overrides.Scenarios
	}
}

func (s *courseService) GeneratePersonalizedCourse(ctx context.Context, userID int64, goals models.LearningGoals) (*CourseGeneration, error) {
	if err := s.validate.Struct(goals); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoals, err)
	}

	logger.Infof("📚 generating %s course for user %d (%s, %d min/day)",
		goals.TargetLanguage, userID, goals.ProficiencyLevel, goals.DailyTimeCommitment)

	// 1. プロンプト作成
	prompt, err := s.prompts.LoadCourseGenerationPrompt(goals)
	if err != nil {
		return nil, fmt.Errorf("failed to build course prompt: %w", err)
	}
	systemPrompt, err := s.prompts.LoadSystemPrompt(utils.CurriculumDesignerSystem)
	if err != nil {
		return nil, fmt.Errorf("failed to build system prompt: %w", err)
	}

	// 2. AI 呼び出し
	resp, err := s.orchestrator.ProcessRequest(ctx, models.AIRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		MaxTokens:    courseMaxTokens,
		Temperature:  courseTemperature,
		UserID:       userID,
		Kind:         models.RequestKindCourseGeneration,
	})
	if err != nil {
		s.metrics.recordCourse("ai_error")
		return nil, err
	}

	// 3. 解析と検証
	course, err := parseCourse(resp.Content)
	if err != nil {
		s.metrics.recordCourse("parse_error")
		logger.Warningf("⚠️ %s returned an unparsable course: %v", resp.Provider, err)
		return nil, err
	}
	if err := s.validateCourse(course); err != nil {
		s.metrics.recordCourse("validation_error")
		logger.Warningf("⚠️ %s returned an invalid course: %v", resp.Provider, err)
		return nil, err
	}

	// 4. 集計値
	deriveTotals(course, goals.DailyTimeCommitment)
	normalizeTaskTypes(course)

	// 5. 保存
	record, tasks, err := buildRecords(userID, goals, course, resp)
	if err != nil {
		s.metrics.recordCourse("persist_error")
		return nil, &PersistenceError{Err: err}
	}
	if err := s.courseRepo.CreateWithTasks(ctx, record, tasks); err != nil {
		s.metrics.recordCourse("persist_error")
		logger.Errorf("❌ failed to store course for user %d: %v", userID, err)
		return nil, &PersistenceError{Err: err}
	}

	s.metrics.recordCourse("success")
	logger.Infof("✅ course %d %q stored: %d modules, %d lessons, %d weeks",
		record.ID, course.CourseName, len(course.Modules), course.TotalLessons, course.EstimatedDurationWeeks)

	return &CourseGeneration{
		CourseID: record.ID,
		Course:   course,
		Provider: resp.Provider,
		Model:    resp.Model,
	}, nil
}

// parseCourse decodes the provider output, tolerating a surrounding
// markdown code fence.
func parseCourse(content string) (*models.GeneratedCourse, error) {
	var course models.GeneratedCourse
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &course); err != nil {
		return nil, &GenerationError{Stage: StageParse, Reason: "invalid JSON", Err: err}
	}
	return &course, nil
}

func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	// 先頭行 (```json など) を落とす
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func (s *courseService) validateCourse(course *models.GeneratedCourse) error {
	var problems []string
	if strings.TrimSpace(course.CourseName) == "" {
		problems = append(problems, "course name is missing")
	}
	if course.LearningObjectives == nil {
		problems = append(problems, "learning objectives are missing")
	}
	if len(course.Modules) == 0 {
		problems = append(problems, "course has no modules")
	}

	for i, module := range course.Modules {
		if len(module.Tasks) == 0 {
			problems = append(problems, fmt.Sprintf("module %d has no tasks", i+1))
			continue
		}
		for j, task := range module.Tasks {
			if err := s.validate.Struct(task); err != nil {
				problems = append(problems, taskProblems(i+1, j+1, err)...)
			}
		}
	}

	if len(problems) > 0 {
		return &GenerationError{Stage: StageValidation, Reason: strings.Join(problems, "; ")}
	}
	return nil
}

func taskProblems(module, task int, err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{fmt.Sprintf("module %d task %d: %v", module, task, err)}
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		var msg string
		switch {
		case fe.Tag() == "required":
			msg = fe.Field() + " is missing"
		case fe.Field() == "difficultyLevel":
			msg = fmt.Sprintf("difficulty %v is outside 1..10", fe.Value())
		default:
			msg = fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		problems = append(problems, fmt.Sprintf("module %d task %d: %s", module, task, msg))
	}
	return problems
}

// deriveTotals overwrites whatever totals the provider claimed.
func deriveTotals(course *models.GeneratedCourse, dailyMinutes int) {
	lessons, minutes := 0, 0
	for _, module := range course.Modules {
		lessons += len(module.Tasks)
		minutes += module.EstimatedDuration
	}
	course.TotalLessons = lessons

	perWeek := dailyMinutes * 7
	if perWeek <= 0 {
		course.EstimatedDurationWeeks = 0
		return
	}
	course.EstimatedDurationWeeks = (minutes + perWeek - 1) / perWeek
}

func normalizeTaskTypes(course *models.GeneratedCourse) {
	for i := range course.Modules {
		for j := range course.Modules[i].Tasks {
			task := &course.Modules[i].Tasks[j]
			normalized, known := NormalizeTaskType(task.TaskType)
			if !known {
				logger.Warningf("⚠️ unknown task type %q in module %d task %d, using %s",
					task.TaskType, i+1, j+1, normalized)
			}
			task.TaskType = string(normalized)
		}
	}
}

func buildRecords(userID int64, goals models.LearningGoals, course *models.GeneratedCourse, resp *models.AIResponse) (*models.Course, []*models.CourseTask, error) {
	structure, err := json.Marshal(course.Modules)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode course structure: %w", err)
	}
	objectives, err := json.Marshal(course.LearningObjectives)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode learning objectives: %w", err)
	}

	record := &models.Course{
		UserID:                 userID,
		Name:                   course.CourseName,
		NativeLanguage:         goals.NativeLanguage,
		TargetLanguage:         goals.TargetLanguage,
		ProficiencyLevel:       goals.ProficiencyLevel,
		Structure:              types.JSONText(structure),
		LearningObjectives:     types.JSONText(objectives),
		CulturalContext:        course.CulturalContext,
		TotalLessons:           course.TotalLessons,
		EstimatedDurationWeeks: course.EstimatedDurationWeeks,
		AIProvider:             resp.Provider,
		AIModel:                resp.Model,
	}

	var tasks []*models.CourseTask
	order := 0
	for i, module := range course.Modules {
		moduleID := module.ID
		if moduleID == "" {
			moduleID = fmt.Sprintf("module_%d", i+1)
		}
		for _, task := range module.Tasks {
			order++
			row := &models.CourseTask{
				ModuleID:          moduleID,
				Name:              task.Name,
				TaskType:          models.TaskType(task.TaskType),
				DifficultyLevel:   task.DifficultyLevel,
				EstimatedDuration: task.EstimatedDuration,
				OrderIndex:        order,
			}
			if row.Content, err = jsonText(task.Content); err != nil {
				return nil, nil, err
			}
			if row.ScoringCriteria, err = jsonText(task.ScoringCriteria); err != nil {
				return nil, nil, err
			}
			if row.Objectives, err = jsonText(nonNil(task.Objectives)); err != nil {
				return nil, nil, err
			}
			if row.Prerequisites, err = jsonText(nonNil(task.Prerequisites)); err != nil {
				return nil, nil, err
			}
			tasks = append(tasks, row)
		}
	}
	return record, tasks, nil
}

func jsonText(v interface{}) (types.JSONText, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task field: %w", err)
	}
	return types.JSONText(data), nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func (s *courseService) GetCourse(ctx context.Context, userID, courseID int64) (*models.Course, []*models.CourseTask, error) {
	course, err := s.courseRepo.GetByIDAndUserID(ctx, courseID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get course: %w", err)
	}
	tasks, err := s.courseRepo.GetTasks(ctx, course.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get course tasks: %w", err)
	}
	return course, tasks, nil
}

func (s *courseService) ListCourses(ctx context.Context, userID int64, limit, offset int) ([]*models.Course, error) {
	switch {
	case limit <= 0:
		limit = defaultCourseListLimit
	case limit > maxCourseListLimit:
		limit = maxCourseListLimit
	}
	if offset < 0 {
		offset = 0
	}
	courses, err := s.courseRepo.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}
