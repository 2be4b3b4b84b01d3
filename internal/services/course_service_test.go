package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
	"github.com/KokiWakatsuki/lingua-path/back/internal/repositories"
	"github.com/KokiWakatsuki/lingua-path/back/internal/utils"
)

const frenchCourse = `{
  "courseName": "French for Travellers",
  "modules": [
    {
      "id": "module_1",
      "name": "Greetings",
      "order": 1,
      "estimatedDuration": 120,
      "objectives": ["greet people"],
      "tasks": [
        {"name": "Hello words", "taskType": "vocabulary", "difficultyLevel": 1, "estimatedDuration": 15,
         "content": {"instructions": "Learn the words", "materials": ["list"]},
         "scoringCriteria": {"maxScore": 100, "criteria": [{"aspect": "accuracy", "weight": 1, "description": "correct"}]},
         "objectives": ["bonjour"]},
        {"name": "Polite forms", "taskType": "Grammar", "difficultyLevel": 2, "estimatedDuration": 20,
         "content": {"instructions": "tu vs vous", "materials": []},
         "scoringCriteria": {"maxScore": 100, "criteria": []}},
        {"name": "Introduce yourself", "taskType": "Speak", "difficultyLevel": 3, "estimatedDuration": 20,
         "content": {"instructions": "Say your name", "materials": []},
         "scoringCriteria": {"maxScore": 100, "criteria": []}}
      ]
    },
    {
      "id": "module_2",
      "name": "At the cafe",
      "order": 2,
      "estimatedDuration": 300,
      "objectives": ["order food"],
      "tasks": [
        {"name": "Menu words", "taskType": "vocabulary", "difficultyLevel": 2, "estimatedDuration": 15,
         "content": {"instructions": "Read the menu", "materials": []},
         "scoringCriteria": {"maxScore": 100, "criteria": []}},
        {"name": "Ordering", "taskType": "role-play", "difficultyLevel": 4, "estimatedDuration": 25,
         "content": {"instructions": "Order a coffee", "materials": []},
         "scoringCriteria": {"maxScore": 100, "criteria": []},
         "prerequisites": ["Menu words"]}
      ]
    }
  ],
  "learningObjectives": {"shortTerm": ["order food"], "longTerm": ["travel alone"], "skillTargets": {"speaking": 0.6}},
  "culturalContext": "Cafe etiquette in Paris",
  "totalLessons": 99,
  "estimatedDurationWeeks": 99
}`

func frenchGoals() models.LearningGoals {
	return models.LearningGoals{
		NativeLanguage:      "English",
		TargetLanguage:      "French",
		ProficiencyLevel:    "BEGINNER",
		Motivation:          "travel",
		DailyTimeCommitment: 30,
		LearningStyles:      []string{"conversational"},
	}
}

type courseFixture struct {
	service  CourseService
	courses  repositories.CourseRepository
	provider *fakeProvider
}

func newCourseFixture(c *qt.C, provider *fakeProvider) *courseFixture {
	courses := repositories.NewMemoryCourseRepository()
	users := repositories.NewMemoryUserRepository(filepath.Join(c.TempDir(), "none.csv"))
	o := NewAIOrchestrator(OrchestratorDeps{Providers: providerList(provider)}, OrchestratorConfig{})
	return &courseFixture{
		service:  NewCourseService(o, courses, users, utils.NewPromptLoader(""), NewMetricsCollector(nil)),
		courses:  courses,
		provider: provider,
	}
}

func TestGeneratePersonalizedCourse(t *testing.T) {
	c := qt.New(t)
	f := newCourseFixture(c, answering("openai", frenchCourse))
	ctx := context.Background()

	result, err := f.service.GeneratePersonalizedCourse(ctx, 1, frenchGoals())
	c.Assert(err, qt.IsNil)
	c.Assert(result.CourseID, qt.Not(qt.Equals), int64(0))
	c.Assert(result.Provider, qt.Equals, "openai")

	course := result.Course
	c.Assert(course.CourseName, qt.Equals, "French for Travellers")
	c.Assert(course.Modules, qt.HasLen, 2)
	c.Assert(course.TotalLessons, qt.Equals, 5)
	// (120 + 300) minutes at 30 minutes a day, 210 a week
	c.Assert(course.EstimatedDurationWeeks, qt.Equals, 2)
	c.Assert(course.Modules[0].Tasks[2].TaskType, qt.Equals, "conversation")

	req := f.provider.lastRequest()
	c.Assert(req.Kind, qt.Equals, models.RequestKindCourseGeneration)
	c.Assert(req.Temperature, qt.Equals, 0.7)
	c.Assert(req.MaxTokens, qt.Equals, 4000)
	c.Assert(req.Prompt, qt.Contains, "Target language: French")
	c.Assert(req.SystemPrompt, qt.Not(qt.Equals), "")

	stored, err := f.courses.GetByIDAndUserID(ctx, result.CourseID, 1)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.TotalLessons, qt.Equals, 5)
	c.Assert(stored.EstimatedDurationWeeks, qt.Equals, 2)
	c.Assert(stored.AIProvider, qt.Equals, "openai")
	c.Assert(stored.AIModel, qt.Equals, "openai-model")
	c.Assert(stored.TargetLanguage, qt.Equals, "French")

	tasks, err := f.courses.GetTasks(ctx, result.CourseID)
	c.Assert(err, qt.IsNil)
	c.Assert(tasks, qt.HasLen, 5)

	var difficulties []int
	var taskTypes []models.TaskType
	for i, task := range tasks {
		c.Assert(task.OrderIndex, qt.Equals, i+1)
		difficulties = append(difficulties, task.DifficultyLevel)
		taskTypes = append(taskTypes, task.TaskType)
	}
	c.Assert(difficulties, qt.DeepEquals, []int{1, 2, 3, 2, 4})
	c.Assert(taskTypes, qt.DeepEquals, []models.TaskType{
		models.TaskTypeVocabulary, models.TaskTypeGrammar, models.TaskTypeConversation,
		models.TaskTypeVocabulary, models.TaskTypeConversation,
	})
	c.Assert(tasks[0].ModuleID, qt.Equals, "module_1")
	c.Assert(tasks[4].ModuleID, qt.Equals, "module_2")

	var prerequisites []string
	c.Assert(json.Unmarshal(tasks[4].Prerequisites, &prerequisites), qt.IsNil)
	c.Assert(prerequisites, qt.DeepEquals, []string{"Menu words"})
	c.Assert(string(tasks[0].Prerequisites), qt.Equals, "[]")
}

func TestGeneratePersonalizedCourseAcceptsCodeFence(t *testing.T) {
	c := qt.New(t)
	f := newCourseFixture(c, answering("claude", "```json\n"+frenchCourse+"\n```"))

	result, err := f.service.GeneratePersonalizedCourse(context.Background(), 1, frenchGoals())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Course.TotalLessons, qt.Equals, 5)
}

func TestGeneratePersonalizedCourseParseError(t *testing.T) {
	c := qt.New(t)
	f := newCourseFixture(c, answering("openai", "Sure! Here is your course: {"))

	_, err := f.service.GeneratePersonalizedCourse(context.Background(), 1, frenchGoals())
	c.Assert(err, qt.ErrorIs, ErrGenerationParse)

	var genErr *GenerationError
	c.Assert(errors.As(err, &genErr), qt.IsTrue)
	c.Assert(genErr.Stage, qt.Equals, StageParse)

	var syntaxErr *json.SyntaxError
	c.Assert(errors.As(err, &syntaxErr), qt.IsTrue)

	courses, err := f.courses.GetByUserID(context.Background(), 1, 10, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(courses, qt.HasLen, 0)
}

func TestGeneratePersonalizedCourseValidation(t *testing.T) {
	tests := []struct {
		about   string
		content string
		expect  string
	}{{
		about:   "no modules",
		content: `{"courseName": "x", "modules": [], "learningObjectives": {}}`,
		expect:  `.*course has no modules.*`,
	}, {
		about:   "missing name and objectives",
		content: `{"modules": [{"name": "m", "tasks": [{"name": "t", "taskType": "grammar", "difficultyLevel": 1}]}]}`,
		expect:  `.*course name is missing; learning objectives are missing.*`,
	}, {
		about: "module without tasks",
		content: `{"courseName": "x", "learningObjectives": {}, "modules": [
			{"name": "a", "tasks": [{"name": "t", "taskType": "grammar", "difficultyLevel": 1}]},
			{"name": "b", "tasks": []}]}`,
		expect: `.*module 2 has no tasks.*`,
	}, {
		about: "difficulty out of range",
		content: `{"courseName": "x", "learningObjectives": {}, "modules": [
			{"name": "a", "tasks": [{"name": "t", "taskType": "grammar", "difficultyLevel": 1},
			                        {"name": "u", "taskType": "grammar", "difficultyLevel": 11}]}]}`,
		expect: `.*module 1 task 2: difficulty 11 is outside 1\.\.10.*`,
	}, {
		about: "task missing name",
		content: `{"courseName": "x", "learningObjectives": {}, "modules": [
			{"name": "a", "tasks": [{"difficultyLevel": 0}]}]}`,
		expect: `.*module 1 task 1: name is missing; module 1 task 1: difficulty 0 is outside 1\.\.10.*`,
	}}

	for _, test := range tests {
		t.Run(test.about, func(t *testing.T) {
			c := qt.New(t)
			f := newCourseFixture(c, answering("openai", test.content))

			_, err := f.service.GeneratePersonalizedCourse(context.Background(), 1, frenchGoals())
			c.Assert(err, qt.ErrorIs, ErrGenerationValidation)
			c.Assert(err, qt.ErrorMatches, test.expect)

			courses, err := f.courses.GetByUserID(context.Background(), 1, 10, 0)
			c.Assert(err, qt.IsNil)
			c.Assert(courses, qt.HasLen, 0)
		})
	}
}

func TestGeneratePersonalizedCourseInvalidGoals(t *testing.T) {
	c := qt.New(t)
	f := newCourseFixture(c, answering("openai", frenchCourse))

	goals := frenchGoals()
	goals.DailyTimeCommitment = 0
	_, err := f.service.GeneratePersonalizedCourse(context.Background(), 1, goals)
	c.Assert(err, qt.ErrorIs, ErrInvalidGoals)
	c.Assert(f.provider.calls(), qt.Equals, 0)
}

func TestGeneratePersonalizedCourseUnknownTaskType(t *testing.T) {
	c := qt.New(t)
	content := `{"courseName": "x", "learningObjectives": {}, "modules": [
		{"name": "a", "estimatedDuration": 10, "tasks": [{"name": "t", "taskType": "interpretive dance", "difficultyLevel": 5}]}]}`
	f := newCourseFixture(c, answering("openai", content))

	result, err := f.service.GeneratePersonalizedCourse(context.Background(), 1, frenchGoals())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Course.Modules[0].Tasks[0].TaskType, qt.Equals, "vocabulary")
	c.Assert(result.Course.EstimatedDurationWeeks, qt.Equals, 1)

	tasks, err := f.courses.GetTasks(context.Background(), result.CourseID)
	c.Assert(err, qt.IsNil)
	c.Assert(tasks[0].TaskType, qt.Equals, models.TaskTypeVocabulary)
	c.Assert(tasks[0].ModuleID, qt.Equals, "module_1")
}

func TestGeneratePersonalizedCourseMissingTaskType(t *testing.T) {
	c := qt.New(t)
	content := `{"courseName": "x", "learningObjectives": {}, "modules": [
		{"name": "a", "estimatedDuration": 20, "tasks": [
			{"name": "empty", "taskType": "", "difficultyLevel": 2},
			{"name": "absent", "difficultyLevel": 3}]}]}`
	f := newCourseFixture(c, answering("openai", content))

	result, err := f.service.GeneratePersonalizedCourse(context.Background(), 1, frenchGoals())
	c.Assert(err, qt.IsNil)
	c.Assert(result.Course.TotalLessons, qt.Equals, 2)

	tasks, err := f.courses.GetTasks(context.Background(), result.CourseID)
	c.Assert(err, qt.IsNil)
	c.Assert(tasks, qt.HasLen, 2)
	for _, task := range tasks {
		c.Assert(task.TaskType, qt.Equals, models.TaskTypeVocabulary, qt.Commentf("%s", task.Name))
	}
}

func TestGeneratePersonalizedCourseProviderFailure(t *testing.T) {
	c := qt.New(t)
	f := newCourseFixture(c, failing("openai", http.StatusServiceUnavailable))

	_, err := f.service.GeneratePersonalizedCourse(context.Background(), 1, frenchGoals())
	var failed *AllProvidersFailedError
	c.Assert(errors.As(err, &failed), qt.IsTrue)
}

func TestGeneratePersonalizedCoursePersistenceFailure(t *testing.T) {
	c := qt.New(t)
	o := NewAIOrchestrator(OrchestratorDeps{Providers: providerList(answering("openai", frenchCourse))}, OrchestratorConfig{})
	users := repositories.NewMemoryUserRepository(filepath.Join(c.TempDir(), "none.csv"))
	service := NewCourseService(o, failingCourseRepo{}, users, utils.NewPromptLoader(""), nil)

	_, err := service.GeneratePersonalizedCourse(context.Background(), 1, frenchGoals())
	var perr *PersistenceError
	c.Assert(errors.As(err, &perr), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `failed to persist course: disk full`)
}

func TestGenerateCourseForUserUsesStoredGoals(t *testing.T) {
	c := qt.New(t)
	f := newCourseFixture(c, answering("openai", frenchCourse))

	// the default learner studies French for 30 minutes a day
	_, err := f.service.GenerateCourseForUser(context.Background(), 1, nil)
	c.Assert(err, qt.IsNil)
	c.Assert(f.provider.lastRequest().Prompt, qt.Contains, "Target language: French")
	c.Assert(f.provider.lastRequest().UserID, qt.Equals, int64(1))

	_, err = f.service.GenerateCourseForUser(context.Background(), 1, &models.LearningGoals{
		TargetLanguage:      "Spanish",
		DailyTimeCommitment: 60,
	})
	c.Assert(err, qt.IsNil)
	prompt := f.provider.lastRequest().Prompt
	c.Assert(prompt, qt.Contains, "Target language: Spanish")
	c.Assert(prompt, qt.Contains, "Daily study time: 60 minutes")
	c.Assert(prompt, qt.Contains, "Native language: English")

	_, err = f.service.GenerateCourseForUser(context.Background(), 42, nil)
	c.Assert(err, qt.ErrorIs, repositories.ErrNotFound)
}

func TestGetCourseChecksOwnership(t *testing.T) {
	c := qt.New(t)
	f := newCourseFixture(c, answering("openai", frenchCourse))
	ctx := context.Background()

	result, err := f.service.GeneratePersonalizedCourse(ctx, 1, frenchGoals())
	c.Assert(err, qt.IsNil)

	course, tasks, err := f.service.GetCourse(ctx, 1, result.CourseID)
	c.Assert(err, qt.IsNil)
	c.Assert(course.Name, qt.Equals, "French for Travellers")
	c.Assert(tasks, qt.HasLen, 5)

	_, _, err = f.service.GetCourse(ctx, 2, result.CourseID)
	c.Assert(err, qt.ErrorIs, repositories.ErrNotFound)

	courses, err := f.service.ListCourses(ctx, 1, 0, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(courses, qt.HasLen, 1)
}

func TestNormalizeTaskType(t *testing.T) {
	c := qt.New(t)
	tests := []struct {
		raw   string
		want  models.TaskType
		known bool
	}{
		{"vocabulary", models.TaskTypeVocabulary, true},
		{"Speak", models.TaskTypeConversation, true},
		{"  SPEAKING ", models.TaskTypeConversation, true},
		{"role play", models.TaskTypeConversation, true},
		{"Listening", models.TaskTypeListening, true},
		{"culture", models.TaskTypeCultural, true},
		{"phonetics", models.TaskTypePronunciation, true},
		{"essay_writing", models.TaskTypeVocabulary, false},
		{"", models.TaskTypeVocabulary, false},
	}
	for _, test := range tests {
		got, known := NormalizeTaskType(test.raw)
		c.Check(got, qt.Equals, test.want, qt.Commentf("%q", test.raw))
		c.Check(known, qt.Equals, test.known, qt.Commentf("%q", test.raw))
	}
}

func TestStripCodeFence(t *testing.T) {
	c := qt.New(t)
	c.Assert(stripCodeFence("```json\n{\"a\":1}\n```"), qt.Equals, `{"a":1}`)
	c.Assert(stripCodeFence("```\n{}\n```\n"), qt.Equals, `{}`)
	c.Assert(stripCodeFence("  {}  "), qt.Equals, `{}`)
}

func TestDeriveTotals(t *testing.T) {
	c := qt.New(t)
	course := &models.GeneratedCourse{Modules: []models.GeneratedModule{
		{EstimatedDuration: 200, Tasks: make([]models.GeneratedTask, 3)},
		{EstimatedDuration: 11, Tasks: make([]models.GeneratedTask, 1)},
	}}

	deriveTotals(course, 30)
	c.Assert(course.TotalLessons, qt.Equals, 4)
	c.Assert(course.EstimatedDurationWeeks, qt.Equals, 2)

	deriveTotals(course, 0)
	c.Assert(course.EstimatedDurationWeeks, qt.Equals, 0)
}
