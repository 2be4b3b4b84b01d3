package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

const courseColumns = `id, user_id, name, native_language, target_language, proficiency_level,
	structure, learning_objectives, cultural_context, total_lessons, estimated_duration_weeks,
	ai_provider, ai_model, created_at`

const taskColumns = `id, course_id, module_id, name, task_type, difficulty_level, estimated_duration,
	content, scoring_criteria, objectives, prerequisites, order_index, created_at`

// MySQLCourseRepository works against any sqlx driver using "?" bind vars,
// so the same code serves MySQL in production and SQLite in tests.
type MySQLCourseRepository struct {
	db *sqlx.DB
}

func NewMySQLCourseRepository(db *sqlx.DB) CourseRepository {
	return &MySQLCourseRepository{db: db}
}

func (r *MySQLCourseRepository) CreateWithTasks(ctx context.Context, course *models.Course, tasks []*models.CourseTask) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Errorf("❌ rollback failed: %v", rbErr)
			}
		}
	}()

	now := time.Now()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}

	courseQuery := `
		INSERT INTO courses (user_id, name, native_language, target_language, proficiency_level,
			structure, learning_objectives, cultural_context, total_lessons, estimated_duration_weeks,
			ai_provider, ai_model, created_at)
		VALUES (:user_id, :name, :native_language, :target_language, :proficiency_level,
			:structure, :learning_objectives, :cultural_context, :total_lessons, :estimated_duration_weeks,
			:ai_provider, :ai_model, :created_at)
	`
	result, err := tx.NamedExecContext(ctx, courseQuery, course)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	courseID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get course id: %w", err)
	}

	taskQuery := `
		INSERT INTO course_tasks (course_id, module_id, name, task_type, difficulty_level,
			estimated_duration, content, scoring_criteria, objectives, prerequisites, order_index, created_at)
		VALUES (:course_id, :module_id, :name, :task_type, :difficulty_level,
			:estimated_duration, :content, :scoring_criteria, :objectives, :prerequisites, :order_index, :created_at)
	`
	taskIDs := make([]int64, len(tasks))
	for i, task := range tasks {
		row := *task
		row.CourseID = courseID
		if row.CreatedAt.IsZero() {
			row.CreatedAt = course.CreatedAt
		}
		res, err := tx.NamedExecContext(ctx, taskQuery, &row)
		if err != nil {
			return fmt.Errorf("failed to insert task %d: %w", task.OrderIndex, err)
		}
		if taskIDs[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get task id: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit course: %w", err)
	}

	// IDs are only handed back once the whole unit is durable.
	course.ID = courseID
	for i, task := range tasks {
		task.ID = taskIDs[i]
		task.CourseID = courseID
		if task.CreatedAt.IsZero() {
			task.CreatedAt = course.CreatedAt
		}
	}
	return nil
}

func (r *MySQLCourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	course := &models.Course{}
	err := r.db.GetContext(ctx, course, `SELECT `+courseColumns+` FROM courses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (r *MySQLCourseRepository) GetByIDAndUserID(ctx context.Context, id, userID int64) (*models.Course, error) {
	course := &models.Course{}
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = ? AND user_id = ?`
	err := r.db.GetContext(ctx, course, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("course %d for user %d: %w", id, userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func (r *MySQLCourseRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	var courses []*models.Course
	if err := r.db.SelectContext(ctx, &courses, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (r *MySQLCourseRepository) GetTasks(ctx context.Context, courseID int64) ([]*models.CourseTask, error) {
	query := `SELECT ` + taskColumns + ` FROM course_tasks WHERE course_id = ? ORDER BY order_index ASC`
	var tasks []*models.CourseTask
	if err := r.db.SelectContext(ctx, &tasks, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to list course tasks: %w", err)
	}
	return tasks, nil
}
