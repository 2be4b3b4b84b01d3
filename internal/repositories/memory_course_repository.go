package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

type memoryCourseRepository struct {
	courses    map[int64]*models.Course
	tasks      map[int64][]*models.CourseTask // course_id -> tasks
	nextID     int64
	nextTaskID int64
	mutex      sync.RWMutex
}

func NewMemoryCourseRepository() CourseRepository {
	return &memoryCourseRepository{
		courses:    make(map[int64]*models.Course),
		tasks:      make(map[int64][]*models.CourseTask),
		nextID:     1,
		nextTaskID: 1,
	}
}

func (r *memoryCourseRepository) CreateWithTasks(ctx context.Context, course *models.Course, tasks []*models.CourseTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now()
	}
	course.ID = r.nextID
	r.nextID++

	stored := make([]*models.CourseTask, 0, len(tasks))
	for _, task := range tasks {
		task.ID = r.nextTaskID
		r.nextTaskID++
		task.CourseID = course.ID
		if task.CreatedAt.IsZero() {
			task.CreatedAt = course.CreatedAt
		}
		copied := *task
		stored = append(stored, &copied)
	}

	copied := *course
	r.courses[course.ID] = &copied
	r.tasks[course.ID] = stored
	return nil
}

func (r *memoryCourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	course, exists := r.courses[id]
	if !exists {
		return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	copied := *course
	return &copied, nil
}

func (r *memoryCourseRepository) GetByIDAndUserID(ctx context.Context, id, userID int64) (*models.Course, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	course, exists := r.courses[id]
	if !exists || course.UserID != userID {
		return nil, fmt.Errorf("course %d for user %d: %w", id, userID, ErrNotFound)
	}
	copied := *course
	return &copied, nil
}

func (r *memoryCourseRepository) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Course, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var courses []*models.Course
	for _, course := range r.courses {
		if course.UserID == userID {
			copied := *course
			courses = append(courses, &copied)
		}
	}

	// 作成日時の降順
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].ID > courses[j].ID
		}
		return courses[i].CreatedAt.After(courses[j].CreatedAt)
	})

	if offset >= len(courses) {
		return []*models.Course{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(courses) {
		end = len(courses)
	}
	return courses[offset:end], nil
}

func (r *memoryCourseRepository) GetTasks(ctx context.Context, courseID int64) ([]*models.CourseTask, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	tasks := make([]*models.CourseTask, 0, len(r.tasks[courseID]))
	for _, task := range r.tasks[courseID] {
		copied := *task
		tasks = append(tasks, &copied)
	}
	return tasks, nil
}
