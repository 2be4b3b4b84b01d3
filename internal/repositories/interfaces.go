package repositories

import (
	"context"
	"errors"

	"github.com/juju/loggo/v2"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

var logger = loggo.GetLogger("lingua.repositories")

var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
}

type CourseRepository interface {
	// CreateWithTasks stores the course header and all of its tasks as one
	// unit: either everything is written or nothing is.
	CreateWithTasks(ctx context.Context, course *models.Course, tasks []*models.CourseTask) error
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	GetByIDAndUserID(ctx context.Context, id, userID int64) (*models.Course, error)
	GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*models.Course, error)
	GetTasks(ctx context.Context, courseID int64) ([]*models.CourseTask, error)
}

type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.AIInteraction) error
	UsageByUser(ctx context.Context, userID int64) (*models.UsageSummary, error)
}
