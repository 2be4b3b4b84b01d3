package repositories

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/KokiWakatsuki/lingua-path/back/internal/models"
)

type memoryUserRepository struct {
	users  map[int64]*models.User
	nextID int64
	mutex  sync.RWMutex
}

// NewMemoryUserRepository creates a user store seeded from csvPath. When the
// file cannot be read a single default learner is created.
func NewMemoryUserRepository(csvPath string) UserRepository {
	repo := &memoryUserRepository{
		users:  make(map[int64]*models.User),
		nextID: 1,
	}
	repo.seedData(csvPath)
	return repo
}

func (r *memoryUserRepository) seedData(csvPath string) {
	users, err := loadUsersFromCSV(csvPath)
	if err != nil {
		logger.Warningf("⚠️ failed to read seed users from %s: %v", csvPath, err)
		logger.Infof("📝 creating default learner instead")
		users = []*models.User{defaultUser()}
	}
	for _, user := range users {
		r.users[user.ID] = user
		if user.ID >= r.nextID {
			r.nextID = user.ID + 1
		}
	}
	logger.Infof("✅ seeded %d users", len(users))
}

func defaultUser() *models.User {
	now := time.Now()
	return &models.User{
		ID:                  1,
		Email:               "learner@example.com",
		NativeLanguage:      "English",
		TargetLanguage:      "French",
		ProficiencyLevel:    "BEGINNER",
		Motivation:          "travel",
		DailyTimeCommitment: 30,
		LearningStyles:      types.JSONText(`["visual","conversational"]`),
		Scenarios:           types.JSONText(`[]`),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// loadUsersFromCSV reads: id,email,native,target,level,motivation,daily_minutes,styles(;-separated),scenarios(;-separated)
func loadUsersFromCSV(csvPath string) ([]*models.User, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 2 { // header + at least one row
		return nil, fmt.Errorf("csv has no data rows")
	}

	var users []*models.User
	now := time.Now()
	for i, record := range records[1:] {
		if len(record) < 9 {
			logger.Warningf("⚠️ row %d: expected 9 columns, got %d", i+2, len(record))
			continue
		}
		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			logger.Warningf("⚠️ row %d: invalid id: %v", i+2, err)
			continue
		}
		daily, err := strconv.Atoi(record[6])
		if err != nil {
			logger.Warningf("⚠️ row %d: invalid daily minutes: %v", i+2, err)
			continue
		}
		users = append(users, &models.User{
			ID:                  id,
			Email:               record[1],
			NativeLanguage:      record[2],
			TargetLanguage:      record[3],
			ProficiencyLevel:    record[4],
			Motivation:          record[5],
			DailyTimeCommitment: daily,
			LearningStyles:      splitList(record[7]),
			Scenarios:           splitList(record[8]),
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no valid rows in csv")
	}
	return users, nil
}

func splitList(s string) types.JSONText {
	items := []string{}
	for _, item := range strings.Split(s, ";") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	data, _ := json.Marshal(items)
	return types.JSONText(data)
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepository) Update(ctx context.Context, user *models.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		return fmt.Errorf("user %d: %w", user.ID, ErrNotFound)
	}
	user.UpdatedAt = time.Now()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}
