package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/juju/loggo/v2"
	_ "github.com/mattn/go-sqlite3"
)

var logger = loggo.GetLogger("lingua.config")

type DatabaseConfig struct {
	Driver        string // mysql | sqlite3
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SQLitePath    string
	MigrationsDir string
	MaxRetries    int
	RetryInterval time.Duration
}

func LoadDatabaseConfig() *DatabaseConfig {
	driver := getEnv("DB_DRIVER", "mysql")
	return &DatabaseConfig{
		Driver:        driver,
		Host:          getEnv("DB_HOST", "localhost"),
		Port:          getEnv("DB_PORT", "3306"),
		User:          getEnv("DB_USER", "user"),
		Password:      getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "develop"),
		SQLitePath:    getEnv("DB_PATH", "lingua.db"),
		MigrationsDir: getEnv("DB_MIGRATIONS_DIR", filepath.Join("migrations", driver)),
		MaxRetries:    getEnvInt("DB_MAX_RETRIES", 30),
		RetryInterval: time.Duration(getEnvInt("DB_RETRY_INTERVAL_SECONDS", 2)) * time.Second,
	}
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == "sqlite3" {
		return fmt.Sprintf("file:%s?_foreign_keys=on", c.SQLitePath)
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

func (c *DatabaseConfig) target() string {
	if c.Driver == "sqlite3" {
		return "sqlite3:" + c.SQLitePath
	}
	return fmt.Sprintf("%s@%s:%s/%s", c.User, c.Host, c.Port, c.DBName)
}

func NewDatabase(config *DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect(config.Driver, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	configurePool(db, config.Driver)
	return db, nil
}

func configurePool(db *sqlx.DB, driver string) {
	// 接続プールの設定
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
}

// NewDatabaseWithRetry はリトライ機能付きでデータベースに接続し、マイグレーションを実行します
func NewDatabaseWithRetry(config *DatabaseConfig) (*sqlx.DB, error) {
	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	logger.Infof("📦 connecting to database: %s", config.target())

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		db, err := sqlx.Connect(config.Driver, config.DSN())
		if err == nil {
			configurePool(db, config.Driver)
			logger.Infof("✅ database connected: %s", config.target())

			if migErr := RunMigrationFiles(db, config.MigrationsDir); migErr != nil {
				logger.Warningf("⚠️ migration warning: %v", migErr)
			}
			return db, nil
		}
		lastErr = err

		if i == 0 {
			logger.Infof("⏳ waiting for database (up to %d attempts)", maxRetries)
		}
		if i < maxRetries-1 {
			logger.Debugf("⏳ retry %d/%d: %v", i+1, maxRetries, err)
			time.Sleep(config.RetryInterval)
		}
	}

	return nil, fmt.Errorf("database connection failed after %d attempts: %w", maxRetries, lastErr)
}

// RunMigrationFiles は指定されたディレクトリのマイグレーションファイルを順番に実行します
func RunMigrationFiles(db *sqlx.DB, migrationDir string) error {
	files, err := os.ReadDir(migrationDir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warningf("⚠️ migration directory does not exist: %s", migrationDir)
			return nil
		}
		return fmt.Errorf("failed to read migration directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	if len(sqlFiles) == 0 {
		logger.Warningf("⚠️ no migration files in %s", migrationDir)
		return nil
	}

	for _, filename := range sqlFiles {
		content, err := os.ReadFile(filepath.Join(migrationDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", filename, err)
		}
		logger.Debugf("📄 migration applied: %s", filename)
	}

	logger.Infof("🎉 applied %d migrations", len(sqlFiles))
	return nil
}
