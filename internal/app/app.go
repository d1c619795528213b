package app

import (
	"context"
	"fmt"
	"syscall"

	"github.com/andy/casetrail/internal/activity"
	"github.com/andy/casetrail/internal/config"
	"github.com/andy/casetrail/internal/crypto"
	"github.com/andy/casetrail/internal/db"
	"github.com/andy/casetrail/internal/domain"
	"github.com/andy/casetrail/internal/logging"
	"github.com/andy/casetrail/internal/repository"
	"github.com/andy/casetrail/internal/service"
	"golang.org/x/term"
)

// App is the dependency injection container for all application components
type App struct {
	Config     *config.Config
	ConfigPath string
	DB         *db.DB
	Classes    *domain.ClassRegistry
	Logger     logging.Logger

	// Repositories
	ObjectRepo *repository.ObjectRepo
	ChangeRepo *repository.ChangeRepo

	Assembler *activity.Assembler

	// Services
	ObjectService   service.ObjectService
	ActivityService service.ActivityService
	ImportService   service.ImportService
}

// New creates a new App instance from the config at path (the default
// path when empty). It handles:
// 1. Loading config and setting the log level
// 2. Getting encryption key from keyring
// 3. Opening database
// 4. Running migrations
// 5. Wiring repositories, the timeline assembler and services
func New(ctx context.Context, path string) (*App, error) {
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a, err := NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.ConfigPath = path
	return a, nil
}

// NewWithConfig creates an App with a provided config (useful for testing)
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := logging.SetLogLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	logger := logging.DefaultLogger()

	classes, err := cfg.ClassRegistry()
	if err != nil {
		return nil, fmt.Errorf("invalid class definitions: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	password, err := encryptionKey()
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return wire(cfg, classes, database, logger), nil
}

func wire(cfg *config.Config, classes *domain.ClassRegistry, database *db.DB, logger logging.Logger) *App {
	objectRepo := repository.NewObjectRepo(database)
	changeRepo := repository.NewChangeRepo(database)

	assembler := activity.NewAssembler(
		classes,
		objectRepo,
		changeRepo,
		activity.NewEntryFactory(classes),
		activity.DefaultFormFactory{},
		cfg.History.MaxLength,
		logger.Named("activity"),
	)

	author := service.Author{Login: cfg.User.Login, Name: cfg.User.Name}

	return &App{
		Config:          cfg,
		ConfigPath:      config.DefaultConfigPath(),
		DB:              database,
		Classes:         classes,
		Logger:          logger,
		ObjectRepo:      objectRepo,
		ChangeRepo:      changeRepo,
		Assembler:       assembler,
		ObjectService:   service.NewObjectService(objectRepo, classes, author, logger.Named("objects")),
		ActivityService: service.NewActivityService(objectRepo, assembler),
		ImportService:   service.NewImportService(objectRepo, classes, author, logger.Named("import")),
	}
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	_ = a.Logger.Sync()
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// encryptionKey returns the stored key, prompting for a new one on first run
func encryptionKey() (string, error) {
	keyring := crypto.NewKeyring()

	password, err := keyring.GetKey()
	if err == nil {
		return password, nil
	}

	fmt.Println("Setting up database encryption for the first time...")
	password, err = promptForPassword()
	if err != nil {
		return "", fmt.Errorf("failed to set password: %w", err)
	}

	if err := keyring.SetKey(password); err != nil {
		return "", fmt.Errorf("failed to store encryption key: %w", err)
	}
	return password, nil
}

// promptForPassword prompts user for a new database password (first run)
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your tickets, case logs and change history will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}

// SaveConfig validates and saves the current configuration to the file it
// was loaded from. The running services pick up the new author and history
// length in place, so screens holding them keep working.
func (a *App) SaveConfig() error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if err := logging.SetLogLevel(a.Config.Log.Level); err != nil {
		return err
	}
	if err := a.Config.Save(a.ConfigPath); err != nil {
		return err
	}

	author := service.Author{Login: a.Config.User.Login, Name: a.Config.User.Name}
	a.ObjectService.SetAuthor(author)
	a.ImportService.SetAuthor(author)
	a.Assembler.SetMaxHistoryLength(a.Config.History.MaxLength)
	return nil
}
