package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/shelfwise/internal/category"
	"github.com/Veraticus/shelfwise/internal/common"
	"github.com/Veraticus/shelfwise/internal/config"
	"github.com/Veraticus/shelfwise/internal/lending"
	"github.com/Veraticus/shelfwise/internal/notify"
	"github.com/Veraticus/shelfwise/internal/pipeline"
	"github.com/Veraticus/shelfwise/internal/sentiment"
	"github.com/Veraticus/shelfwise/internal/storage"
	"github.com/Veraticus/shelfwise/internal/trust"
	"github.com/Veraticus/shelfwise/internal/workflow"
)

func loadSettings() (config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, common.NewUserError("Invalid configuration", err)
	}
	return settings, nil
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, settings config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// components are the loaded read-only collaborators of the pipeline.
type components struct {
	history     *lending.Store
	engine      *trust.Engine
	classifier  *sentiment.Classifier
	categorizer *category.Categorizer
}

func loadTrust(settings config.Settings) (*lending.Store, *trust.Engine, error) {
	history, err := lending.LoadCSV(settings.Lending.HistoryPath)
	if err != nil {
		return nil, nil, common.NewUserError("Could not load lending history from "+settings.Lending.HistoryPath, err)
	}

	cfg := trust.DefaultConfig()
	cfg.FacultyPrefixes = settings.Lending.FacultyPrefixes
	return history, trust.NewWithConfig(history, cfg), nil
}

func loadClassifier(settings config.Settings) (*sentiment.Classifier, error) {
	m, err := sentiment.NewVaderModel(settings.Sentiment.PositiveThreshold)
	if err != nil {
		return nil, common.NewUserError("Could not load sentiment model", err)
	}
	return sentiment.New(m), nil
}

func loadCategorizer(settings config.Settings) (*category.Categorizer, error) {
	c, err := category.NewFromFile(settings.Categories.Path)
	if err != nil {
		return nil, common.NewUserError("Could not load categories from "+settings.Categories.Path, err)
	}
	return c, nil
}

// loadComponents loads everything the pipeline needs. Any failure is fatal.
func loadComponents(settings config.Settings) (*components, error) {
	history, engine, err := loadTrust(settings)
	if err != nil {
		return nil, err
	}
	classifier, err := loadClassifier(settings)
	if err != nil {
		return nil, err
	}
	categorizer, err := loadCategorizer(settings)
	if err != nil {
		return nil, err
	}

	slog.Info("Loaded pipeline components",
		"lending_rows", history.Len(),
		"categories", len(categorizer.Names()))

	return &components{
		history:     history,
		engine:      engine,
		classifier:  classifier,
		categorizer: categorizer,
	}, nil
}

func newMailer(settings config.Settings) (notify.Mailer, error) {
	if !settings.Mail.Enabled {
		return notify.NewLogMailer(nil), nil
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     settings.Mail.Host,
		Port:     settings.Mail.Port,
		Username: settings.Mail.Username,
		Password: settings.Mail.Password,
		From:     settings.Mail.From,
		UseTLS:   settings.Mail.UseTLS,
	})
}

// newWorkflow wires storage, a pipeline and notifications together. Issue
// administration needs no pipeline, so processor may be nil.
func newWorkflow(settings config.Settings, store *storage.SQLiteStorage, processor workflow.Processor) (*workflow.Service, error) {
	mailer, err := newMailer(settings)
	if err != nil {
		return nil, common.NewUserError("Invalid mail configuration", err)
	}
	notifier, err := notify.NewNotifier(mailer, settings.Mail.PortalURL)
	if err != nil {
		return nil, err
	}

	loc, err := settings.Feedback.Location()
	if err != nil {
		return nil, err
	}

	return workflow.New(store, processor, notifier, workflow.Config{
		AllowedDomain: settings.Feedback.AllowedDomain,
		Cooldown:      settings.Feedback.Cooldown,
		DefaultFloor:  settings.Feedback.FloorNo,
		Location:      loc,
	}), nil
}

func (c *components) orchestrator() *pipeline.Orchestrator {
	return pipeline.New(c.engine, c.classifier, c.categorizer)
}
