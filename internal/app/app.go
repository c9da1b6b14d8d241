package app

import (
	"context"
	"rentflow/config"
	"rentflow/internal/controllers"
	"rentflow/internal/database"
	"rentflow/internal/events"
	"rentflow/internal/handlers/middleware"
	"rentflow/internal/jobs"
	"rentflow/internal/repositories"
	"rentflow/internal/services"
	"rentflow/pkg/logger"
)

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	EventBus    *events.EventBus
	Config      config.Config
	Repos       repositories.Repository
	Services    services.Service
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events)
	audit := events.Audit(logger.New("notifications"))
	for _, channel := range []events.Channel{events.INSPECTION_CHANNEL, events.AMENDMENT_CHANNEL} {
		if err := eventBus.Subscribe(channel, audit); err != nil {
			return &App{}, log.Err("failed to subscribe to channel", err, "channel", channel)
		}
	}
	repos := repositories.New(db)

	service, err := services.New(db, config, repos, eventBus)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	controllers := controllers.New(service, repos, eventBus)
	middleware := middleware.New(db, config, repos)

	if err := jobs.RegisterAllJobs(service.Scheduler, config, service); err != nil {
		return &App{}, log.Err("failed to register jobs", err)
	}
	if config.SchedulerEnabled {
		if err := service.Scheduler.Start(context.Background()); err != nil {
			return &App{}, log.Err("failed to start scheduler", err)
		}
		if err := jobs.RunStartupJobs(context.Background(), service.Scheduler); err != nil {
			log.Warn("startup export retry failed", "error", err)
		}
	}

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware,
		EventBus:    eventBus,
		Repos:       repos,
		Services:    service,
		Controllers: controllers,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []any{
		a.EventBus,
		a.Services.Transaction,
		a.Services.SigningLink,
		a.Services.Export,
		a.Services.Scheduler,
		a.Controllers.Inspection,
		a.Controllers.Signing,
		a.Controllers.Amendment,
		a.Repos.User,
		a.Repos.Inspection,
		a.Repos.Amendment,
	}

	for _, check := range nilChecks {
		if check == nil {
			return log.ErrMsg("nil check failed")
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
