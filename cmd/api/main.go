package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"todoapp/internal/authz"
	"todoapp/internal/config"
	"todoapp/internal/domain/model"
	"todoapp/internal/infra/db"
	"todoapp/internal/infra/memory"
	infraRepo "todoapp/internal/infra/repository"
	"todoapp/internal/repository"
	"todoapp/internal/server"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	//.envは任意（なければ環境変数だけで動く）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("load .env")
	}

	app := &cli.App{
		Name:  "api",
		Usage: "role-based todo API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server",
				Action: func(c *cli.Context) error { return serve(c.Context, log) },
			},
			{
				Name:   "migrate",
				Usage:  "run database migrations and exit",
				Action: func(c *cli.Context) error { return migrate(log) },
			},
			{
				Name:  "set-role",
				Usage: "write a user's role directly (no hierarchy check)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Required: true},
				},
				Action: func(c *cli.Context) error {
					return setRole(c.Context, log, c.String("email"), model.Role(c.String("role")))
				},
			},
		},
		// サブコマンドなしは serve
		Action: func(c *cli.Context) error { return serve(c.Context, log) },
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("api exited")
	}
}

// 設定・ロガー・ロールテーブルを読む
func bootstrap(log *logrus.Logger) (config.Config, *authz.Table, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	log.SetLevel(level)

	roles, err := authz.Load(cfg.RoleTablePath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load role table: %w", err)
	}
	return cfg, roles, nil
}

// STORE_DRIVER に応じてRepositoryを作る
func openStore(cfg config.Config, log logrus.FieldLogger) (repository.UserRepository, repository.TodoRepository, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on exit")
		store := memory.NewStore()
		return store.Users(), store.Todos(), func() {}, nil
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		closeDB(gdb, log)
		return nil, nil, nil, err
	}
	return infraRepo.NewUserGormRepository(gdb), infraRepo.NewTodoGormRepository(gdb), func() { closeDB(gdb, log) }, nil
}

func closeDB(gdb *gorm.DB, log logrus.FieldLogger) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Warn("close database")
	}
}

func serve(ctx context.Context, log *logrus.Logger) error {
	cfg, roles, err := bootstrap(log)
	if err != nil {
		return err
	}

	users, todos, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	e := server.New(server.Deps{
		Config: cfg,
		Log:    log,
		Roles:  roles,
		Users:  users,
		Todos:  todos,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx, e, cfg.Addr(), log)
}

func migrate(log *logrus.Logger) error {
	cfg, _, err := bootstrap(log)
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StoreDriverPostgres)
	}

	gdb, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer closeDB(gdb, log)

	if err := db.Migrate(gdb); err != nil {
		return err
	}
	log.Info("migration complete")
	return nil
}

func setRole(ctx context.Context, log *logrus.Logger, email string, role model.Role) error {
	cfg, roles, err := bootstrap(log)
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("set-role requires STORE_DRIVER=%s", config.StoreDriverPostgres)
	}

	users, todos, closeStore, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	uc := server.NewAuthUsecase(server.Deps{Config: cfg, Log: log, Roles: roles, Users: users, Todos: todos})
	user, err := uc.SetRole(ctx, email, role)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email, "role": user.Role}).Info("role updated")
	return nil
}
