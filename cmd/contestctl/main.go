package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/Dosada05/run-contest/config"
	"github.com/Dosada05/run-contest/db"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/Dosada05/run-contest/services"
	"github.com/Dosada05/run-contest/storage"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
)

// app holds the services every command acts through.
type app struct {
	out io.Writer

	conn       *sql.DB
	contests   services.ContestService
	registries services.RegistryService
	ledger     services.LedgerService
	auth       services.AuthService
}

func main() {
	a := &app{out: os.Stdout}
	if err := newCLI(a).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI(a *app) *cli.App {
	return &cli.App{
		Name:  "contestctl",
		Usage: "operate contests and registries directly against the database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}, Required: true},
			&cli.StringFlag{Name: "network", EnvVars: []string{"CONTEST_NETWORK"}, Value: "local"},
			&cli.StringFlag{Name: "presets", EnvVars: []string{"CONTEST_PRESETS_FILE"}, Usage: "YAML file of deploy presets"},
			&cli.StringFlag{Name: "jwt-secret", EnvVars: []string{"JWT_SECRET_KEY"}},
			&cli.StringFlag{Name: "caller", EnvVars: []string{"CONTEST_CALLER"}, Usage: "account the operation is performed as"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Before: func(c *cli.Context) error {
			_ = godotenv.Load()
			return a.open(c)
		},
		After: func(*cli.Context) error {
			if a.conn != nil {
				return a.conn.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			registryCommand(a),
			contestCommand(a),
			assetCommand(a),
			accountCommand(a),
		},
	}
}

func (a *app) open(c *cli.Context) error {
	if a.contests != nil {
		return nil
	}

	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	presets, err := config.LoadPresets(c.String("presets"))
	if err != nil {
		return err
	}

	conn, err := db.Connect(c.String("database-url"), 5*time.Second)
	if err != nil {
		return err
	}
	if err := db.Migrate(c.Context, conn); err != nil {
		conn.Close()
		return err
	}
	a.conn = conn

	repos := services.Repositories{
		Contests:      repositories.NewPostgresContestRepository(conn),
		Registrations: repositories.NewPostgresRegistrationRepository(conn),
		Registries:    repositories.NewPostgresRegistryRepository(conn),
		Deployments:   repositories.NewPostgresDeploymentRepository(conn),
		Ledger:        repositories.NewPostgresLedgerRepository(conn),
		Accounts:      repositories.NewPostgresAccountRepository(conn),
	}
	telemetry := services.NewTelemetry(logger, otel.Tracer("github.com/Dosada05/run-contest/contestctl"), nil)
	tx := services.NewSQLTransactor(conn, logger)
	archiver := services.NewArchiveService(storage.NewNoopUploader(), repos.Contests)
	network := c.String("network")

	a.contests = services.NewContestService(tx, repos, nil, archiver, telemetry, nil, network, presets, logger)
	a.registries = services.NewRegistryService(tx, repos, telemetry, network, logger)
	a.ledger = services.NewLedgerService(repos.Ledger, repos.Contests, telemetry)
	a.auth = services.NewAuthService(repos.Accounts, repos.Contests, repos.Registries, c.String("jwt-secret"), 0)
	return nil
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var errCallerRequired = errors.New("--caller is required for this command")

func callerOf(c *cli.Context) (string, error) {
	caller := c.String("caller")
	if caller == "" {
		return "", errCallerRequired
	}
	return caller, nil
}

func usageError(c *cli.Context, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %s", c.Command.FullName(), fmt.Sprintf(format, args...))
}
