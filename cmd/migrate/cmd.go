package migrate

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/cli"
	"github.com/yusufsyaifudin/pdfmailer/assets/migrations/pgsql_pdfmailer"
	"github.com/yusufsyaifudin/pdfmailer/container"
	"github.com/yusufsyaifudin/pdfmailer/extd"
	"github.com/yusufsyaifudin/pdfmailer/pkg/migration"
	"github.com/yusufsyaifudin/ylog"
)

const migrationTable = "pdfmailer_migrations"

type Cmd struct {
	flags      *flag.FlagSet
	configFile string
	dbLabel    string
}

func NewCmd() func() (cli.Command, error) {
	return func() (cli.Command, error) {
		cmd := &Cmd{}
		err := cmd.init()
		return cmd, err
	}
}

var _ cli.Command = (*Cmd)(nil)
var _ cli.CommandFactory = NewCmd()

func (c *Cmd) init() error {
	c.flags = flag.NewFlagSet("migrate", flag.ContinueOnError)
	c.flags.StringVar(&c.configFile, "config", "config.yml",
		"Config file to load")
	c.flags.StringVar(&c.configFile, "c", "config.yml",
		"Alias for config file to load")
	c.flags.StringVar(&c.dbLabel, "db", "",
		"Database label to migrate, default to services.document.dbLabel")
	return nil
}

func (c *Cmd) Help() string {
	return strings.TrimSpace(`
Usage: pdfmailer migrate [-config config.yml] [-db label] <up|down [steps]|print>

  up     apply all pending migration
  down   rollback the last migration, or as many as steps
  print  show every migration and when it was applied
`)
}

func (c *Cmd) Synopsis() string {
	return "Run database migration"
}

func (c *Cmd) Run(args []string) int {
	err := c.flags.Parse(args)
	if err != nil {
		log.Printf("error parsing argument: %s\n", err)
		return 1
	}

	rest := c.flags.Args()
	if len(rest) < 1 {
		log.Println(c.Help())
		return cli.RunResultHelp
	}

	cfg, err := container.LoadConfig(c.configFile)
	if err != nil {
		log.Printf("error load config: %s\n", err)
		return 1
	}

	ctx := extd.SetupLog(context.Background(), cfg.Log.Level)

	dbLabel := c.dbLabel
	if dbLabel == "" {
		dbLabel = cfg.Services.Document.DBLabel
	}

	repositories, err := container.SetupRepositories(cfg.DatabaseResources)
	if err != nil {
		ylog.Error(ctx, "migrate: cannot setup database", ylog.KV("error", err))
		return 1
	}

	defer func() {
		if _err := repositories.Close(); _err != nil {
			ylog.Error(ctx, "migrate: closing database failed", ylog.KV("error", _err))
		}
	}()

	db, err := repositories.SQL(dbLabel)
	if err != nil {
		ylog.Error(ctx, "migrate: unknown database", ylog.KV("error", err), ylog.KV("label", dbLabel))
		return 1
	}

	mig, err := migration.NewSQLImmigration(ctx, migration.SQLImmigrationConfig{
		Dialect:        "postgres",
		DB:             db.DB,
		MigrationTable: migrationTable,
		Migrations:     pgsql_pdfmailer.Migrations(),
	})
	if err != nil {
		ylog.Error(ctx, "migrate: cannot prepare migration", ylog.KV("error", err))
		return 1
	}

	err = run(ctx, mig, rest)
	if err != nil {
		ylog.Error(ctx, "migrate: failed", ylog.KV("error", err), ylog.KV("args", rest))
		return 1
	}

	return 0
}

func run(ctx context.Context, mig migration.Immigration, args []string) error {
	switch strings.ToLower(args[0]) {
	case "up":
		applied, err := mig.Up(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("applied %d migration\n", applied)
		return nil

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be positive number, got %q", args[1])
			}

			steps = n
		}

		rolledBack, err := mig.Down(ctx, steps)
		if err != nil {
			return err
		}

		fmt.Printf("rolled back %d migration\n", rolledBack)
		return nil

	case "print":
		records, err := mig.Status(ctx)
		if err != nil {
			return err
		}

		for _, r := range records {
			appliedAt := "pending"
			if r.Applied() {
				appliedAt = r.AppliedAt.Format(time.RFC3339)
			}

			fmt.Printf("%-50s %s\n", r.ID, appliedAt)
		}

		return nil

	default:
		return fmt.Errorf("unknown migration direction %q", args[0])
	}
}
