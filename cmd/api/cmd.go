package api

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/yusufsyaifudin/pdfmailer/container"
	"github.com/yusufsyaifudin/pdfmailer/extd"
)

const (
	ExitSuccess = 0
	ExitErr     = -1
)

type Cmd struct {
	flags      *flag.FlagSet
	appName    string
	appVersion string
	configFile string
}

func NewCmd(appName, appVersion string) func() (cli.Command, error) {
	return func() (cli.Command, error) {
		cmd := &Cmd{
			appName:    appName,
			appVersion: appVersion,
		}
		err := cmd.init()
		return cmd, err
	}
}

var _ cli.Command = (*Cmd)(nil)
var _ cli.CommandFactory = NewCmd("", "")

func (c *Cmd) init() error {
	c.flags = flag.NewFlagSet("api", flag.ContinueOnError)
	c.flags.StringVar(&c.configFile, "config", "config.yml",
		"Config file to load")
	c.flags.StringVar(&c.configFile, "c", "config.yml",
		"Alias for config file to load")
	return nil
}

func (c *Cmd) Help() string {
	return strings.TrimSpace(`
Usage: ` + c.appName + ` api [-config config.yml]

  Start HTTP server serving email, csv, auth and stored pdf endpoints.
  SMTP credential can be overridden using EMAIL_ID, EMAIL_PASSWORD, SMTP_HOST and SMTP_PORT,
  either from environment or .env file.
`)
}

func (c *Cmd) Run(args []string) int {
	err := c.flags.Parse(args)
	if err != nil {
		log.Printf("error parsing config argument: %s\n", err)
		return ExitErr
	}

	cfg, err := container.LoadConfig(c.configFile)
	if err != nil {
		log.Printf("error load config: %s\n", err)
		return ExitErr
	}

	err = extd.RunServer(context.Background(), cfg)
	if err != nil {
		log.Printf("%s %s stopped with error: %s\n", c.appName, c.appVersion, err)
		return ExitErr
	}

	return ExitSuccess
}

func (c *Cmd) Synopsis() string {
	return "Run HTTP API server"
}
