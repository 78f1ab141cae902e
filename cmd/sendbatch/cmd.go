package sendbatch

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mitchellh/cli"
	"github.com/yusufsyaifudin/pdfmailer/container"
	"github.com/yusufsyaifudin/pdfmailer/extd"
	"github.com/yusufsyaifudin/pdfmailer/internal/svc/dispatchsvc"
	"github.com/yusufsyaifudin/pdfmailer/pkg/recipientcsv"
	"github.com/yusufsyaifudin/ylog"
)

type Cmd struct {
	flags      *flag.FlagSet
	configFile string
	csvFile    string
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
	c.flags = flag.NewFlagSet("send-batch", flag.ContinueOnError)
	c.flags.StringVar(&c.configFile, "config", "config.yml",
		"Config file to load")
	c.flags.StringVar(&c.configFile, "c", "config.yml",
		"Alias for config file to load")
	c.flags.StringVar(&c.csvFile, "csv", "",
		"Recipient sheet with header Email,Name,PAN,PAN1")
	return nil
}

func (c *Cmd) Help() string {
	return strings.TrimSpace(`
Usage: pdfmailer send-batch -csv recipients.csv [-config config.yml]

  Send pdf of every row without HTTP server, then print the summary.
  Database is not needed, only mail and storage config are used.
`)
}

func (c *Cmd) Synopsis() string {
	return "Send pdf to every recipient of csv file"
}

func (c *Cmd) Run(args []string) int {
	err := c.flags.Parse(args)
	if err != nil {
		log.Printf("error parsing argument: %s\n", err)
		return 1
	}

	if strings.TrimSpace(c.csvFile) == "" {
		log.Println(c.Help())
		return cli.RunResultHelp
	}

	cfg, err := container.LoadConfig(c.configFile)
	if err != nil {
		log.Printf("error load config: %s\n", err)
		return 1
	}

	ctx := extd.SetupLog(context.Background(), cfg.Log.Level)

	err = extd.EnsureDirs(cfg.Storage)
	if err != nil {
		ylog.Error(ctx, "send-batch: storage preparation failed", ylog.KV("error", err))
		return 1
	}

	transport, err := container.NewMailTransport(cfg.Mail, os.Stdout)
	if err != nil {
		ylog.Error(ctx, "send-batch: mail transport failed", ylog.KV("error", err))
		return 1
	}

	svc, err := container.NewDispatchService(cfg, transport)
	if err != nil {
		ylog.Error(ctx, "send-batch: dispatch service failed", ylog.KV("error", err))
		return 1
	}

	file, err := os.Open(c.csvFile)
	if err != nil {
		ylog.Error(ctx, "send-batch: cannot open csv", ylog.KV("error", err), ylog.KV("file", c.csvFile))
		return 1
	}

	defer func() {
		if _err := file.Close(); _err != nil {
			ylog.Error(ctx, "send-batch: cannot close csv", ylog.KV("error", _err))
		}
	}()

	report, err := SendBatch(ctx, svc, file)
	if err != nil {
		ylog.Error(ctx, "send-batch: failed", ylog.KV("error", err))
		return 1
	}

	fmt.Println(report.String())
	return 0
}

// SendBatch decodes csv rows and dispatches them in order. Each outcome is logged once it is final.
func SendBatch(ctx context.Context, svc dispatchsvc.Service, csvBody io.Reader) (report dispatchsvc.Report, err error) {
	rows, err := recipientcsv.Decode(csvBody)
	if err != nil {
		err = fmt.Errorf("cannot read csv: %w", err)
		return
	}

	if len(rows) == 0 {
		err = fmt.Errorf("csv has no recipient")
		return
	}

	recipients := make([]dispatchsvc.Recipient, 0, len(rows))
	for _, row := range rows {
		recipients = append(recipients, dispatchsvc.Recipient{
			Email: row.Email,
			Name:  row.Name,
			PAN:   row.PAN,
			PAN1:  row.PAN1,
		})
	}

	out, err := svc.RunBatch(ctx, dispatchsvc.InputRunBatch{
		Recipients: recipients,
		Observer: func(index int, outcome dispatchsvc.Outcome) {
			ylog.Info(ctx, fmt.Sprintf("%d/%d %s", index+1, len(recipients), outcome.Status),
				ylog.KV("email", outcome.Recipient.Email),
				ylog.KV("detail", outcome.Detail),
			)
		},
	})
	if err != nil {
		return
	}

	report = out.Report
	return
}
