package main

import (
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/mitchellh/cli"
	"github.com/yusufsyaifudin/pdfmailer/cmd/api"
	"github.com/yusufsyaifudin/pdfmailer/cmd/gen/genapidoc"
	"github.com/yusufsyaifudin/pdfmailer/cmd/migrate"
	"github.com/yusufsyaifudin/pdfmailer/cmd/sendbatch"
)

func main() {
	const appName, appVersion = "pdfmailer", "1.0.0"

	apiCmd := api.NewCmd(appName, appVersion)

	c := cli.NewCLI(appName, appVersion)
	c.Args = os.Args[1:]
	c.Autocomplete = true
	c.Commands = map[string]cli.CommandFactory{
		"":           apiCmd, // default command if no subcommand defined
		"api":        apiCmd,
		"migrate":    migrate.NewCmd(),
		"send-batch": sendbatch.NewCmd(),
		"apidoc": func() (cli.Command, error) {
			return genapidoc.NewApiDocCmd(genapidoc.ApiDocCfg{
				ServerURL: "http://localhost:3000/",
			})
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}
