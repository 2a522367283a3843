package main

import (
	"fmt"
	"os"

	"github.com/trezcool/mpiangona/apps/api/di"
	"github.com/trezcool/mpiangona/core"
	"github.com/trezcool/mpiangona/storage/database"
	inmemdb "github.com/trezcool/mpiangona/storage/database/inmem"
)

func main() {
	if err := start(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func start(args []string) error {
	conf := core.NewConfig()
	logger := di.NewLogger(conf, "ADMIN : ")

	cli := commandLine{out: os.Stdout}

	// set up DB
	var repos di.Repositories
	if conf.TestMode || conf.Database.Engine == "inmem" {
		repos = di.InMemory(inmemdb.Open())
	} else {
		db, err := database.Open(conf)
		if err != nil {
			return err
		}
		defer db.Close()
		cli.db = db
		repos = di.SQL(db)
	}

	core.ParseEmailTemplates(logger, false)

	cli.c = di.New(conf, logger, repos, di.NewEmailService(conf, logger))
	cli.c.Start()
	defer cli.c.Stop()

	return cli.run(args)
}
