// Command moni-export writes an owner's weekly allowance history from the configured record
// store to CSV or XLSX.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kingpin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/zakgeld/moni/internal/app"
	"github.com/zakgeld/moni/internal/config"
	"github.com/zakgeld/moni/pkg/allowance"
)

func main() {
	_ = godotenv.Load()

	cmdCSV := kingpin.Command("csv", "Export history as CSV")
	cmdXLSX := kingpin.Command("xlsx", "Export history as an Excel workbook with a balance chart")
	cmdLatest := kingpin.Command("latest", "Print the most recent week")
	configPath := kingpin.Flag("config", "Configuration file").Default("./config/application.yaml").String()
	username := kingpin.Flag("user", "Username or email of the ledger owner").Required().String()
	outfile := kingpin.Flag("output", "Output file (default stdout)").Short('o').String()
	verbose := kingpin.Flag("verbose", "Log debug output").Short('v').Bool()
	cmd := kingpin.Parse()

	log.SetOutput(os.Stderr)
	if *verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer stores.Close()

	owner, err := stores.Users.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(*username)))
	if err != nil {
		log.Fatalf("unknown user %s: %v", *username, err)
	}
	records, err := stores.Records.QueryRecords(ctx, owner.Uid)
	if err != nil {
		log.Fatal(err)
	}

	out := io.Writer(os.Stdout)
	if *outfile != "" {
		fd, err := os.Create(*outfile)
		if err != nil {
			log.Fatal(err)
		}
		defer fd.Close()
		out = fd
	}

	switch cmd {
	case cmdCSV.FullCommand():
		csv, err := allowance.RenderCSV(allowance.SortRecords(records))
		if err != nil {
			log.Fatal(err)
		}
		_, err = io.WriteString(out, csv)
		check(err)
	case cmdXLSX.FullCommand():
		xlsx, err := allowance.RenderXLSX(allowance.SortRecords(records))
		if err != nil {
			log.Fatal(err)
		}
		_, err = out.Write(xlsx)
		check(err)
	case cmdLatest.FullCommand():
		latest, ok := allowance.MostRecent(records)
		if !ok {
			fmt.Fprintf(os.Stderr, "%s has no weekly records\n", owner.DisplayName)
			os.Exit(1)
		}
		_, err = fmt.Fprintf(out, "%s: balance %s (income %s, expenses %s, withdrawn %s)\n",
			latest.WeekId,
			latest.RunningBalance.StringFixed(2),
			latest.Income.StringFixed(2),
			latest.Expenses.StringFixed(2),
			latest.Withdrawn.StringFixed(2))
		check(err)
	}
}

func check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
