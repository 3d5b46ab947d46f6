package main

import (
	"flag"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"

	"github.com/Raventwist88/ontrakk/internal/config"
	"github.com/Raventwist88/ontrakk/internal/dbmigrate"
)

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: go run ./cmd/migrate [-dir path] [up|status|down]")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	command := flag.Arg(0)
	if err := dbmigrate.ValidateCommand(command); err != nil {
		log.Fatal(err)
	}

	cfg := config.Load()
	target, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		log.Fatal(err)
	}

	if target.Warning != "" {
		log.Warnf("migrate: %s", target.Warning)
	}
	log.Printf("migrate: command=%s using=%s", command, target.Source)

	if err := dbmigrate.Run(command, target.URL, *dir); err != nil {
		log.Fatal(err)
	}

	log.Printf("migrate: %s completed successfully", command)
}
