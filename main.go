package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"hailstone/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// Version holds the build-time version string.
var Version = "unknown" // nolint:gochecknoglobals

func main() {
	flag.Parse()

	conf, err := config.NewFromUserConfigDir()
	if err != nil {
		log.Fatalf("error: unable to load configuration: %s", err)
	}

	switch flag.Arg(0) {
	case "version":
		fmt.Fprintf(os.Stdout, "Hailstone %s\n", Version)
	case "serve":
		if err := serve(conf); err != nil {
			log.Fatalf("error: %s", err)
		}
	case "migrate":
		if err := migrateDatabase(conf); err != nil {
			log.Fatalf("error: %s", err)
		}
	case "dev:fixtures":
		if err := loadFixtures(conf); err != nil {
			log.Fatalf("error: %s", err)
		}
	case "help":
		fmt.Fprint(os.Stdout, help())
		return
	default:
		fmt.Fprint(os.Stderr, help())
		os.Exit(1)
	}
}

func help() string {
	return fmt.Sprintf(`
Hailstone is the server behind a competitive Collatz sequence ladder.

Usage: %[1]s COMMAND [ARGS…]

COMMANDS
    dev:fixtures create default data for quick testing during development
    help         display this help
    migrate      upgrade the database to the latest schema
    serve        run the duel, API, and announcer dæmons
    version      display the current version
`,
		os.Args[0],
	)
}
