package main

import (
	"fmt"
	"os"
)

var (
	// Version is set at build time via ldflags
	// Example: go build -ldflags="-X main.Version=v1.2.3"
	Version = "dev"
)

const (
	// Default config path
	defaultConfigPath = "saveimages.yaml"
	// Default .env file
	defaultEnvFile = ".env"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "version" || command == "--version" || command == "-v" {
		fmt.Printf("saveimages version %s\n", Version)
		os.Exit(0)
	}

	args := os.Args[2:]
	switch command {
	case "run":
		os.Exit(runCommand(args, os.Stdin, os.Stdout, os.Stderr))
	case "resolve":
		os.Exit(resolveCommand(args, os.Stdout, os.Stderr))
	case "migrate":
		os.Exit(migrateCommand(args, os.Stdout, os.Stderr))
	case "history":
		os.Exit(historyCommand(args, os.Stdout, os.Stderr))
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `saveimages - Save pipeline images under configurable file names

USAGE:
    saveimages <command> [flags]

COMMANDS:
    run       Save every image in the input directory through the configured modules
    resolve   Print the output path of every image without saving
    migrate   Rewrite a configuration with legacy modules in current form
    history   List recorded runs
    version   Show version information

FLAGS:
    -h, --help    Show this help message

RUN FLAGS:
    --overwrite ask|always|never   Existing files when overwrite checks are on (default: ask)
    --log-level LEVEL              Minimum log level: debug, info, warn, error (default: info)
    --no-tui                       Print a plain summary instead of the progress view
                                   (also when SAVEIMAGES_NO_TUI is set or stdout is not a terminal)

EXAMPLES:
    saveimages run --config saveimages.yaml --input ./images
    saveimages run --config saveimages.yaml --metadata-regex '^(?P<well>[A-H][0-9]{2})_s(?P<site>[0-9]+)'
    saveimages resolve --config saveimages.yaml --input ./images
    saveimages migrate --config legacy.yaml > saveimages.yaml
    saveimages history --config saveimages.yaml --limit 5

Defaults for the input and output directories and object store credentials
are read from the environment or a .env file (SAVEIMAGES_DEFAULT_OUTPUT_DIR,
SAVEIMAGES_DEFAULT_INPUT_DIR, SAVEIMAGES_S3_*).
`)
}
