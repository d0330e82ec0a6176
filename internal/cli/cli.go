// Package cli turns command-line arguments into an app configuration.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/vk/nocforge/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app
// config, a boolean indicating the program should exit cleanly (help or
// no input), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("nocforge", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
nocforge - NoC-aware partition-and-retime design space exploration.

Usage:
  nocforge [options] [DESIGN_PATH]

Arguments:
  DESIGN_PATH
    Path to a single .hcl file or a directory containing .hcl files
    (modules, connections and the constraints block).

Options:
`)
		flagSet.PrintDefaults()
	}

	designFlag := flagSet.String("design", "", "Path to the design file or directory.")
	dFlag := flagSet.String("d", "", "Path to the design file or directory (shorthand).")
	constraintsFlag := flagSet.String("constraints", "", "Extra path for constraints .hcl files.")
	cacheFlag := flagSet.String("cache", "", "Path to a persistent score cache database. Empty keeps the cache in memory.")
	validateFlag := flagSet.String("validate-cmd", "", "Command invoked to validate the final candidate with the vendor tool.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Evaluator worker count. 0 defers to the constraints block.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := ""
	if *designFlag != "" {
		path = *designFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}

	if path == "" {
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		DesignPath:      path,
		ConstraintsPath: *constraintsFlag,
		CachePath:       *cacheFlag,
		ValidateCmd:     *validateFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		WorkerCount:     *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}
