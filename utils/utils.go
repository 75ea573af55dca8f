package utils

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"foodmatch/config"
)

// Commands understood by the CLI
var Commands = []string{"log", "predict", "confirm", "list", "delete", "summary", "import"}

// ParseArguments converts command-line arguments into a map of flags and values
func ParseArguments() map[string]string {
	return ParseArgs(os.Args[1:])
}

// ParseArgs converts arguments (without the program name) into a map of
// flags and values. The first known command word is stored under "command".
func ParseArgs(argv []string) map[string]string {
	args := make(map[string]string)

	commandIndex := -1
	for i, arg := range argv {
		if isCommand(arg) {
			args["command"] = arg
			commandIndex = i
			break
		}
	}

	for i := 0; i < len(argv); i++ {
		if i == commandIndex {
			continue
		}

		arg := argv[i]

		// Handle flags with equals sign (--key=value)
		if strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") {
			parts := strings.SplitN(arg, "=", 2)
			args[strings.TrimPrefix(parts[0], "--")] = parts[1]
			continue
		}

		// Handle flags without equals sign (--key value)
		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Boolean flag when no value follows
			if i+1 >= len(argv) || strings.HasPrefix(argv[i+1], "--") || i+1 == commandIndex {
				args[flagName] = "true"
			} else {
				args[flagName] = argv[i+1]
				i++
			}
		}
	}

	return args
}

func isCommand(arg string) bool {
	for _, c := range Commands {
		if arg == c {
			return true
		}
	}
	return false
}

// PrintUsage outputs the command-line usage instructions
func PrintUsage() {
	writeUsage(os.Stdout)
}

func writeUsage(w io.Writer) {
	defaults := config.Default()
	fmt.Fprintf(w, "Usage:\n")
	fmt.Fprintf(w, "  %s log --image=PATH --calories=N [--user=ID]\n", os.Args[0])
	fmt.Fprintf(w, "  %s predict --image=PATH [--user=ID]\n", os.Args[0])
	fmt.Fprintf(w, "  %s confirm --image=PATH --match=ITEM [--user=ID]\n", os.Args[0])
	fmt.Fprintf(w, "  %s list [--user=ID] [--json]\n", os.Args[0])
	fmt.Fprintf(w, "  %s delete --item=ITEM [--user=ID]\n", os.Args[0])
	fmt.Fprintf(w, "  %s summary [--date=YYYY-MM-DD] [--weekly] [--tz=MINUTES] [--user=ID] [--json]\n", os.Args[0])
	fmt.Fprintf(w, "  %s import --folder=PATH [--workers=N] [--no-exif] [--user=ID]\n", os.Args[0])
	fmt.Fprintf(w, "\nCommon parameters:\n")
	fmt.Fprintf(w, "  --database    : Path to database file (default: %s)\n", defaults.Database.Path)
	fmt.Fprintf(w, "  --photos      : Directory for stored photos (default: %s)\n", defaults.Storage.Dir)
	fmt.Fprintf(w, "  --config      : YAML config file (default: $FOODMATCH_CONFIG or ./foodmatch.yaml)\n")
	fmt.Fprintf(w, "  --user        : User id (default: 1)\n")
	fmt.Fprintf(w, "  --debug       : Enable debug mode (logs detailed information)\n")
	fmt.Fprintf(w, "  --logfile     : Specify custom log file path (default: foodmatch.log)\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  %s log --image=lunch.jpg --calories=650\n", os.Args[0])
	fmt.Fprintf(w, "  %s predict --image=dinner.jpg\n", os.Args[0])
	fmt.Fprintf(w, "  %s import --folder=/path/to/photos --debug\n", os.Args[0])
}

// ParseCalories parses a non-negative calorie value
func ParseCalories(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid calories value '%s'", s)
	}
	return v, nil
}

// ParseID parses a positive user or item id
func ParseID(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid id '%s'", s)
	}
	return v, nil
}

// ParseDay parses a YYYY-MM-DD date. An empty string yields the zero time.
func ParseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s', expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseTzOffset parses a zone offset in minutes east of UTC
func ParseTzOffset(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < -24*60 || v > 24*60 {
		return 0, fmt.Errorf("invalid tz offset '%s', expected minutes between -1440 and 1440", s)
	}
	return v, nil
}

// ParseWorkers parses a worker count; 0 selects the default
func ParseWorkers(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid workers value '%s'", s)
	}
	return v, nil
}
