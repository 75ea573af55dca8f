package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"foodmatch/config"
	"foodmatch/database"
	"foodmatch/fingerprint"
	"foodmatch/foodlog"
	"foodmatch/logging"
	"foodmatch/scanner"
	"foodmatch/signalhandler"
	"foodmatch/storage"
	"foodmatch/types"
	"foodmatch/utils"
)

// Exit codes
const (
	exitOK         = 0
	exitFailure    = 1
	exitInputError = 2
)

// inputError marks failures caused by bad arguments
type inputError struct{ err error }

func (e inputError) Error() string { return e.err.Error() }
func (e inputError) Unwrap() error { return e.err }

func badInput(format string, a ...any) error {
	return inputError{fmt.Errorf(format, a...)}
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signalhandler.SetupHandler(logging.CloseLogger)
	defer cancel()

	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	args := utils.ParseArguments()
	command, hasCommand := args["command"]
	if !hasCommand {
		utils.PrintUsage()
		return exitInputError
	}

	cfg, err := config.Load(args["config"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return exitInputError
	}
	applyFlags(cfg, args)

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if cfg.Logging.File != "" {
		if err := logging.SetupLogger(cfg.Logging.File); err != nil {
			fmt.Printf("Warning: Failed to setup logging: %v\n", err)
		} else if args["debug"] != "" {
			fmt.Printf("Debug mode enabled. Logging to: %s\n", cfg.Logging.File)
		}
	}
	defer logging.CloseLogger()

	db, err := database.InitDatabase(cfg.Database.Path)
	if err != nil {
		logging.Error().Err(err).Str("database", cfg.Database.Path).Msg("cannot open database")
		return exitFailure
	}
	defer db.Close()

	photos, err := storage.NewPhotoStore(cfg.Storage.Dir)
	if err != nil {
		logging.Error().Err(err).Msg("cannot prepare photo storage")
		return exitFailure
	}

	svc := foodlog.NewService(db, photos, cfg.Matching.Thresholds(), cfg.Matching.HistoryWindow)

	userID := int64(1)
	if s, ok := args["user"]; ok {
		if userID, err = utils.ParseID(s); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitInputError
		}
	}

	switch command {
	case "log":
		err = handleLogCommand(svc, userID, args)
	case "predict":
		err = handlePredictCommand(svc, userID, args)
	case "confirm":
		err = handleConfirmCommand(svc, userID, args)
	case "list":
		err = handleListCommand(svc, userID, args)
	case "delete":
		err = handleDeleteCommand(svc, userID, args)
	case "summary":
		err = handleSummaryCommand(svc, userID, args)
	case "import":
		err = handleImportCommand(ctx, svc, cfg, userID, args)
	}

	return exitCode(err)
}

// applyFlags lets command line flags override loaded configuration
func applyFlags(cfg *config.Config, args map[string]string) {
	if customDB, ok := args["database"]; ok && customDB != "" {
		cfg.Database.Path = customDB
	} else if customDB, ok := args["db"]; ok && customDB != "" {
		// Allow --db as an alias for --database
		cfg.Database.Path = customDB
	}
	if dir, ok := args["photos"]; ok && dir != "" {
		cfg.Storage.Dir = dir
	}
	if _, ok := args["debug"]; ok {
		cfg.Logging.Level = "debug"
		if cfg.Logging.File == "" {
			cfg.Logging.File = "foodmatch.log"
		}
	}
	if logPath, ok := args["logfile"]; ok && logPath != "" {
		cfg.Logging.File = logPath
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var inErr inputError
	switch {
	case errors.As(err, &inErr),
		errors.Is(err, fingerprint.ErrInvalidImage),
		errors.Is(err, foodlog.ErrInvalidRequest),
		errors.Is(err, database.ErrNotFound):
		return exitInputError
	default:
		logging.Error().Err(err).Msg("command failed")
		return exitFailure
	}
}

func readPhoto(args map[string]string) ([]byte, string, error) {
	path := args["image"]
	if path == "" {
		return nil, "", badInput("missing query image path (use --image=PATH)")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", badInput("cannot read image %s: %v", path, err)
	}
	return content, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."), nil
}

func handleLogCommand(svc *foodlog.Service, userID int64, args map[string]string) error {
	photo, ext, err := readPhoto(args)
	if err != nil {
		return err
	}
	s, ok := args["calories"]
	if !ok {
		return badInput("missing calories (use --calories=N)")
	}
	calories, err := utils.ParseCalories(s)
	if err != nil {
		return inputError{err}
	}

	res, err := svc.LogPhoto(userID, photo, ext, calories)
	if err != nil {
		return err
	}
	return printPrediction(res, args)
}

func handlePredictCommand(svc *foodlog.Service, userID int64, args map[string]string) error {
	photo, _, err := readPhoto(args)
	if err != nil {
		return err
	}
	startTime := time.Now()
	res, err := svc.Predict(userID, photo)
	if err != nil {
		return err
	}
	logging.DebugLog("Prediction took %v", time.Since(startTime))
	return printPrediction(res, args)
}

func handleConfirmCommand(svc *foodlog.Service, userID int64, args map[string]string) error {
	photo, ext, err := readPhoto(args)
	if err != nil {
		return err
	}
	matchID, err := utils.ParseID(args["match"])
	if err != nil {
		return badInput("missing or invalid --match item: %v", err)
	}
	res, err := svc.ConfirmMatch(foodlog.ConfirmRequest{UserID: userID, Photo: photo, Ext: ext, MatchItemID: matchID})
	if err != nil {
		return err
	}
	return printPrediction(res, args)
}

func printPrediction(res types.PredictResult, args map[string]string) error {
	if _, ok := args["json"]; ok {
		return printJSON(res)
	}
	switch {
	case res.Matched:
		fmt.Printf("Match: item %d, %d kcal (confidence %.3f)\n", res.MatchItemID, *res.PredictedCalories, res.Confidence)
	case res.SavedItemID != 0:
		fmt.Printf("Saved item %d\n", res.SavedItemID)
	}
	fmt.Println(res.Hint)
	return nil
}

func handleListCommand(svc *foodlog.Service, userID int64, args map[string]string) error {
	items, err := svc.List(userID)
	if err != nil {
		return err
	}
	if _, ok := args["json"]; ok {
		return printJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("No food items logged yet.")
		return nil
	}
	for _, it := range items {
		calories := "-"
		if it.Calories != nil {
			calories = fmt.Sprintf("%d kcal", *it.Calories)
		}
		fmt.Printf("%6d  %s  %-10s  %s\n", it.ID, it.Created.Local().Format("2006-01-02 15:04"), calories, filepath.Base(it.Path))
	}
	return nil
}

func handleDeleteCommand(svc *foodlog.Service, userID int64, args map[string]string) error {
	itemID, err := utils.ParseID(args["item"])
	if err != nil {
		return badInput("missing or invalid --item: %v", err)
	}
	if err := svc.Delete(userID, itemID); err != nil {
		return err
	}
	fmt.Printf("Deleted item %d\n", itemID)
	return nil
}

func handleSummaryCommand(svc *foodlog.Service, userID int64, args map[string]string) error {
	day, err := utils.ParseDay(args["date"])
	if err != nil {
		return inputError{err}
	}
	tz, err := utils.ParseTzOffset(args["tz"])
	if err != nil {
		return inputError{err}
	}
	_, asJSON := args["json"]

	if _, weekly := args["weekly"]; weekly {
		week, err := svc.WeeklySummary(userID, day, tz)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(week)
		}
		fmt.Printf("Week %s to %s: %d kcal, %.1f kcal/day\n", week.Start, week.End, week.TotalCalories, week.AvgPerDay)
		for _, d := range week.Days {
			fmt.Printf("  %s  %5d kcal  (%d items)\n", d.Date, d.TotalCalories, d.ItemsCount)
		}
		return nil
	}

	daily, err := svc.DailySummary(userID, day, tz)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(daily)
	}
	fmt.Printf("%s: %d kcal (%d items)\n", daily.Date, daily.TotalCalories, daily.ItemsCount)
	return nil
}

func handleImportCommand(ctx context.Context, svc *foodlog.Service, cfg *config.Config, userID int64, args map[string]string) error {
	folderPath, hasFolder := args["folder"]
	if !hasFolder || folderPath == "" {
		return badInput("missing folder path (use --folder=PATH)")
	}

	workers := cfg.Import.Workers
	if s, ok := args["workers"]; ok {
		w, err := utils.ParseWorkers(s)
		if err != nil {
			return inputError{err}
		}
		workers = w
	}
	useExif := cfg.Import.UseExif
	if _, ok := args["no-exif"]; ok {
		useExif = false
	}
	_, debugMode := args["debug"]

	summary, err := scanner.ImportFolder(ctx, svc, scanner.ImportOptions{
		FolderPath: folderPath,
		UserID:     userID,
		MaxWorkers: workers,
		UseExif:    useExif,
		DebugMode:  debugMode,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Database: %s\n", cfg.Database.Path)
	stats, err := svc.Stats(userID)
	if err == nil && stats != nil {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("- Total items logged: %d\n", stats.TotalItems)
		fmt.Printf("- Items with calories: %d\n", stats.WithCalories)
		fmt.Printf("- Unique photo hashes: %d\n", stats.UniqueHashes)
	}
	if summary.Errors > 0 {
		return fmt.Errorf("%d photos failed to import", summary.Errors)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
