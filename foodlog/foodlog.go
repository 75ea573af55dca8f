// Package foodlog implements the user facing operations of the food photo
// ledger: logging a photo with calories, predicting calories for a new
// photo from the user's history, and daily and weekly calorie summaries.
package foodlog

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"foodmatch/database"
	"foodmatch/fingerprint"
	"foodmatch/logging"
	"foodmatch/matcher"
	"foodmatch/similarity"
	"foodmatch/storage"
	"foodmatch/types"
)

// ErrInvalidRequest is returned when a request fails validation
var ErrInvalidRequest = errors.New("invalid request")

// Hints shown with a PredictResult
const (
	HintSaved     = "Saved with entered calories."
	HintConfirmed = "Saved with matched calories."
	HintMatched   = "Matched similar photo"
	HintNoMatch   = "No close match yet. Enter calories once."
)

var validate = validator.New()

// SubmitRequest carries one uploaded photo. Calories is nil when the user
// asks for a prediction instead of entering a value.
type SubmitRequest struct {
	UserID   int64  `validate:"gt=0"`
	Photo    []byte `validate:"required"`
	Ext      string `validate:"omitempty,max=8,alphanum"`
	Calories *int   `validate:"omitempty,gte=0,lte=100000"`
}

// ConfirmRequest accepts a previous prediction for a photo
type ConfirmRequest struct {
	UserID      int64  `validate:"gt=0"`
	Photo       []byte `validate:"required"`
	Ext         string `validate:"omitempty,max=8,alphanum"`
	MatchItemID int64  `validate:"gt=0"`
}

// ImportRequest stores a photo from a folder import with a known calorie
// value and capture time
type ImportRequest struct {
	UserID     int64  `validate:"gt=0"`
	Photo      []byte `validate:"required"`
	Ext        string `validate:"omitempty,max=8,alphanum"`
	SourcePath string `validate:"required"`
	Calories   int    `validate:"gte=0,lte=100000"`
	Created    time.Time
}

type summaryRequest struct {
	UserID          int64 `validate:"gt=0"`
	TzOffsetMinutes int   `validate:"gte=-1440,lte=1440"`
}

// Service ties the ledger, the photo store and the selector together
type Service struct {
	db       *sql.DB
	photos   *storage.PhotoStore
	selector matcher.Selector
	window   int

	now func() time.Time
}

// NewService returns a service using the given thresholds and history window
func NewService(db *sql.DB, photos *storage.PhotoStore, thresholds similarity.Thresholds, window int) *Service {
	selector := matcher.NewSelector(thresholds, window)
	return &Service{
		db:       db,
		photos:   photos,
		selector: selector,
		window:   selector.Window,
		now:      time.Now,
	}
}

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidRequest, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Submit stores the photo when calories are given, otherwise predicts them.
// The photo is fingerprinted first either way, so an undecodable photo is
// rejected with fingerprint.ErrInvalidImage before anything is written.
func (s *Service) Submit(req SubmitRequest) (types.PredictResult, error) {
	req.Ext = strings.TrimPrefix(req.Ext, ".")
	if err := validateRequest(req); err != nil {
		return types.PredictResult{}, err
	}
	fp, err := fingerprint.ExtractBytes(req.Photo)
	if err != nil {
		return types.PredictResult{}, err
	}

	if req.Calories != nil {
		id, err := s.save(req.UserID, req.Photo, req.Ext, fp, req.Calories)
		if err != nil {
			return types.PredictResult{}, err
		}
		return types.PredictResult{SavedItemID: id, Hint: HintSaved}, nil
	}
	return s.predict(req.UserID, fp)
}

// LogPhoto records a photo with a calorie value entered by the user
func (s *Service) LogPhoto(userID int64, photo []byte, ext string, calories int) (types.PredictResult, error) {
	return s.Submit(SubmitRequest{UserID: userID, Photo: photo, Ext: ext, Calories: &calories})
}

// Predict looks up the best match for a photo without storing anything
func (s *Service) Predict(userID int64, photo []byte) (types.PredictResult, error) {
	return s.Submit(SubmitRequest{UserID: userID, Photo: photo})
}

func (s *Service) predict(userID int64, query fingerprint.Fingerprint) (types.PredictResult, error) {
	items, err := database.QueryMatchCandidates(s.db, userID, s.window)
	if err != nil {
		return types.PredictResult{}, err
	}

	candidates := make([]matcher.Candidate, len(items))
	byID := make(map[int64]types.FoodItem, len(items))
	for i, it := range items {
		candidates[i] = it
		byID[it.ID] = it
	}

	result := s.selector.SelectBest(query, candidates)
	for _, skipped := range result.Skipped {
		logging.Warn().
			Int64("user_id", userID).
			Int64("item_id", skipped.ItemID).
			Err(skipped.Err).
			Msg("skipping food item with corrupt fingerprint")
	}
	logging.Debug().
		Int64("user_id", userID).
		Int("scanned", result.Scanned).
		Int("skipped", len(result.Skipped)).
		Bool("matched", result.Matched).
		Msg("match search finished")

	if !result.Matched {
		return types.PredictResult{Hint: HintNoMatch}, nil
	}
	best := byID[result.ItemID]
	return types.PredictResult{
		Matched:           true,
		PredictedCalories: best.Calories,
		Confidence:        result.Confidence,
		MatchItemID:       best.ID,
		Hint:              HintMatched,
	}, nil
}

// ConfirmMatch stores the photo with the calorie value of an earlier item
// the user accepted as a match
func (s *Service) ConfirmMatch(req ConfirmRequest) (types.PredictResult, error) {
	req.Ext = strings.TrimPrefix(req.Ext, ".")
	if err := validateRequest(req); err != nil {
		return types.PredictResult{}, err
	}
	match, err := database.GetFoodItem(s.db, req.UserID, req.MatchItemID)
	if err != nil {
		return types.PredictResult{}, err
	}
	if match.Calories == nil {
		return types.PredictResult{}, fmt.Errorf("%w: item %d has no calories", ErrInvalidRequest, match.ID)
	}
	fp, err := fingerprint.ExtractBytes(req.Photo)
	if err != nil {
		return types.PredictResult{}, err
	}

	id, err := s.save(req.UserID, req.Photo, req.Ext, fp, match.Calories)
	if err != nil {
		return types.PredictResult{}, err
	}
	return types.PredictResult{
		PredictedCalories: match.Calories,
		MatchItemID:       match.ID,
		SavedItemID:       id,
		Hint:              HintConfirmed,
	}, nil
}

// Import stores one photo of a folder import
func (s *Service) Import(req ImportRequest) (int64, error) {
	req.Ext = strings.TrimPrefix(req.Ext, ".")
	if err := validateRequest(req); err != nil {
		return 0, err
	}
	fp, err := fingerprint.ExtractBytes(req.Photo)
	if err != nil {
		return 0, err
	}
	encoded, err := fp.Encode()
	if err != nil {
		return 0, err
	}
	path, err := s.photos.Save(req.Photo, req.Ext)
	if err != nil {
		return 0, err
	}

	calories := req.Calories
	id, err := database.StoreFoodItem(s.db, types.FoodItem{
		UserID:     req.UserID,
		Path:       path,
		Origin:     types.OriginImport,
		SourcePath: req.SourcePath,
		Calories:   &calories,
		Features:   encoded,
		Created:    req.Created,
	})
	if err != nil {
		s.discard(path)
		return 0, err
	}
	return id, nil
}

// AlreadyImported reports whether sourcePath was imported for the user
func (s *Service) AlreadyImported(userID int64, sourcePath string) (bool, error) {
	return database.CheckItemExists(s.db, userID, sourcePath)
}

func (s *Service) save(userID int64, photo []byte, ext string, fp fingerprint.Fingerprint, calories *int) (int64, error) {
	encoded, err := fp.Encode()
	if err != nil {
		return 0, err
	}
	path, err := s.photos.Save(photo, ext)
	if err != nil {
		return 0, err
	}
	id, err := database.StoreFoodItem(s.db, types.FoodItem{
		UserID:   userID,
		Path:     path,
		Origin:   types.OriginUpload,
		Calories: calories,
		Features: encoded,
		Created:  s.now(),
	})
	if err != nil {
		s.discard(path)
		return 0, err
	}
	logging.Debug().Int64("user_id", userID).Int64("item_id", id).Str("path", path).Msg("food item saved")
	return id, nil
}

// discard removes a photo whose ledger row could not be written
func (s *Service) discard(path string) {
	if err := s.photos.Remove(path); err != nil {
		logging.LogWarning("Could not remove orphaned photo %s: %v", path, err)
	}
}

// List returns every item of the user, newest first
func (s *Service) List(userID int64) ([]types.FoodItem, error) {
	return database.ListFoodItems(s.db, userID)
}

// Delete removes an item and its photo. A photo that cannot be removed is
// logged and does not fail the delete.
func (s *Service) Delete(userID, itemID int64) error {
	item, err := database.DeleteFoodItem(s.db, userID, itemID)
	if err != nil {
		return err
	}
	if err := s.photos.Remove(item.Path); err != nil {
		logging.Warn().Int64("item_id", itemID).Err(err).Msg("photo not removed")
	}
	return nil
}

// Stats returns ledger statistics of the user
func (s *Service) Stats(userID int64) (*database.LedgerStats, error) {
	return database.GetLedgerStats(s.db, userID)
}
