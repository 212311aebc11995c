package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"sharide/internal/config"
	"sharide/internal/domain/entities"
	"sharide/internal/metrics"
	"sharide/internal/repository"
	"sharide/pkg/utils"
)

var (
	ErrInvalidScore        = errors.New("score out of range")
	ErrMissingUser         = errors.New("rater and ratee ids are required")
	ErrSelfRating          = errors.New("users cannot rate themselves")
	ErrDuplicateSubmission = errors.New("rating already in progress for this rater and ratee")
	// ErrTransactionNotRecorded means the aggregate committed but the log
	// entry could not be appended. The aggregate is not rolled back.
	ErrTransactionNotRecorded = errors.New("rating counted but transaction not recorded")
)

// RatingService is the rating ledger: a per-user aggregate in Ratings plus
// an append-only log in RatingsTransaction.
//
// Go Learning Note — Read-Modify-Write:
// The aggregate is updated through DocumentStore.RunTransaction, so two
// ratings for the same ratee can never read the same old total and both
// write old+score. Each backend serializes the callback on that document.
type RatingService struct {
	store    repository.DocumentStore
	locks    repository.LockManager
	notifier *NotificationService
	metrics  *metrics.Metrics
	logger   *slog.Logger

	minScore  float64
	maxScore  float64
	dupWindow time.Duration
	loc       *time.Location
	now       func() time.Time
}

func NewRatingService(
	store repository.DocumentStore,
	locks repository.LockManager,
	notifier *NotificationService,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *slog.Logger,
) (*RatingService, error) {
	loc, err := utils.LoadLedgerLocation(cfg.Ledger.Timezone)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingService{
		store:     store,
		locks:     locks,
		notifier:  notifier,
		metrics:   m,
		logger:    logger,
		minScore:  cfg.Ledger.MinScore,
		maxScore:  cfg.Ledger.MaxScore,
		dupWindow: cfg.Ledger.DuplicateWindow,
		loc:       loc,
		now:       time.Now,
	}, nil
}

// RecordResult is what a recorded rating produced. Transaction is nil when
// the log append failed.
type RecordResult struct {
	Aggregate   entities.RatingAggregate    `json:"aggregate"`
	Average     float64                     `json:"average"`
	Transaction *entities.RatingTransaction `json:"transaction,omitempty"`
}

// RecordOutcome is the single value delivered by RecordRatingAsync.
type RecordOutcome struct {
	Result *RecordResult
	Err    error
}

// RecordRating adds score from raterID to rateeID's aggregate and appends
// the matching transaction.
func (s *RatingService) RecordRating(ctx context.Context, raterID, rateeID string, score float64, description string) (*RecordResult, error) {
	raterID = strings.TrimSpace(raterID)
	rateeID = strings.TrimSpace(rateeID)
	if raterID == "" || rateeID == "" {
		return nil, ErrMissingUser
	}
	if raterID == rateeID {
		return nil, ErrSelfRating
	}
	if math.IsNaN(score) || score < s.minScore || score > s.maxScore {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrInvalidScore, score, s.minScore, s.maxScore)
	}

	key := fmt.Sprintf("rating:%s:%s", raterID, rateeID)
	token, acquired, err := s.locks.AcquireLock(ctx, key, s.dupWindow)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrDuplicateSubmission
	}
	defer s.locks.ReleaseLock(context.WithoutCancel(ctx), key, token)

	var aggregate entities.RatingAggregate
	err = s.store.RunTransaction(ctx, repository.CollectionRatings, rateeID,
		func(current repository.Document, exists bool) (repository.Document, error) {
			agg := entities.RatingAggregate{UserID: rateeID}
			if exists {
				agg = entities.RatingAggregateFromFields(rateeID, current)
			}
			agg.Apply(score)
			aggregate = agg
			return repository.Merge(current, agg.Fields()), nil
		})
	if err != nil {
		s.metrics.StoreError("transaction")
		return nil, fmt.Errorf("update rating aggregate: %w", err)
	}
	s.metrics.RatingRecorded()

	result := &RecordResult{Aggregate: aggregate, Average: aggregate.Average()}

	tx := entities.RatingTransaction{
		UserID:      raterID,
		From:        raterID,
		To:          rateeID,
		Score:       score,
		Description: description,
		Date:        utils.FormatLedgerTime(s.now(), s.loc),
	}
	id, err := s.store.Add(ctx, repository.CollectionRatingsTransaction, tx.Fields())
	if err != nil {
		s.metrics.StoreError("add")
		s.logger.Error("rating transaction not recorded",
			"rater_id", raterID, "ratee_id", rateeID, "score", score, "error", err)
		return result, fmt.Errorf("%w: %w", ErrTransactionNotRecorded, err)
	}
	tx.ID = id
	result.Transaction = &tx

	s.logger.Info("rating recorded",
		"rater_id", raterID,
		"ratee_id", rateeID,
		"score", score,
		"rating_count", aggregate.RatingCount,
	)

	if s.notifier != nil {
		if err := s.notifier.NotifyRatingReceived(ctx, tx); err != nil {
			s.logger.Warn("rating notification failed", "ratee_id", rateeID, "error", err)
		}
	}
	return result, nil
}

// RecordRatingAsync runs RecordRating in the background. The returned
// channel receives exactly one outcome and is then closed; it is buffered so
// the caller may stop listening without leaking the goroutine.
//
// Go Learning Note — Receive-Only Channels:
// Returning `<-chan RecordOutcome` hands the caller a one-shot future: it can
// only read, so completion is signalled from exactly one place.
func (s *RatingService) RecordRatingAsync(ctx context.Context, raterID, rateeID string, score float64, description string) <-chan RecordOutcome {
	done := make(chan RecordOutcome, 1)
	go func() {
		defer close(done)
		result, err := s.RecordRating(ctx, raterID, rateeID, score, description)
		done <- RecordOutcome{Result: result, Err: err}
	}()
	return done
}

// GetAverageRating returns the average and count of ratings userID received.
// A user never rated gets (0, 0).
func (s *RatingService) GetAverageRating(ctx context.Context, userID string) (float64, int, error) {
	doc, err := s.store.Get(ctx, repository.CollectionRatings, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		s.metrics.StoreError("get")
		return 0, 0, fmt.Errorf("get rating aggregate: %w", err)
	}
	agg := entities.RatingAggregateFromFields(userID, doc)
	return agg.Average(), agg.RatingCount, nil
}

// GetRatingHistory returns the ratings userID gave, newest first.
func (s *RatingService) GetRatingHistory(ctx context.Context, userID string) ([]entities.RatingTransaction, error) {
	return s.transactionsBy(ctx, entities.FieldUserID, userID)
}

// GetRatingsReceived returns the ratings userID received, newest first.
func (s *RatingService) GetRatingsReceived(ctx context.Context, userID string) ([]entities.RatingTransaction, error) {
	return s.transactionsBy(ctx, entities.FieldTo, userID)
}

func (s *RatingService) transactionsBy(ctx context.Context, field, userID string) ([]entities.RatingTransaction, error) {
	docs, err := s.store.Query(ctx, repository.CollectionRatingsTransaction, field, userID)
	if err != nil {
		s.metrics.StoreError("query")
		return nil, fmt.Errorf("query rating transactions: %w", err)
	}

	txs := make([]entities.RatingTransaction, 0, len(docs))
	for _, doc := range docs {
		txs = append(txs, entities.RatingTransactionFromFields(doc))
	}
	sortByDateDesc(txs, s.loc)
	return txs, nil
}

// sortByDateDesc orders transactions newest first. Dates that do not parse
// go last; equal dates fall back to id order.
func sortByDateDesc(txs []entities.RatingTransaction, loc *time.Location) {
	type dated struct {
		tx entities.RatingTransaction
		at time.Time
		ok bool
	}
	items := make([]dated, len(txs))
	for i, tx := range txs {
		at, err := utils.ParseLedgerTime(tx.Date, loc)
		items[i] = dated{tx: tx, at: at, ok: err == nil}
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.ok != b.ok:
			return a.ok
		case a.ok && !a.at.Equal(b.at):
			return a.at.After(b.at)
		default:
			return a.tx.ID < b.tx.ID
		}
	})

	for i := range items {
		txs[i] = items[i].tx
	}
}
