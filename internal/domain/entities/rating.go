package entities

// Stored field names of the Ratings and RatingsTransaction collections.
const (
	FieldScore        = "Score"
	FieldTotalRatings = "TotalRatings"

	FieldUserID      = "userId"
	FieldFrom        = "from"
	FieldTo          = "to"
	FieldDescription = "description"
	FieldDate        = "date"
)

// RatingAggregate is the running total of the ratings one user received.
// It is created by the first rating and updated by every later one; it is
// never deleted.
type RatingAggregate struct {
	UserID          string  `json:"user_id"`
	CumulativeScore float64 `json:"cumulative_score"`
	RatingCount     int     `json:"rating_count"`
}

// Apply folds one more rating into the aggregate.
func (a *RatingAggregate) Apply(score float64) {
	a.CumulativeScore += score
	a.RatingCount++
}

// Average returns the mean score, or 0 when no ratings were counted. A
// stored aggregate with a zero count is treated the same as no aggregate.
func (a RatingAggregate) Average() float64 {
	if a.RatingCount <= 0 {
		return 0
	}
	return a.CumulativeScore / float64(a.RatingCount)
}

// Fields returns the stored form of the aggregate.
func (a RatingAggregate) Fields() map[string]any {
	return map[string]any{
		FieldScore:        a.CumulativeScore,
		FieldTotalRatings: a.RatingCount,
	}
}

// RatingAggregateFromFields reads a stored aggregate. Negative counts are
// clamped to zero.
func RatingAggregateFromFields(userID string, m map[string]any) RatingAggregate {
	count := int(fieldFloat(m, FieldTotalRatings))
	if count < 0 {
		count = 0
	}
	return RatingAggregate{
		UserID:          userID,
		CumulativeScore: fieldFloat(m, FieldScore),
		RatingCount:     count,
	}
}

// RatingTransaction is one immutable entry of the append-only rating log.
// UserID and From both name the rater; To names the ratee. Date uses the
// ledger layout (dd/MM/yyyy HH:mm:ss) in the ledger timezone.
type RatingTransaction struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

// Fields returns the stored form of the transaction (without its id).
func (t RatingTransaction) Fields() map[string]any {
	return map[string]any{
		FieldUserID:      t.UserID,
		FieldFrom:        t.From,
		FieldTo:          t.To,
		FieldScore:       t.Score,
		FieldDescription: t.Description,
		FieldDate:        t.Date,
	}
}

// RatingTransactionFromFields reads a stored transaction; the id is taken
// from the "id" key.
func RatingTransactionFromFields(m map[string]any) RatingTransaction {
	return RatingTransaction{
		ID:          fieldString(m, "id"),
		UserID:      fieldString(m, FieldUserID),
		From:        fieldString(m, FieldFrom),
		To:          fieldString(m, FieldTo),
		Score:       fieldFloat(m, FieldScore),
		Description: fieldString(m, FieldDescription),
		Date:        fieldString(m, FieldDate),
	}
}
