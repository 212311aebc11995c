package entities

import "testing"

func TestRatingAggregate_Apply(t *testing.T) {
	agg := RatingAggregate{UserID: "u2"}
	for _, s := range []float64{4.5, 3.0, 5.0} {
		agg.Apply(s)
	}

	if agg.RatingCount != 3 {
		t.Errorf("Expected count 3, got %d", agg.RatingCount)
	}
	if agg.CumulativeScore != 12.5 {
		t.Errorf("Expected cumulative 12.5, got %f", agg.CumulativeScore)
	}
	if got := agg.Average(); got != 12.5/3 {
		t.Errorf("Expected average %f, got %f", 12.5/3, got)
	}
}

func TestRatingAggregate_AverageZeroCount(t *testing.T) {
	agg := RatingAggregate{UserID: "u2", CumulativeScore: 7}
	if got := agg.Average(); got != 0 {
		t.Errorf("Expected 0 average for zero count, got %f", got)
	}
}

func TestRatingAggregateFromFields(t *testing.T) {
	agg := RatingAggregateFromFields("u2", map[string]any{
		FieldScore:        float64(9),
		FieldTotalRatings: float64(2),
	})
	if agg.UserID != "u2" || agg.CumulativeScore != 9 || agg.RatingCount != 2 {
		t.Errorf("Unexpected aggregate %+v", agg)
	}

	negative := RatingAggregateFromFields("u3", map[string]any{FieldTotalRatings: -4})
	if negative.RatingCount != 0 {
		t.Errorf("Expected negative count clamped to 0, got %d", negative.RatingCount)
	}
}

func TestRatingTransaction_FieldsRoundTrip(t *testing.T) {
	tx := RatingTransaction{
		UserID: "u1", From: "u1", To: "u2",
		Score: 4.5, Description: "great ride", Date: "01/01/2024 10:00:00",
	}
	fields := tx.Fields()
	fields["id"] = "tx-1"

	got := RatingTransactionFromFields(fields)
	tx.ID = "tx-1"
	if got != tx {
		t.Errorf("Expected %+v, got %+v", tx, got)
	}
}

func TestAdminGroupFromFields_JSONSlices(t *testing.T) {
	g := AdminGroupFromFields(map[string]any{
		"groupId":   "g1",
		"memberIds": []any{"u1", 42, "u2"},
	})
	if len(g.MemberIDs) != 2 || g.MemberIDs[0] != "u1" || g.MemberIDs[1] != "u2" {
		t.Errorf("Expected string members only, got %v", g.MemberIDs)
	}
}

func TestDriver_IsActive(t *testing.T) {
	d := Driver{DrivingID: "123456789012", Status: StatusActive}
	if !d.IsActive() {
		t.Error("Expected active driver")
	}
	d.Status = StatusSuspended
	if d.IsActive() {
		t.Error("Expected suspended driver to be inactive")
	}
}
