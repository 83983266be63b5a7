package dashboard

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestHourlyBuckets(t *testing.T) {
	orders := []OrderSample{
		{Hour: 9, Amount: 10, Status: "paid"},
		{Hour: 9, Amount: 5, Status: "served"},
		{Hour: 12, Amount: 30, Status: "paid"},
		{Hour: 12, Amount: 8, Status: "cancelled"},
		{Hour: 25, Amount: 99, Status: "paid"},
	}

	buckets := HourlyBuckets(orders)
	if buckets[9].Orders != 2 || buckets[9].Revenue != 15 {
		t.Fatalf("hour 9: %+v", buckets[9])
	}
	if buckets[12].Orders != 1 || buckets[12].Revenue != 30 {
		t.Fatalf("cancelled order counted: %+v", buckets[12])
	}
	if buckets[0].Orders != 0 {
		t.Fatalf("out-of-range hour landed in bucket 0: %+v", buckets[0])
	}
}

func TestPeakHour(t *testing.T) {
	tests := []struct {
		name string
		revs map[int]float64
		want int
	}{
		{"clear winner", map[int]float64{9: 10, 12: 50, 19: 40}, 12},
		{"tie goes to earliest", map[int]float64{8: 25, 20: 25}, 8},
		{"empty day", nil, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buckets [24]HourBucket
			for h, rev := range tc.revs {
				buckets[h].Revenue = rev
			}
			if got := PeakHour(buckets); got != tc.want {
				t.Fatalf("peak = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRankItems(t *testing.T) {
	items := []ItemSample{
		{Name: "Espresso", Quantity: 2, Revenue: 7},
		{Name: "Toastie", Quantity: 1, Revenue: 8},
		{Name: "Espresso", Quantity: 3, Revenue: 10.5},
		{Name: "Flat white", Quantity: 1, Revenue: 4.5},
		{Name: "Toastie", Quantity: 4, Revenue: 32},
		{Name: "Tea", Quantity: 0, Revenue: 0},
	}

	ranked := RankItems(items, 2)
	want := []RankedItem{
		{Name: "Espresso", Quantity: 5, Revenue: 17.5},
		{Name: "Toastie", Quantity: 5, Revenue: 40},
	}
	if !reflect.DeepEqual(ranked, want) {
		t.Fatalf("ranked = %+v, want %+v", ranked, want)
	}
}

func TestRankItemsTieKeepsFirstEncountered(t *testing.T) {
	items := []ItemSample{
		{Name: "Toastie", Quantity: 3, Revenue: 24},
		{Name: "Espresso", Quantity: 3, Revenue: 10.5},
	}
	ranked := RankItems(items, 5)
	if ranked[0].Name != "Toastie" {
		t.Fatalf("tie broke against first-encountered: %+v", ranked)
	}
}

func TestTurnover(t *testing.T) {
	if got := Turnover(12, 4); got != 3 {
		t.Fatalf("turnover = %v, want 3", got)
	}
	if got := Turnover(5, 0); got != 0 {
		t.Fatalf("zero tables turnover = %v, want 0", got)
	}
}

func TestTrackerApplyAndSnapshot(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	t1 := uuid.New()
	t2 := uuid.New()
	tracker.apply(StatusEvent{StoreID: "s1", TableID: t1, Name: "T1", Status: "seated", Occupancy: 4}, at)
	tracker.apply(StatusEvent{StoreID: "s1", TableID: t2, Name: "T2", Status: "empty"}, at)
	tracker.apply(StatusEvent{StoreID: "s2", TableID: uuid.New(), Name: "X1", Status: "seated", Occupancy: 2}, at)

	// Later events replace earlier state for the same table.
	tracker.apply(StatusEvent{StoreID: "s1", TableID: t1, Name: "T1", Status: "empty"}, at.Add(time.Minute))

	snap := tracker.Snapshot("s1")
	if len(snap) != 2 {
		t.Fatalf("snapshot size = %d, want 2", len(snap))
	}
	if state := snap[t1]; state.Status != "empty" || state.Occupancy != 0 {
		t.Fatalf("t1 state = %+v", state)
	}
	if !snap[t1].UpdatedAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("t1 updated_at = %v", snap[t1].UpdatedAt)
	}

	if len(tracker.Snapshot("s2")) != 1 {
		t.Fatal("s2 snapshot missing its table")
	}
	if len(tracker.Snapshot("unknown")) != 0 {
		t.Fatal("unknown store snapshot not empty")
	}
}

func TestTrackerDropsMalformedEvents(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())

	if err := tracker.handle(nil, []byte("not json")); err != nil {
		t.Fatalf("malformed event should be dropped, got %v", err)
	}
	if err := tracker.handle(nil, []byte(`{"status":"seated"}`)); err != nil {
		t.Fatalf("event without identity should be dropped, got %v", err)
	}
	if len(tracker.Snapshot("")) != 0 {
		t.Fatal("malformed events must not mutate state")
	}
}
