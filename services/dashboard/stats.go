package dashboard

// OrderSample is one order reduced to what the daily stats need.
type OrderSample struct {
	Hour   int
	Amount float64
	Status string
}

// ItemSample is one order line in the order the store processed it.
type ItemSample struct {
	Name     string
	Quantity int
	Revenue  float64
}

// HourBucket aggregates one hour of a day.
type HourBucket struct {
	Hour    int     `json:"hour"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// RankedItem is one menu item's share of today's sales.
type RankedItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// HourlyBuckets folds orders into 24 per-hour buckets. Cancelled orders count
// for neither volume nor revenue. Samples with out-of-range hours are dropped.
func HourlyBuckets(orders []OrderSample) [24]HourBucket {
	var buckets [24]HourBucket
	for i := range buckets {
		buckets[i].Hour = i
	}
	for _, o := range orders {
		if o.Hour < 0 || o.Hour > 23 || o.Status == "cancelled" {
			continue
		}
		buckets[o.Hour].Orders++
		buckets[o.Hour].Revenue += o.Amount
	}
	return buckets
}

// PeakHour returns the hour with the highest revenue. Ties go to the earliest
// hour; a day with no revenue peaks at hour 0.
func PeakHour(buckets [24]HourBucket) int {
	peak := 0
	for h := 1; h < len(buckets); h++ {
		if buckets[h].Revenue > buckets[peak].Revenue {
			peak = h
		}
	}
	return peak
}

// RankItems aggregates order lines by item name and returns the top n by
// quantity. Equal quantities keep their first-encountered order, so a stable
// input yields a stable ranking.
func RankItems(items []ItemSample, n int) []RankedItem {
	if n <= 0 {
		n = 5
	}

	index := make(map[string]int, len(items))
	ranked := make([]RankedItem, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		i, ok := index[it.Name]
		if !ok {
			index[it.Name] = len(ranked)
			ranked = append(ranked, RankedItem{Name: it.Name})
			i = len(ranked) - 1
		}
		ranked[i].Quantity += it.Quantity
		ranked[i].Revenue += it.Revenue
	}

	// Insertion sort keeps earlier entries ahead on ties.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Quantity > ranked[j-1].Quantity; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Turnover is completed orders per table. Zero tables means zero turnover.
func Turnover(completedOrders, tableCount int) float64 {
	if tableCount <= 0 {
		return 0
	}
	return float64(completedOrders) / float64(tableCount)
}
