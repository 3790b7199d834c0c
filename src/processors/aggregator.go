// backend/src/processors/aggregator.go
package processors

import (
	"sort"
	"strings"

	"github.com/username/customsdash/backend/src/models"
	"github.com/username/customsdash/backend/src/utils"
)

// DefaultOtherLabel names the bucket that collects collapsed rows.
const DefaultOtherLabel = "Other"

// keySep joins key tuples; it cannot appear in decoded CSV text cells.
const keySep = "\x1f"

// Partition is one group of rows sharing a partition key value.
type Partition struct {
	Value string
	Rows  []models.AggregateRow
}

// GroupSum sums metric per distinct key tuple. Missing or unparseable metric
// values count as zero so no record is dropped. Rows come out in the order
// their key tuple first appears.
func GroupSum(table models.CanonicalTable, keys []models.Field, metric models.Field) []models.AggregateRow {
	index := make(map[string]int)
	var rows []models.AggregateRow

	parts := make([]string, len(keys))
	for _, rec := range table.Records {
		for i, k := range keys {
			parts[i] = rec.Text(k)
		}
		tuple := strings.Join(parts, keySep)

		pos, seen := index[tuple]
		if !seen {
			key := make(map[string]string, len(keys))
			for i, k := range keys {
				key[string(k)] = parts[i]
			}
			pos = len(rows)
			index[tuple] = pos
			rows = append(rows, models.AggregateRow{Key: key})
		}
		rows[pos].Value += utils.FillNaN(rec.Metric(metric))
	}
	if rows == nil {
		rows = []models.AggregateRow{}
	}
	return rows
}

// PercentOfPartition sets Percent to each row's share (in percent) of the
// total of the rows sharing its partitionKey value. A zero-total partition
// gets 0 for every row. An empty partitionKey treats all rows as one group.
func PercentOfPartition(rows []models.AggregateRow, partitionKey string) []models.AggregateRow {
	totals := make(map[string]float64)
	for _, r := range rows {
		totals[r.Key[partitionKey]] += r.Value
	}

	out := make([]models.AggregateRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
		total := totals[r.Key[partitionKey]]
		if total == 0 {
			out[i].Percent = 0
			continue
		}
		out[i].Percent = 100 * r.Value / total
	}
	return out
}

// SortByValueDesc returns a copy of rows in stable descending value order.
func SortByValueDesc(rows []models.AggregateRow) []models.AggregateRow {
	out := make([]models.AggregateRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// TopNWithOther keeps the n largest rows and folds the rest into one row
// labeled DefaultOtherLabel.
func TopNWithOther(rows []models.AggregateRow, n int, labelField string) []models.AggregateRow {
	return TopNWithOtherLabel(rows, n, labelField, DefaultOtherLabel)
}

// TopNWithOtherLabel is TopNWithOther with a custom bucket label. The sum of
// values is conserved. The bucket copies its key and label from the first
// collapsed row, with labelField replaced by otherLabel, and is flagged Other.
// When there are no more than n rows they are returned in input order. n below
// 1 is treated as 1.
func TopNWithOtherLabel(rows []models.AggregateRow, n int, labelField, otherLabel string) []models.AggregateRow {
	if n < 1 {
		n = 1
	}
	if len(rows) <= n {
		out := make([]models.AggregateRow, len(rows))
		copy(out, rows)
		return out
	}
	sorted := SortByValueDesc(rows)

	out := make([]models.AggregateRow, 0, n+1)
	out = append(out, sorted[:n]...)

	other := sorted[n].Clone()
	other.Key[labelField] = otherLabel
	other.Value = 0
	other.Percent = 0
	other.Other = true
	for _, r := range sorted[n:] {
		other.Value += r.Value
	}
	return append(out, other)
}

// PartitionRows splits rows by the value of key, keeping first-occurrence
// order of partitions and of rows within each partition.
func PartitionRows(rows []models.AggregateRow, key string) []Partition {
	index := make(map[string]int)
	var parts []Partition
	for _, r := range rows {
		v := r.Key[key]
		pos, ok := index[v]
		if !ok {
			pos = len(parts)
			index[v] = pos
			parts = append(parts, Partition{Value: v})
		}
		parts[pos].Rows = append(parts[pos].Rows, r)
	}
	return parts
}

// DominantLabel maps each keyField value to the labelField value of its
// largest row. Ties go to the row that came first.
func DominantLabel(rows []models.AggregateRow, keyField, labelField string) map[string]string {
	out := make(map[string]string)
	for _, r := range SortByValueDesc(rows) {
		k := r.Key[keyField]
		if _, ok := out[k]; ok {
			continue
		}
		out[k] = r.Key[labelField]
	}
	return out
}

// SumValues totals the Value column.
func SumValues(rows []models.AggregateRow) float64 {
	var total float64
	for _, r := range rows {
		total += r.Value
	}
	return total
}
