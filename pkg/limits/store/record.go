package store

import (
	"fmt"
	"time"

	"mercator-hq/trafficwatch/pkg/traffic"
)

// Record names.
const (
	NameMin = "min"
	NameMax = "max"
)

// TableName is the table holding limit records in SQL stores.
const TableName = "limits_per_hour"

// Record is one row of the limits table.
type Record struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement" yaml:"-" json:"id"`
	Name          string    `gorm:"column:limit_name;not null;index" yaml:"name" json:"limit_name"`
	Value         int64     `gorm:"column:limit_value;not null" yaml:"value" json:"limit_value"`
	EffectiveDate time.Time `gorm:"column:effective_date;not null;index" yaml:"effective_date" json:"effective_date"`
}

// TableName tells gorm which table holds records.
func (Record) TableName() string {
	return TableName
}

// Select applies the latest-effective-period rule to records.
func Select(records []Record) (traffic.Limits, error) {
	if len(records) == 0 {
		return traffic.Limits{}, fmt.Errorf("%w: no limit records", traffic.ErrLimitsUnavailable)
	}

	latest := records[0].EffectiveDate
	for _, r := range records[1:] {
		if r.EffectiveDate.After(latest) {
			latest = r.EffectiveDate
		}
	}

	return selectPeriod(latest, records)
}

// selectPeriod picks the min and max of the given period. records may
// contain other periods; they are ignored.
func selectPeriod(period time.Time, records []Record) (traffic.Limits, error) {
	var (
		mins, maxes []int64
	)
	for _, r := range records {
		if !r.EffectiveDate.Equal(period) {
			continue
		}
		switch r.Name {
		case NameMin:
			mins = append(mins, r.Value)
		case NameMax:
			maxes = append(maxes, r.Value)
		}
	}

	if len(mins) != 1 || len(maxes) != 1 {
		return traffic.Limits{}, fmt.Errorf("%w: period %s has %d min and %d max records, want 1 each",
			traffic.ErrLimitsUnavailable, period.Format(time.RFC3339), len(mins), len(maxes))
	}

	return traffic.NewLimits(mins[0], maxes[0])
}

func validateRecord(r Record) error {
	if r.Name != NameMin && r.Name != NameMax {
		return fmt.Errorf("invalid limit name %q, must be %q or %q", r.Name, NameMin, NameMax)
	}
	if r.Value < 0 {
		return fmt.Errorf("invalid limit value %d, must not be negative", r.Value)
	}
	if r.EffectiveDate.IsZero() {
		return fmt.Errorf("effective date is required")
	}
	return nil
}
