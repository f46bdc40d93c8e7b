// Package store provides traffic limit sources.
//
// Every source keeps limits as named records with an effective date, the
// layout of the limits_per_hour table:
//
//	id | limit_name | limit_value | effective_date
//
// Fetch selects the records of the latest effective date and requires
// exactly one "min" and one "max" among them. Any other count yields
// traffic.ErrLimitsUnavailable; a min above the max yields
// traffic.ErrInvalidLimitsRange.
//
// Implementations:
//
//   - SQLiteSource: database/sql over modernc.org/sqlite ("sqlite") or
//     github.com/mattn/go-sqlite3 ("sqlite3")
//   - PostgresSource: gorm over gorm.io/driver/postgres
//   - FileSource: a YAML document, optionally watched with fsnotify
//   - MemorySource: records held in memory
package store
