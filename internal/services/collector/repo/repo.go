// Package repo holds the record sinks the aggregator fans out to
package repo

import (
	"srcfingerprint/internal/services/collector/domain"
)

var (
	_ domain.RecordWriter = (*File)(nil)
	_ domain.RecordWriter = (*PG)(nil)
	_ domain.RecordWriter = (*CH)(nil)
	_ domain.RecordWriter = (*Stream)(nil)
)
