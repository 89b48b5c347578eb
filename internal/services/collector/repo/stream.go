package repo

import (
	"context"
	"strconv"
	"time"

	perr "srcfingerprint/internal/platform/errors"
	"srcfingerprint/internal/platform/store"
	"srcfingerprint/internal/services/collector/domain"
)

// DefaultStream is the redis stream records are appended to
const DefaultStream = "srcfp:fingerprints"

// Stream appends every record to a redis stream for downstream consumers
type Stream struct {
	rds    store.Redis
	stream string
	maxLen int64
}

// NewStream returns a stream sink; empty name uses DefaultStream, maxLen <= 0 keeps everything
func NewStream(rds store.Redis, name string, maxLen int64) *Stream {
	if name == "" {
		name = DefaultStream
	}
	return &Stream{rds: rds, stream: name, maxLen: maxLen}
}

// Name identifies the sink in logs and metrics
func (s *Stream) Name() string { return "redis:" + s.stream }

// Write appends one entry
func (s *Stream) Write(ctx context.Context, r domain.Record) error {
	if _, err := s.rds.XAdd(ctx, s.stream, s.maxLen, streamValues(r)); err != nil {
		return perr.WithOp(perr.Wrapf(err, perr.ErrorCodeUnavailable, "append %s", r.RepositoryName), "repo.stream.write")
	}
	return nil
}

// Close is a no-op; the client belongs to the store
func (s *Stream) Close(context.Context) error { return nil }

func streamValues(r domain.Record) map[string]any {
	return map[string]any{
		"run_id":           r.RunID,
		"repository_name":  r.RepositoryName,
		"provider":         string(r.Provider),
		"scope":            r.Scope,
		"location":         r.Location,
		"sha":              r.SHA,
		"private":          strconv.FormatBool(r.Private),
		"fork":             strconv.FormatBool(r.Fork),
		"archived":         strconv.FormatBool(r.Archived),
		"fingerprinted_at": r.FingerprintedAt.Format(time.RFC3339Nano),
	}
}
