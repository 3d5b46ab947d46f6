package reports

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Raventwist88/ontrakk/internal/stats"
)

var ErrInvalidFormat = errors.New("invalid report format")

// StatsSource computes stats for a query.
type StatsSource interface {
	Compute(ctx context.Context, q stats.Query) (*stats.Stats, error)
}

type Service struct {
	stats     StatsSource
	generator *Generator
	now       func() time.Time
}

func NewService(source StatsSource, generator *Generator) *Service {
	return &Service{stats: source, generator: generator, now: time.Now}
}

// ParseFormat defaults to csv.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", ErrInvalidFormat
}

// Render computes stats for q and renders them in format.
func (s *Service) Render(ctx context.Context, q stats.Query, format string) (*Report, error) {
	format, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	if q.Window == "" {
		q.Window = stats.WindowAll
	}

	st, err := s.stats.Compute(ctx, q)
	if err != nil {
		return nil, err
	}

	report := &Report{Format: format, Window: q.Window, GeneratedAt: s.now().UTC()}
	if report.Data, err = s.generator.Generate(format, q.Window, st, report.GeneratedAt); err != nil {
		return nil, err
	}
	return report, nil
}
