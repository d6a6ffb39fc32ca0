package etl

import (
	"context"
	"log/slog"
	"strings"

	"github.com/JamesPrial/bed-occupancy-core/internal/storage"
	"github.com/JamesPrial/bed-occupancy-core/pkg/errors"
	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

// Rejection describes a row that was skipped
type Rejection struct {
	Line    int              `json:"line"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// Result summarises an import run
type Result struct {
	RowsRead int         `json:"rows_read"`
	Loaded   int         `json:"loaded"`
	Rejected []Rejection `json:"rejected"`
}

// Loader writes rows through the storage contract
type Loader struct {
	backend     storage.Backend
	metrics     *logging.MetricsCollector
	logger      *slog.Logger
	errLogger   *errors.Logger
	interceptor *logging.RequestInterceptor
}

// Option customizes a Loader
type Option func(*Loader)

// WithMetrics counts loaded and rejected rows
func WithMetrics(collector *logging.MetricsCollector) Option {
	return func(l *Loader) {
		l.metrics = collector
	}
}

func NewLoader(backend storage.Backend, opts ...Option) *Loader {
	logger := logging.GetGlobalLogger("etl")
	l := &Loader{
		backend:     backend,
		logger:      logger,
		errLogger:   errors.NewLoggerWithSlog(logger),
		interceptor: logging.NewRequestInterceptor(logger),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run extracts, transforms and loads src
func (l *Loader) Run(ctx context.Context, src Source) (*Result, error) {
	var result *Result
	err := l.interceptor.InterceptRequest(ctx, "etl.run", func(ctx context.Context) error {
		rows, err := Extract(src)
		if err != nil {
			return err
		}
		l.logger.InfoContext(ctx, "Extracted rows",
			slog.String("path", src.Path),
			slog.Int("rows", len(rows)),
		)

		result, err = l.Load(ctx, rows)
		return err
	})
	return result, err
}

// Load creates one record per row. Invalid rows are rejected and skipped;
// any other failure stops the run and is returned with the partial result.
func (l *Loader) Load(ctx context.Context, rows []RawRow) (*Result, error) {
	result := &Result{Rejected: make([]Rejection, 0)}
	defer func() {
		l.metrics.RecordImportRows("loaded", result.Loaded)
		l.metrics.RecordImportRows("rejected", len(result.Rejected))
	}()

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, errors.Wrap(err, errors.ErrCodeContextCanceled, "import canceled")
		}
		result.RowsRead++

		in, unused, err := Transform(row)
		if err == nil {
			if len(unused) > 0 {
				l.logger.DebugContext(ctx, "Ignoring unknown columns",
					slog.Int("line", row.Line),
					slog.String("columns", strings.Join(unused, ",")),
				)
			}
			_, err = l.backend.Create(ctx, in)
		}

		switch {
		case err == nil:
			result.Loaded++
		case errors.IsValidation(err):
			l.reject(ctx, result, row.Line, err)
		default:
			l.logger.WarnContext(ctx, "Import aborted", slog.Int("line", row.Line))
			return result, l.errLogger.LogError(ctx, err, "etl.load")
		}
	}

	l.logger.InfoContext(ctx, "Import finished",
		slog.Int("rows_read", result.RowsRead),
		slog.Int("loaded", result.Loaded),
		slog.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func (l *Loader) reject(ctx context.Context, result *Result, line int, err error) {
	rejection := Rejection{
		Line:    line,
		Code:    errors.GetCode(err),
		Message: errors.GetMessage(err),
	}
	result.Rejected = append(result.Rejected, rejection)

	l.logger.WarnContext(ctx, "Row rejected",
		slog.Int("line", line),
		slog.String("code", string(rejection.Code)),
		slog.String("error", rejection.Message),
	)
}
