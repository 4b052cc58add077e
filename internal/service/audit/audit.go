// Package audit records the outcome of every tool call to the configured sinks.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dairy-mcp/internal/domain/models"
	"github.com/mamadbah2/dairy-mcp/internal/repository/mongodb"
	"github.com/mamadbah2/dairy-mcp/internal/repository/sheets"
)

const (
	invocationRange = "Invocations!A:G"
	timeLayout      = time.RFC3339
	sinkTimeout     = 5 * time.Second
)

// Sink persists one invocation.
type Sink interface {
	Save(ctx context.Context, invocation models.ToolInvocation) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, invocation models.ToolInvocation) error

// Save calls f.
func (f SinkFunc) Save(ctx context.Context, invocation models.ToolInvocation) error {
	return f(ctx, invocation)
}

// FromMongo stores invocations as documents.
func FromMongo(repo mongodb.Repository) Sink {
	return SinkFunc(repo.SaveToolInvocation)
}

// FromSheet appends invocations as spreadsheet rows.
func FromSheet(repo sheets.Repository) Sink {
	return SinkFunc(func(ctx context.Context, inv models.ToolInvocation) error {
		return repo.WriteRow(ctx, invocationRange, sheetRow(inv))
	})
}

func sheetRow(inv models.ToolInvocation) []interface{} {
	return []interface{}{
		inv.CreatedAt.UTC().Format(timeLayout),
		inv.Tool,
		inv.AuthMode,
		inv.Status,
		inv.HTTPStatus,
		inv.DurationMs,
		inv.Error,
	}
}

type namedSink struct {
	name string
	sink Sink
}

// Service fans invocations out to every registered sink in the background. Sink
// failures are logged and never reach the tool caller.
type Service struct {
	sinks  []namedSink
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewService creates an audit service without sinks; Record is then a no-op.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// AddSink registers a sink under name.
func (s *Service) AddSink(name string, sink Sink) {
	s.sinks = append(s.sinks, namedSink{name: name, sink: sink})
}

// Record hands invocation to every sink without waiting for them. The writes run on
// a context detached from ctx with their own timeout.
func (s *Service) Record(ctx context.Context, invocation models.ToolInvocation) {
	if len(s.sinks) == 0 {
		return
	}
	if invocation.CreatedAt.IsZero() {
		invocation.CreatedAt = time.Now().UTC()
	}

	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.write(detached, invocation)
	}()
}

// Wait blocks until every pending write has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) write(ctx context.Context, invocation models.ToolInvocation) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	for _, ns := range s.sinks {
		if err := ns.sink.Save(ctx, invocation); err != nil {
			s.logger.Warn("failed to record tool invocation",
				zap.String("sink", ns.name),
				zap.String("tool", invocation.Tool),
				zap.Error(err))
		}
	}
}
