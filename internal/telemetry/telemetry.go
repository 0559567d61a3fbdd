// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/azure/azure-ai-foundry-mcp/internal/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/azure/azure-ai-foundry-mcp"

// Attribute keys recorded on tool spans.
const (
	ToolNameKey      = attribute.Key("mcp.tool.name")
	CorrelationIDKey = attribute.Key("azure.correlation_id")
)

// GetTracer returns the tracer used for tool spans. Until Start installs a provider this is the
// global no-op tracer.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// System is a running trace pipeline that writes finished spans to a file.
type System struct {
	tracerProvider *sdktrace.TracerProvider
	file           *os.File
}

// Start installs a global tracer provider exporting spans as JSON lines to path.
// An empty path leaves tracing disabled and returns nil.
func Start(path string) (*System, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource()),
	)
	otel.SetTracerProvider(tp)

	return &System{
		tracerProvider: tp,
		file:           file,
	}, nil
}

// Shutdown flushes pending spans and closes the trace file.
func (s *System) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}

	err := s.tracerProvider.Shutdown(ctx)
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	return err
}

func newResource() *resource.Resource {
	return resource.NewSchemaless(
		attribute.String("service.name", version.ServerName),
		attribute.String("service.version", version.Version),
	)
}
