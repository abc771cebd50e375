// Package telemetry 트레이싱과 프로메테우스 지표
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrUnknownExporter 지원하지 않는 트레이스 익스포터
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config 트레이싱 설정
type Config struct {
	ServiceName    string
	ServiceVersion string
	// TraceExporter "stdout" 또는 "none"
	TraceExporter string
	// Writer stdout 익스포터 출력 대상. nil 이면 표준 에러.
	Writer io.Writer
}

// DefaultConfig 트레이싱 비활성 기본값
func DefaultConfig() Config {
	return Config{
		ServiceName:    "code-intel",
		ServiceVersion: "0.1.0",
		TraceExporter:  "none",
	}
}

// Init 전역 트레이서 프로바이더 설정. 반환된 함수로 종료한다.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.TraceExporter {
	case "", "none":
		return noop, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("트레이스 익스포터 생성 실패: %w", err)
	}

	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("트레이서 종료 실패: %w", err)
		}
		return nil
	}, nil
}
