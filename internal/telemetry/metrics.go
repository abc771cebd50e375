package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesAnalyzed 언어와 결과별 분석 파일 수
	FilesAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeintel_files_analyzed_total",
		Help: "Files analyzed by language and status",
	}, []string{"language", "status"})

	// AnalyzeDuration 작업별 소요 시간
	AnalyzeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codeintel_analyze_duration_seconds",
		Help:    "Time spent per analysis operation",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"operation"})

	// CacheLookups 모듈 캐시 조회 결과
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeintel_cache_lookups_total",
		Help: "Module cache lookups by result",
	}, []string{"result"})

	// DetectorFailures 탐지기별 실패 수
	DetectorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeintel_detector_failures_total",
		Help: "Pattern detector failures by detector",
	}, []string{"detector"})

	// VulnerabilitiesFound 심각도별 취약점 수
	VulnerabilitiesFound = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codeintel_vulnerabilities_found_total",
		Help: "Vulnerabilities reported by severity",
	}, []string{"severity"})
)
