package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	// Счетчик всех HTTP запросов с метками метода, пути и статуса
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Гистограмма времени обработки HTTP запросов (для расчета перцентилей)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets, // [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
		},
		[]string{"method", "path"},
	)

	// Generation metrics
	// Счетчик запусков генерации расписания по алгоритму и итоговому статусу
	GenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Total number of timetable generation runs",
		},
		[]string{"algorithm", "status"}, // algorithm: "heuristic"/"cpsat", status: "completed"/"failed"
	)

	// Гистограмма длительности генерации в секундах, с метками по алгоритму
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_duration_seconds",
			Help:    "Timetable generation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"algorithm"},
	)

	// Гистограмма количества незаполненных часов (shortage) по завершении генерации
	GenerationShortageHours = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_shortage_hours",
			Help:    "Number of lesson-hours left unplaced at the end of a generation run",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"algorithm"},
	)

	// Gauge количества одновременно выполняющихся генераций
	ActiveGenerations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_generations",
			Help: "Number of timetable generations currently in flight",
		},
	)

	// Счетчик отказов из-за параллельной генерации для одного и того же расписания
	GenerationLockContentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_lock_contention_total",
			Help: "Total number of generation requests rejected because a generation was already in progress for the timetable",
		},
	)

	// Database metrics
	// Gauge для активных подключений к базе данных
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// Gauge для idle подключений к базе данных
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Счетчик ошибок базы данных
	DBErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_errors_total",
			Help: "Total number of database errors",
		},
	)
)
