package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics содержит метрики операций витрины.
type StorefrontMetrics struct {
	// Счётчики действий посетителей
	sessionsCreated  prometheus.Counter
	outfitSelections *prometheus.CounterVec
	cartAdds         *prometheus.CounterVec
	cartRemovals     *prometheus.CounterVec
	outfitTransfers  *prometheus.CounterVec
	viewSwitches     *prometheus.CounterVec
	themeToggles     prometheus.Counter
	versionConflicts prometheus.Counter

	// Распределения
	cartTotal        prometheus.Histogram
	operationLatency *prometheus.HistogramVec
}

// NewStorefrontMetrics регистрирует метрики в DefaultRegisterer.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в переданном registerer.
// Повторная регистрация переиспользует уже зарегистрированные коллекторы.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		sessionsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_sessions_created_total",
			Help: "Total number of storefront sessions created",
		}),
		outfitSelections: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_outfit_selections_total",
			Help: "Total number of items placed on the mannequin grouped by category",
		}, []string{"category"}),
		cartAdds: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_adds_total",
			Help: "Total number of cart lines added grouped by source",
		}, []string{"source"}),
		cartRemovals: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_cart_removals_total",
			Help: "Total number of cart removal requests grouped by result",
		}, []string{"result"}),
		outfitTransfers: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_outfit_transfers_total",
			Help: "Total number of outfit-to-cart transfers grouped by result",
		}, []string{"result"}),
		viewSwitches: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_view_switches_total",
			Help: "Total number of screen switches grouped by target view",
		}, []string{"view"}),
		themeToggles: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_theme_toggles_total",
			Help: "Total number of theme toggles",
		}),
		versionConflicts: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_session_version_conflicts_total",
			Help: "Total number of optimistic locking conflicts on session save",
		}),
		cartTotal: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_cart_total",
			Help:    "Cart total observed after each cart mutation, in whole currency units",
			Buckets: []float64{0, 1000, 2500, 5000, 10000, 20000, 50000, 100000},
		}),
		operationLatency: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_operation_duration_seconds",
			Help:    "Duration of storefront operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"operation"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordSessionCreated увеличивает счётчик созданных сессий.
func (m *StorefrontMetrics) RecordSessionCreated() {
	m.sessionsCreated.Inc()
}

// RecordOutfitSelection учитывает примерку товара на манекен.
func (m *StorefrontMetrics) RecordOutfitSelection(category string) {
	m.outfitSelections.WithLabelValues(category).Inc()
}

// RecordCartAdd учитывает добавленные в корзину позиции.
func (m *StorefrontMetrics) RecordCartAdd(source string, lines int) {
	m.cartAdds.WithLabelValues(source).Add(float64(lines))
}

// RecordCartRemoval учитывает запрос на удаление (removed / missing).
func (m *StorefrontMetrics) RecordCartRemoval(removed bool) {
	result := "missing"
	if removed {
		result = "removed"
	}
	m.cartRemovals.WithLabelValues(result).Inc()
}

// RecordOutfitTransfer учитывает перенос образа (transferred / unavailable).
func (m *StorefrontMetrics) RecordOutfitTransfer(available bool) {
	result := "unavailable"
	if available {
		result = "transferred"
	}
	m.outfitTransfers.WithLabelValues(result).Inc()
}

// RecordViewSwitch учитывает переключение экрана.
func (m *StorefrontMetrics) RecordViewSwitch(view string) {
	m.viewSwitches.WithLabelValues(view).Inc()
}

// RecordThemeToggle увеличивает счётчик переключений темы.
func (m *StorefrontMetrics) RecordThemeToggle() {
	m.themeToggles.Inc()
}

// RecordVersionConflict увеличивает счётчик конфликтов optimistic locking.
func (m *StorefrontMetrics) RecordVersionConflict() {
	m.versionConflicts.Inc()
}

// ObserveCartTotal записывает сумму корзины после изменения.
func (m *StorefrontMetrics) ObserveCartTotal(total int64) {
	m.cartTotal.Observe(float64(total))
}

// RecordOperationDuration записывает время выполнения операции.
func (m *StorefrontMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}
