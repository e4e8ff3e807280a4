package catalog

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "bookstore"

// Metrics tracks catalog activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	BooksAdded    prometheus.Counter
	SalesRecorded prometheus.Counter
	UnitsSold     prometheus.Counter
	Revenue       prometheus.Gauge
	InventorySize prometheus.Gauge
	Rejected      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BooksAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "books_added_total",
			Help:      "Books appended to the inventory",
		}),
		SalesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sales_recorded_total",
			Help:      "Sales appended to the sales log",
		}),
		UnitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "units_sold_total",
			Help:      "Units sold across all sales",
		}),
		Revenue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "revenue",
			Help:      "Current total revenue",
		}),
		InventorySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "inventory_records",
			Help:      "Entries in the inventory sequence",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_rejected_total",
			Help:      "Catalog operations that returned an error",
		}, []string{"op", "reason"}),
	}

	reg.MustRegister(m.BooksAdded, m.SalesRecorded, m.UnitsSold, m.Revenue, m.InventorySize, m.Rejected)
	return m
}

func (m *Metrics) observe(snap Snapshot, revenue float64) {
	if m == nil {
		return
	}
	m.InventorySize.Set(float64(len(snap.Books)))
	m.Revenue.Set(revenue)
}

func (m *Metrics) bookAdded() {
	if m == nil {
		return
	}
	m.BooksAdded.Inc()
}

func (m *Metrics) saleRecorded(s Sale) {
	if m == nil {
		return
	}
	m.SalesRecorded.Inc()
	m.UnitsSold.Add(float64(s.Quantity))
}

func (m *Metrics) rejected(op string, err error) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(op, reason(err)).Inc()
}
