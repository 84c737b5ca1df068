// pkg/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide counter set. A nil *Metrics is a valid no-op
// sink, so handlers never need to branch on whether metrics are enabled.
type Metrics struct {
	receivedNotifications prometheus.Counter
	sentNotifications     *prometheus.CounterVec
	registeredClients     prometheus.Counter
	registeredTenants     prometheus.Counter
	tenantUpdates         *prometheus.CounterVec
	tenantSuspensions     prometheus.Counter
	clientSuspensions     prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		receivedNotifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "received_notifications",
			Help: "The number of push notification requests received.",
		}),
		sentNotifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sent_notifications",
			Help: "The number of notifications handed to a provider.",
		}, []string{"provider"}),
		registeredClients: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "registered_clients",
			Help: "The number of client registrations.",
		}),
		registeredTenants: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "registered_tenants",
			Help: "The number of tenants created.",
		}),
		tenantUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenant_credential_updates",
			Help: "The number of tenant credential updates per provider.",
		}, []string{"provider"}),
		tenantSuspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenant_suspensions",
			Help: "The number of tenants suspended after credential failures.",
		}),
		clientSuspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "client_suspensions",
			Help: "The number of clients removed after device-token failures.",
		}),
	}
	reg.MustRegister(
		m.receivedNotifications, m.sentNotifications,
		m.registeredClients, m.registeredTenants,
		m.tenantUpdates, m.tenantSuspensions, m.clientSuspensions,
	)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) ReceivedNotification() {
	if m == nil {
		return
	}
	m.receivedNotifications.Inc()
}

func (m *Metrics) SentNotification(provider string) {
	if m == nil {
		return
	}
	m.sentNotifications.WithLabelValues(provider).Inc()
}

func (m *Metrics) RegisteredClient() {
	if m == nil {
		return
	}
	m.registeredClients.Inc()
}

func (m *Metrics) RegisteredTenant() {
	if m == nil {
		return
	}
	m.registeredTenants.Inc()
}

func (m *Metrics) TenantUpdate(provider string) {
	if m == nil {
		return
	}
	m.tenantUpdates.WithLabelValues(provider).Inc()
}

func (m *Metrics) TenantSuspension() {
	if m == nil {
		return
	}
	m.tenantSuspensions.Inc()
}

func (m *Metrics) ClientSuspension() {
	if m == nil {
		return
	}
	m.clientSuspensions.Inc()
}
