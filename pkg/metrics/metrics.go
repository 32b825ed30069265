package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_notifications_total",
		Help: "Message-created triggers handled, by outcome",
	}, []string{"outcome"})

	PresenceUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_presence_updates_total",
		Help: "Status-updated triggers handled, by outcome",
	}, []string{"outcome"})

	PresenceRoomsUpdated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_presence_rooms_updated_total",
		Help: "Room presence fields written, by role",
	}, []string{"role"})

	GatewayConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_gateway_connections",
		Help: "Active presence websocket connections",
	})
)

func Init() {
	prometheus.MustRegister(Notifications, PresenceUpdates, PresenceRoomsUpdated, GatewayConnections)
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
