// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scans counts attendance scans by outcome status.
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_scans_total",
		Help: "Attendance scans by outcome status.",
	}, []string{"status"})

	// Logins counts login attempts by step and result.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_logins_total",
		Help: "Login attempts by step and result.",
	}, []string{"step", "result"})

	// Registrations counts registration attempts by step and result.
	Registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrattend_registrations_total",
		Help: "Registration attempts by step and result.",
	}, []string{"step", "result"})
)
