package services

import "github.com/prometheus/client_golang/prometheus"

var (
	syncWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_writes_total",
		Help: "Cart snapshots persisted to the device store",
	})

	syncConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sync_conflicts_total",
		Help: "Snapshot conflicts resolved",
	})

	backupsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_backups_created_total",
		Help: "Corruption backups written before purging invalid data",
	})

	sweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maintenance_sweeps_total",
		Help: "Maintenance sweeps executed",
	})
)

func init() {
	prometheus.MustRegister(syncWrites, syncConflicts, backupsCreated, sweepRuns)
}
