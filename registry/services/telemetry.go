package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	treeCreates        = promauto.NewCounter(prometheus.CounterOpts{Name: "tree_creates", Help: "Family trees created"})
	treeDeletes        = promauto.NewCounter(prometheus.CounterOpts{Name: "tree_deletes", Help: "Family trees deleted"})
	memberCreates      = promauto.NewCounter(prometheus.CounterOpts{Name: "member_creates", Help: "Family members created"})
	memberDeletes      = promauto.NewCounter(prometheus.CounterOpts{Name: "member_deletes", Help: "Family members deleted"})
	relationshipAdds   = promauto.NewCounter(prometheus.CounterOpts{Name: "relationship_adds", Help: "Parent-child relationships added"})
	partnershipAdds    = promauto.NewCounter(prometheus.CounterOpts{Name: "partnership_adds", Help: "Partnerships added"})
	eventAdds          = promauto.NewCounter(prometheus.CounterOpts{Name: "event_adds", Help: "Member life events added"})
	photoUploads       = promauto.NewCounter(prometheus.CounterOpts{Name: "photo_uploads", Help: "Member photos uploaded"})
	integrityConflicts = promauto.NewCounter(prometheus.CounterOpts{Name: "integrity_conflicts", Help: "Writes rejected due to concurrent deletes"})

	storageFreeBytes  = promauto.NewGauge(prometheus.GaugeOpts{Name: "storage_free_bytes", Help: "Free space on the photo storage volume"})
	storageTotalBytes = promauto.NewGauge(prometheus.GaugeOpts{Name: "storage_total_bytes", Help: "Total space on the photo storage volume"})
)
