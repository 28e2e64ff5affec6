package services

import (
	"family_tree/registry/auth"
	"family_tree/registry/storage"
	"family_tree/utils"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Registry is the top level service, composing the user, tree, and member
// services over a shared database and storage root.
type Registry struct {
	user   UserService
	tree   TreeService
	member MemberService

	db      *gorm.DB
	storage storage.Storage
	stop    chan bool
}

func NewRegistry(db *gorm.DB, store storage.Storage, userAuth auth.IdentityProvider) Registry {
	return Registry{
		user:    UserService{db: db, storage: store, userAuth: userAuth},
		tree:    TreeService{db: db, storage: store, userAuth: userAuth},
		member:  MemberService{db: db, storage: store, userAuth: userAuth},
		db:      db,
		storage: store,
		stop:    make(chan bool, 1),
	}
}

func (m *Registry) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", m.user.Routes())
	r.Mount("/tree", m.tree.Routes())
	r.Mount("/member", m.member.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (m *Registry) usageSync() {
	stats, err := m.storage.Usage()
	if err != nil {
		slog.Error("usage sync: unable to read storage usage", "error", err)
		return
	}

	storageFreeBytes.Set(float64(stats.FreeBytes))
	storageTotalBytes.Set(float64(stats.TotalBytes))
}

// StorageUsageSync periodically samples free space on the photo storage
// volume so the gauges stay current between uploads.
func (m *Registry) StorageUsageSync(interval time.Duration) {
	slog.Info("usage sync: starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.usageSync()
		case <-m.stop:
			slog.Info("usage sync: process stopped")
			return
		}
	}
}

func (m *Registry) StopStorageUsageSync() {
	close(m.stop)
}
