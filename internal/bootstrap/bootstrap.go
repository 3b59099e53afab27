// Package bootstrap assembles the collaborators the server and the worker
// share from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"golang.org/x/crypto/bcrypt"

	"github.com/anonto42/socialape/backend/internal/blob"
	"github.com/anonto42/socialape/backend/internal/cache"
	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/events"
	"github.com/anonto42/socialape/backend/internal/identity"
	"github.com/anonto42/socialape/backend/internal/router"
	"github.com/anonto42/socialape/backend/internal/triggers"
	"github.com/anonto42/socialape/backend/pkg/config"
	"github.com/anonto42/socialape/backend/pkg/firebase"
)

// Runtime holds the wired store, change delivery and reactions
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger

	// Store publishes a change for every write unless the backend has
	// native triggers
	Store    docstore.Store
	Triggers *triggers.Router
	// Cache is shared by the API and the reactions that rewrite screams
	Cache cache.ScreamCache
	// Bus is set when NATS_URL is configured
	Bus *events.NATSBus

	base     docstore.Store
	firebase *firebase.App
	inline   *events.Inline
	natsConn *nats.Conn
	closers  []func() error
}

// New opens the configured store and connects change delivery to the
// reactions. Firestore delivers its own changes through /events/firestore.
// Otherwise writes are observed and go out on NATS when configured, or
// straight to the reactions in-process.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logger}

	if cfg.UsesFirebase() {
		app, err := firebase.InitFirebase(ctx, firebase.Options{
			CredentialsPath: cfg.FirebaseCredentialsPath,
			ProjectID:       cfg.FirebaseProjectID,
			StorageBucket:   cfg.StorageBucket,
		}, logger)
		if err != nil {
			return nil, err
		}
		rt.firebase = app
	}

	base, err := rt.openStore(ctx)
	if err != nil {
		return nil, err
	}
	rt.base = base
	rt.closers = append(rt.closers, base.Close)

	var publisher events.Publisher
	switch {
	case cfg.StoreBackend == config.BackendFirestore:
		rt.Store = base
	case cfg.NATSURL != "":
		conn, err := events.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.natsConn = conn
		rt.Bus = events.NewNATSBus(conn, logger)
		publisher = rt.Bus
	default:
		rt.inline = events.NewInline(true, logger)
		publisher = rt.inline
	}
	if publisher != nil {
		rt.Store = events.Observe(base, publisher, logger)
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, client.Close)
		rt.Cache = cache.NewRedisScreamCache(client)
	} else {
		rt.Cache = cache.NopScreamCache{}
	}

	rt.Triggers = triggers.NewRouter(triggers.NewReactions(rt.Store, rt.Cache, logger), logger)
	if rt.inline != nil {
		rt.inline.Attach(rt.Triggers)
	}

	logger.Info("runtime ready",
		"store", cfg.StoreBackend, "nats", cfg.NATSURL != "", "inline", rt.inline != nil)
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context) (docstore.Store, error) {
	cfg := rt.Config
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := rt.firebase.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		return docstore.NewFirestoreStore(client), nil
	case config.BackendMongo:
		client, err := config.OpenMongo(ctx, cfg.MongoURI, rt.Logger)
		if err != nil {
			return nil, err
		}
		return docstore.NewMongoStore(client, cfg.MongoDatabase), nil
	case config.BackendPostgres:
		db, err := config.OpenPostgres(cfg.PostgresURL, rt.Logger)
		if err != nil {
			return nil, err
		}
		store, err := docstore.NewGormStore(db)
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, err
		}
		return store, nil
	case config.BackendMemory:
		rt.Logger.Warn("using the in-memory store, data is lost on exit")
		return docstore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// HTTPDependencies builds the identity and blob collaborators the API needs
// on top of the runtime. The change event route is only served for
// Firestore, the one backend that delivers changes over HTTP.
func (rt *Runtime) HTTPDependencies(ctx context.Context) (router.Dependencies, error) {
	cfg := rt.Config
	deps := router.Dependencies{
		Store:  rt.Store,
		Cache:  rt.Cache,
		Logger: rt.Logger,
	}
	if cfg.StoreBackend == config.BackendFirestore {
		deps.Triggers = rt.Triggers
		deps.EventsToken = cfg.EventsToken
	}

	switch cfg.AuthBackend {
	case config.BackendFirebase:
		provider, err := identity.NewFirebaseProvider(ctx, rt.firebase.AuthClient, cfg.FirebaseAPIKey)
		if err != nil {
			return deps, err
		}
		deps.Identity = provider
	default:
		// credentials stay off the change stream
		deps.Identity = identity.NewLocalProvider(rt.base, cfg.JWTSecret, bcrypt.DefaultCost)
	}

	switch cfg.BlobBackend {
	case config.BackendFirebase:
		bucket, name, err := rt.firebase.Bucket(ctx)
		if err != nil {
			return deps, err
		}
		deps.Uploader = blob.NewFirebaseUploader(bucket, name)
	default:
		uploader, err := blob.NewLocalUploader(cfg.UploadDir, cfg.PublicBaseURL)
		if err != nil {
			return deps, err
		}
		deps.Uploader = uploader
		deps.UploadDir = uploader.Dir()
	}

	return deps, nil
}

// Close drains in-flight reactions, then closes connections in reverse
// order of opening
func (rt *Runtime) Close() error {
	if rt.inline != nil {
		rt.inline.Wait()
	}
	if rt.natsConn != nil {
		if err := rt.natsConn.Drain(); err != nil {
			rt.Logger.Warn("drain nats", "error", err)
		}
	}

	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
