package triggers

import (
	"context"
	"log/slog"

	"github.com/anonto42/socialape/backend/internal/events"
	"github.com/anonto42/socialape/backend/internal/metrics"
	"github.com/anonto42/socialape/backend/internal/models"
)

type reaction struct {
	name string
	run  func(ctx context.Context, change events.Change) error
}

// Router dispatches changes to the matching reaction. Failures are logged
// and counted, never returned: nothing upstream can retry them.
type Router struct {
	routes map[string]map[events.Kind]reaction
	logger *slog.Logger
}

// NewRouter routes each collection and change kind to its reaction in r
func NewRouter(r *Reactions, logger *slog.Logger) *Router {
	return &Router{
		logger: logger,
		routes: map[string]map[events.Kind]reaction{
			models.LikesCollection: {
				events.Created: {"createNotificationOnLike", r.OnLikeCreated},
				events.Deleted: {"deleteNotificationOnUnlike", r.OnLikeDeleted},
			},
			models.CommentsCollection: {
				events.Created: {"createNotificationOnComment", r.OnCommentCreated},
			},
			models.UsersCollection: {
				events.Updated: {"onUserImageChange", r.OnUserImageChanged},
			},
			models.ScreamsCollection: {
				events.Deleted: {"onScreamDelete", r.OnScreamDeleted},
			},
		},
	}
}

// Handle runs the reaction for change, if any. It always returns nil.
func (rt *Router) Handle(ctx context.Context, change events.Change) error {
	re, ok := rt.routes[change.Collection][change.Kind()]
	if !ok {
		return nil
	}

	if err := re.run(ctx, change); err != nil {
		metrics.ReactionsTotal.WithLabelValues(re.name, "error").Inc()
		rt.logger.Error("reaction failed",
			"trigger", re.name, "collection", change.Collection, "documentId", change.ID, "error", err)
		return nil
	}
	metrics.ReactionsTotal.WithLabelValues(re.name, "ok").Inc()
	rt.logger.Debug("reaction done",
		"trigger", re.name, "collection", change.Collection, "documentId", change.ID)
	return nil
}
