package app

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/ntpu-section-swap/internal/buildinfo"
	"github.com/garyellow/ntpu-section-swap/internal/config"
	"github.com/garyellow/ntpu-section-swap/internal/ctxutil"
	domerrors "github.com/garyellow/ntpu-section-swap/internal/errors"
	"github.com/garyellow/ntpu-section-swap/internal/match"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

const moduleName = "app"

// intentResponse acknowledges a mirrored intent. Invalid intents are stored
// so a later edit can fix them, but they never take part in matching.
type intentResponse struct {
	ID       string   `json:"id"`
	Queued   bool     `json:"queued"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

func (a *Application) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

func (a *Application) readyHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": err.Error(),
		})
		return
	}

	intents, _ := a.db.CountIntents(ctx)
	matches, _ := a.db.CountMatches(ctx)
	profiles, _ := a.db.CountProfiles(ctx)

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"queue":    a.dispatcher.Len(),
		"store": gin.H{
			"intents":  intents,
			"matches":  matches,
			"profiles": profiles,
		},
	})
}

func (a *Application) upsertIntentHandler(c *gin.Context) {
	var in storage.Intent
	if err := c.ShouldBindJSON(&in); err != nil {
		a.badRequest(c, "malformed intent", err)
		return
	}
	if in.ID == "" || in.OwnerID == "" {
		a.badRequest(c, "id and owner_id are required", nil)
		return
	}

	ctx := ctxutil.WithUserID(ctxutil.WithIntentID(c.Request.Context(), in.ID), in.OwnerID)

	resp := intentResponse{ID: in.ID, Valid: true}
	if err := match.Validate(&in); err != nil {
		resp.Valid = false
		resp.Problems = domerrors.ValidationFields(err)
	}

	pending, err := a.db.UpsertIntent(ctx, &in)
	if err != nil {
		a.fail(c, domerrors.NewWrapper(moduleName, "upsert_intent").Wrap(err, "failed to store intent"))
		return
	}

	if pending && resp.Valid {
		if err := a.dispatcher.Enqueue(ctx, &in); err != nil {
			// The sweep picks unprocessed intents up later.
			a.logger.WithError(err).WithField("intent_id", in.ID).WarnContext(ctx, "Matching pass deferred to sweep")
		} else {
			resp.Queued = true
		}
	}

	c.JSON(http.StatusAccepted, resp)
}

func (a *Application) deleteIntentHandler(c *gin.Context) {
	id := c.Param("id")
	ctx := ctxutil.WithIntentID(c.Request.Context(), id)

	found, purged, err := a.db.DeleteIntent(ctx, id, a.cfg.Match.PurgeMatchesOnDelete)
	if err != nil {
		a.fail(c, domerrors.NewWrapper(moduleName, "delete_intent").Wrap(err, "failed to delete intent"))
		return
	}
	if !found {
		a.fail(c, domerrors.NewWrapper(moduleName, "delete_intent").Wrapf(domerrors.ErrNotFound, "intent %s not found", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true, "purged_matches": purged})
}

func (a *Application) upsertProfileHandler(c *gin.Context) {
	var p storage.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		a.badRequest(c, "malformed profile", err)
		return
	}
	p.UserID = c.Param("userID")
	p.UpdatedAt = time.Now()

	ctx := ctxutil.WithUserID(c.Request.Context(), p.UserID)
	if err := a.db.UpsertProfile(ctx, &p); err != nil {
		a.fail(c, domerrors.NewWrapper(moduleName, "upsert_profile").Wrap(err, "failed to store profile"))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *Application) matchesHandler(c *gin.Context) {
	userID := c.Param("userID")
	ctx := ctxutil.WithUserID(c.Request.Context(), userID)

	v, err := a.views.ForUser(ctx, userID)
	if err != nil {
		a.fail(c, domerrors.NewWrapper(moduleName, "list_matches").Wrap(err, "failed to load matches"))
		return
	}
	c.JSON(http.StatusOK, v)
}

func (a *Application) sweepHandler(c *gin.Context) {
	limit := a.cfg.Match.SweepLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.badRequest(c, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), config.SweepRun)
	defer cancel()

	sum, err := a.engine.Sweep(ctx, limit)
	if err != nil {
		a.fail(c, domerrors.NewWrapper(moduleName, "sweep").Wrap(err, "sweep failed"))
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (a *Application) badRequest(c *gin.Context, msg string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps a wrapped error onto a status code and replies with its user
// message.
func (a *Application) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domerrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domerrors.ErrInvalidIntent):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domerrors.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": domerrors.GetUserMessage(err)})
}
