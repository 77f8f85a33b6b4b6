// Package tasks defines the background jobs run by cmd/worker.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/misproductos/backend/internal/obs"
)

// TypeWarmTenant refreshes a tenant's cached rules and pricing settings.
const TypeWarmTenant = "pricing:warm_tenant"

// WarmTenantPayload is the JSON body of a TypeWarmTenant task.
type WarmTenantPayload struct {
	TenantID string `json:"tenant_id"`
}

// NewWarmTenantTask builds the task for tenantID.
func NewWarmTenantTask(tenantID string) (*asynq.Task, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, errors.New("tasks: tenant id is required")
	}
	payload, err := json.Marshal(WarmTenantPayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWarmTenant, payload), nil
}

// Enqueuer schedules warm tasks on an asynq queue.
type Enqueuer struct {
	Client   *asynq.Client
	Queue    string
	MaxRetry int
}

// EnqueueWarm schedules a cache warm for tenantID. Every call enqueues a task;
// the refresh lock in the warmer orders them against invalidations.
func (e Enqueuer) EnqueueWarm(ctx context.Context, tenantID string) error {
	if e.Client == nil {
		return errors.New("tasks: client not configured")
	}
	task, err := NewWarmTenantTask(tenantID)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.MaxRetry(e.maxRetry())}
	if e.Queue != "" {
		opts = append(opts, asynq.Queue(e.Queue))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue warm task: %w", err)
	}
	return nil
}

func (e Enqueuer) maxRetry() int {
	if e.MaxRetry <= 0 {
		return 5
	}
	return e.MaxRetry
}

// Warmer reloads a tenant's pricing data into the cache.
type Warmer interface {
	Warm(ctx context.Context, tenantID string) error
}

// WarmHandler processes TypeWarmTenant tasks.
type WarmHandler struct {
	Warmer Warmer
	Logger *zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (h WarmHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p WarmTenantPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		obs.ObserveWarmTask("invalid")
		return fmt.Errorf("decode warm payload: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(p.TenantID) == "" {
		obs.ObserveWarmTask("invalid")
		return fmt.Errorf("warm payload without tenant_id: %w", asynq.SkipRetry)
	}
	if h.Warmer == nil {
		return errors.New("tasks: warmer not configured")
	}
	if err := h.Warmer.Warm(ctx, p.TenantID); err != nil {
		obs.ObserveWarmTask("error")
		if h.Logger != nil {
			h.Logger.Error().Err(err).Str("tenant_id", p.TenantID).Msg("warm pricing cache")
		}
		return err
	}
	obs.ObserveWarmTask("ok")
	if h.Logger != nil {
		h.Logger.Debug().Str("tenant_id", p.TenantID).Msg("pricing cache warmed")
	}
	return nil
}

// NewServeMux registers every task handler.
func NewServeMux(warm WarmHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeWarmTenant, warm)
	return mux
}
