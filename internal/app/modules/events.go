package modules

import (
	"context"

	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/domain"
	"formbuilder.io/formbuilder/internal/pkg/logger"
	"formbuilder.io/formbuilder/internal/pkg/worker"
)

// AsyncPublisher delivers committed events on the general pool so audit
// writes never hold up the request that caused them.
type AsyncPublisher struct {
	dispatcher *domain.EventDispatcher
	pools      *worker.Pools
}

func NewAsyncPublisher(dispatcher *domain.EventDispatcher, pools *worker.Pools) *AsyncPublisher {
	return &AsyncPublisher{dispatcher: dispatcher, pools: pools}
}

func (p *AsyncPublisher) Publish(ctx context.Context, events ...*domain.DomainEvent) {
	if len(events) == 0 {
		return
	}
	actor := domain.ActorFrom(ctx)
	err := p.pools.SubmitDetached(worker.PoolGeneral, func(ctx context.Context) {
		p.dispatcher.DispatchAll(domain.WithActor(ctx, actor), events)
	})
	if err != nil {
		// Pool closed or saturated: deliver inline rather than lose the
		// audit trail.
		logger.Warn("event delivery fell back to inline dispatch",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
		p.dispatcher.DispatchAll(context.WithoutCancel(ctx), events)
	}
}

// InlinePublisher dispatches events on the calling goroutine. Short-lived
// commands use it so nothing is pending when they exit.
type InlinePublisher struct {
	dispatcher *domain.EventDispatcher
}

func NewInlinePublisher(dispatcher *domain.EventDispatcher) *InlinePublisher {
	return &InlinePublisher{dispatcher: dispatcher}
}

func (p *InlinePublisher) Publish(ctx context.Context, events ...*domain.DomainEvent) {
	p.dispatcher.DispatchAll(ctx, events)
}
