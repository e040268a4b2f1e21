package routing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/limshub/vessel-queue/internal/domain"
	"github.com/limshub/vessel-queue/internal/metrics"
	"github.com/limshub/vessel-queue/internal/vessel"
)

// ProductTypeRouter fans completed vessels out of a generic queue into a
// type-specific one, keyed on the vessel's product-type metadata.
//
// Vessels whose product type is absent or matches no rule are left alone.
// That silence is deliberate at the business level (some item classes
// legitimately carry no product type) but it is not invisible: each such
// vessel is logged and counted on the unrouted metric.
type ProductTypeRouter struct {
	trigger domain.QueueType
	rules   map[string]domain.QueueType
	vessels vessel.Resolver
	m       *metrics.Metrics
	logger  *zap.Logger
}

// DefaultProductRules maps product-type metadata values to target queues.
var DefaultProductRules = map[string]domain.QueueType{
	"array":      domain.QueuePlatingArray,
	"genotyping": domain.QueuePlatingArray,
	"sequencing": domain.QueuePlatingSequencing,
	"exome":      domain.QueuePlatingSequencing,
	"genome":     domain.QueuePlatingSequencing,
}

func NewProductTypeRouter(
	trigger domain.QueueType,
	rules map[string]domain.QueueType,
	vessels vessel.Resolver,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ProductTypeRouter {
	return &ProductTypeRouter{
		trigger: trigger,
		rules:   rules,
		vessels: vessels,
		m:       m,
		logger:  logger,
	}
}

// HandlePostDequeue groups the completed vessels by routing target and
// enqueues each group in one shot, so vessels finishing together stay
// together downstream.
func (r *ProductTypeRouter) HandlePostDequeue(
	ctx context.Context,
	completed []domain.Entry,
	enq Enqueuer,
	mc *domain.MessageCollection,
) error {
	if len(completed) == 0 {
		return nil
	}

	byTarget := make(map[domain.QueueType][]string)
	for _, e := range completed {
		target, productType, err := r.route(ctx, e.VesselLabel)
		if err != nil {
			return fmt.Errorf("route %s: %w", e.VesselLabel, err)
		}
		if target == "" {
			r.m.Unrouted.WithLabelValues(string(r.trigger), productType).Inc()
			r.logger.Warn("completed vessel not routed onward",
				zap.String("vessel", e.VesselLabel),
				zap.String("queue_type", string(r.trigger)),
				zap.String("product_type", productType),
			)
			continue
		}
		byTarget[target] = append(byTarget[target], e.VesselLabel)
	}

	for target, labels := range byTarget {
		req := domain.EnqueueRequest{
			VesselLabels: labels,
			Message:      fmt.Sprintf("Routed from %s on completion", r.trigger.DisplayName()),
			Origin:       domain.OriginRouted,
		}
		if _, err := enq.Enqueue(ctx, target, req, mc); err != nil {
			return fmt.Errorf("enqueue into %s: %w", target, err)
		}
		r.m.Routed.WithLabelValues(string(r.trigger), string(target)).Add(float64(len(labels)))
	}
	return nil
}

// route returns the target queue for a vessel, or "" when no rule applies.
// The second return is the product type seen, "" when absent (used only for
// the unrouted metric label).
func (r *ProductTypeRouter) route(ctx context.Context, label string) (domain.QueueType, string, error) {
	values, err := r.vessels.MetadataValues(ctx, label, vessel.MetadataKeyProductType)
	if err != nil {
		return "", "", err
	}
	if len(values) == 0 {
		return "", "", nil
	}
	// First recognized value wins; a vessel may carry several product types.
	for _, v := range values {
		if target, ok := r.rules[strings.ToLower(strings.TrimSpace(v))]; ok {
			return target, v, nil
		}
	}
	return "", values[0], nil
}
