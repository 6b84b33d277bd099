package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

// MarkDelivered moves a paid order to delivered. Only admins may call it.
func (s *orderService) MarkDelivered(ctx context.Context, who entities.Identity, orderID string) (entities.Order, error) {
	if !who.IsAdmin {
		return entities.Order{}, fmt.Errorf("mark order %s delivered: %w", orderID, entities.ErrForbidden)
	}

	order, err := s.transition(ctx, orderID, func(o *entities.Order) (bool, error) {
		switch o.Status {
		case entities.StatusDelivered:
			return false, fmt.Errorf("order %s: %w", o.ID, entities.ErrAlreadyDelivered)
		case entities.StatusPlaced:
			return false, fmt.Errorf("order %s: %w", o.ID, entities.ErrNotPaid)
		}

		o.Status = entities.StatusDelivered
		o.Delivery = &entities.Delivery{
			DeliveredAt: s.timestamp(),
			DeliveredBy: who.ID,
		}
		return true, nil
	})
	if err != nil {
		return entities.Order{}, err
	}

	deliveriesTotal.Inc()
	s.logger.Info("order delivered",
		slog.String("order_id", order.ID),
		slog.String("delivered_by", who.ID),
	)
	return order, nil
}
