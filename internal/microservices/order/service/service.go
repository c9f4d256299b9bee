package service

import (
	"cafeteria-storefront/internal/common/logger"
	"cafeteria-storefront/internal/microservices/order/repository"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(repo *repository.Repository, relay Relay, currency string, lg *logger.Logger) *Service {
	return &Service{
		OrderService: NewOrderService(relay, repo.History, currency, lg),
	}
}
