package service

import (
	"slotbook/internal/scheduling/repository"
	"slotbook/pkg/config"
	"slotbook/pkg/events"
	"slotbook/pkg/profile"
	"slotbook/pkg/timenorm"
)

// SchedulingService is the single entry point used by the HTTP layer and the
// sweeper.
type SchedulingService interface {
	AvailabilityService
	ReservationLedger
	// Normalizer formats stored instants back into local date and time.
	Normalizer() *timenorm.Normalizer
}

type schedulingService struct {
	AvailabilityService
	ReservationLedger
	normalizer *timenorm.Normalizer
}

func NewSchedulingService(
	store *repository.Store,
	normalizer *timenorm.Normalizer,
	rates profile.RateProvider,
	publisher events.Publisher,
	cfg *config.Config,
	now Clock,
) SchedulingService {
	if now == nil {
		now = SystemClock
	}
	detector := NewConflictDetector(store.Windows, store.Reservations, now)
	return &schedulingService{
		AvailabilityService: NewAvailabilityService(store, normalizer, cfg, now),
		ReservationLedger:   NewReservationLedger(store, detector, normalizer, rates, publisher, cfg, now),
		normalizer:          normalizer,
	}
}

func (s *schedulingService) Normalizer() *timenorm.Normalizer {
	return s.normalizer
}
