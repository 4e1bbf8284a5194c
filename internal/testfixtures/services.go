package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/roombooker/internal/application"
	"github.com/example/roombooker/internal/availability"
	"github.com/example/roombooker/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Bookings       persistence.BookingRepository
	Rooms          persistence.RoomRepository
	Attendees      persistence.AttendeeRepository
	Index          *availability.Index
	Notifier       application.Notifier
	MaxOccurrences int
	Logger         *slog.Logger
}

// NewBookingService builds a booking service wired to the factory clock and
// identifier generator.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	return application.NewBookingService(application.BookingServiceConfig{
		Bookings:       deps.Bookings,
		Rooms:          deps.Rooms,
		Attendees:      deps.Attendees,
		Index:          deps.Index,
		Notifier:       deps.Notifier,
		IDGenerator:    f.IDGenerator.NextFunc(),
		Now:            f.Clock.NowFunc(),
		MaxOccurrences: deps.MaxOccurrences,
		Logger:         deps.Logger,
	})
}

// NewRoomService builds a room service wired to the factory clock and
// identifier generator.
func (f *ServiceFactory) NewRoomService(rooms persistence.RoomRepository) *application.RoomService {
	return application.NewRoomService(rooms, f.IDGenerator.NextFunc(), f.Clock.NowFunc())
}

// NewUserService builds a user service wired to the factory clock and
// identifier generator.
func (f *ServiceFactory) NewUserService(users persistence.UserRepository) *application.UserService {
	return application.NewUserService(users, f.IDGenerator.NextFunc(), f.Clock.NowFunc())
}

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Users      persistence.UserRepository
	Sessions   persistence.SessionRepository
	Verify     application.PasswordVerifier
	SessionTTL time.Duration
}

// NewAuthService builds an auth service wired to the factory clock and
// identifier generator. Deps.Verify defaults to the production verifier when
// nil, so tests normally supply a cheap stub.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	return application.NewAuthService(
		deps.Users,
		deps.Sessions,
		deps.Verify,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		deps.SessionTTL,
	)
}
