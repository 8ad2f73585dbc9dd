package core

import (
	"context"
	"time"
)

// Service exposes the allocation engine and transactional CRUD for the
// organizational reference data. Loan orchestration lives in loans.go.
type Service struct {
	store   PersistentStore
	guard   AccessGuard
	logger  Logger
	metrics MetricsRecorder
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithAccessGuard overrides the default role guard.
func WithAccessGuard(guard AccessGuard) ServiceOption {
	return func(s *Service) {
		if guard != nil {
			s.guard = guard
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder attaches a metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		guard:   NewRoleGuard(),
		logger:  NopLogger(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Authorize consults the access guard without performing any operation.
func (s *Service) Authorize(ctx context.Context, actor ActorContext, action string, scope Scope) error {
	return s.guard.Authorize(ctx, actor, action, scope)
}

// observe reports one operation outcome to the logger and metrics recorder.
func (s *Service) observe(ctx context.Context, operation string, start time.Time, err error) {
	duration := time.Since(start)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	if err != nil {
		s.logger.Warn("operation failed", "operation", operation, "error", err)
		return
	}
	s.logger.Debug("operation completed", "operation", operation, "duration_ms", duration.Milliseconds())
}

// Reference data CRUD ---------------------------------------------------------

// CreateOffice persists a new office.
func (s *Service) CreateOffice(ctx context.Context, office Office) (Office, Result, error) {
	var created Office
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateOffice(office)
		return err
	})
	return created, res, err
}

// UpdateOffice mutates an office using the provided mutator.
func (s *Service) UpdateOffice(ctx context.Context, id string, mutator func(*Office) error) (Office, Result, error) {
	var updated Office
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateOffice(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteOffice removes an office without dependents.
func (s *Service) DeleteOffice(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteOffice(id)
	})
}

// ListOffices returns all offices.
func (s *Service) ListOffices(context.Context) []Office { return s.store.ListOffices() }

// CreateRoom persists a new room.
func (s *Service) CreateRoom(ctx context.Context, room Room) (Room, Result, error) {
	var created Room
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateRoom(room)
		return err
	})
	return created, res, err
}

// UpdateRoom mutates a room using the provided mutator.
func (s *Service) UpdateRoom(ctx context.Context, id string, mutator func(*Room) error) (Room, Result, error) {
	var updated Room
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateRoom(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteRoom removes a room without desks.
func (s *Service) DeleteRoom(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteRoom(id)
	})
}

// ListRooms returns all rooms.
func (s *Service) ListRooms(context.Context) []Room { return s.store.ListRooms() }

// CreateDesk persists a new desk.
func (s *Service) CreateDesk(ctx context.Context, desk Desk) (Desk, Result, error) {
	var created Desk
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateDesk(desk)
		return err
	})
	return created, res, err
}

// UpdateDesk mutates a desk using the provided mutator.
func (s *Service) UpdateDesk(ctx context.Context, id string, mutator func(*Desk) error) (Desk, Result, error) {
	var updated Desk
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateDesk(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteDesk removes a desk.
func (s *Service) DeleteDesk(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteDesk(id)
	})
}

// ListDesks returns all desks.
func (s *Service) ListDesks(context.Context) []Desk { return s.store.ListDesks() }

// CreateDepartment persists a new department.
func (s *Service) CreateDepartment(ctx context.Context, dept Department) (Department, Result, error) {
	var created Department
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateDepartment(dept)
		return err
	})
	return created, res, err
}

// UpdateDepartment mutates a department using the provided mutator.
func (s *Service) UpdateDepartment(ctx context.Context, id string, mutator func(*Department) error) (Department, Result, error) {
	var updated Department
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateDepartment(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteDepartment removes a department without positions or members.
func (s *Service) DeleteDepartment(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteDepartment(id)
	})
}

// ListDepartments returns all departments.
func (s *Service) ListDepartments(context.Context) []Department { return s.store.ListDepartments() }

// CreateDepartmentPosition persists a numbered position slot.
func (s *Service) CreateDepartmentPosition(ctx context.Context, position DepartmentPosition) (DepartmentPosition, Result, error) {
	var created DepartmentPosition
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateDepartmentPosition(position)
		return err
	})
	return created, res, err
}

// DeleteDepartmentPosition removes a position slot.
func (s *Service) DeleteDepartmentPosition(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteDepartmentPosition(id)
	})
}

// ListDepartmentPositions returns all position slots.
func (s *Service) ListDepartmentPositions(context.Context) []DepartmentPosition {
	return s.store.ListDepartmentPositions()
}

// CreatePerson persists a new directory person.
func (s *Service) CreatePerson(ctx context.Context, person Person) (Person, Result, error) {
	var created Person
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePerson(person)
		return err
	})
	return created, res, err
}

// UpdatePerson mutates a person using the provided mutator.
func (s *Service) UpdatePerson(ctx context.Context, id string, mutator func(*Person) error) (Person, Result, error) {
	var updated Person
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdatePerson(id, mutator)
		return err
	})
	return updated, res, err
}

// DeletePerson removes a person from the directory.
func (s *Service) DeletePerson(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeletePerson(id)
	})
}

// ListPersons returns all directory persons.
func (s *Service) ListPersons(context.Context) []Person { return s.store.ListPersons() }

// CreateAssetCategory persists a new category.
func (s *Service) CreateAssetCategory(ctx context.Context, category AssetCategory) (AssetCategory, Result, error) {
	var created AssetCategory
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateAssetCategory(category)
		return err
	})
	return created, res, err
}

// DeleteAssetCategory removes an unused category.
func (s *Service) DeleteAssetCategory(ctx context.Context, id string) (Result, error) {
	return s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteAssetCategory(id)
	})
}

// ListAssetCategories returns all categories.
func (s *Service) ListAssetCategories(context.Context) []AssetCategory {
	return s.store.ListAssetCategories()
}

// CreateAsset records inventory intake. New assets start available.
func (s *Service) CreateAsset(ctx context.Context, asset Asset) (Asset, Result, error) {
	var created Asset
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateAsset(asset)
		return err
	})
	return created, res, err
}

// UpdateAsset mutates asset metadata using the provided mutator. Status
// changes go through the transition operations in loans.go.
func (s *Service) UpdateAsset(ctx context.Context, id string, mutator func(*Asset) error) (Asset, Result, error) {
	var updated Asset
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateAsset(id, mutator)
		return err
	})
	return updated, res, err
}

// GetAsset retrieves one asset from committed state.
func (s *Service) GetAsset(_ context.Context, id string) (Asset, bool) {
	return s.store.GetAsset(id)
}

// ListAssets returns all assets.
func (s *Service) ListAssets(context.Context) []Asset { return s.store.ListAssets() }
