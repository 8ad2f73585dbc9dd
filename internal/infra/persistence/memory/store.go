// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. It also supplies the
// transactional semantics that the durable backends reuse: every transaction
// runs against a deep clone of the committed state under a store-wide mutex,
// rules are evaluated against the candidate state, and the clone replaces the
// committed state only when nothing blocked. Conflicting loan operations are
// therefore serialized by construction.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"inventorycore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain
// persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Asset aliases domain.Asset for in-memory persistence operations.
	Asset = domain.Asset
	// AssetCategory aliases domain.AssetCategory.
	AssetCategory = domain.AssetCategory
	// Person aliases domain.Person.
	Person = domain.Person
	// Office aliases domain.Office.
	Office = domain.Office
	// Room aliases domain.Room.
	Room = domain.Room
	// Desk aliases domain.Desk.
	Desk = domain.Desk
	// Department aliases domain.Department.
	Department = domain.Department
	// DepartmentPosition aliases domain.DepartmentPosition.
	DepartmentPosition = domain.DepartmentPosition
	// Loan aliases domain.Loan ledger records.
	Loan = domain.Loan
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// LoanFilter aliases domain.LoanFilter.
	LoanFilter = domain.LoanFilter
)

type memoryState struct {
	assets     map[string]Asset
	categories map[string]AssetCategory
	persons    map[string]Person
	offices    map[string]Office
	rooms      map[string]Room
	desks      map[string]Desk
	depts      map[string]Department
	positions  map[string]DepartmentPosition
	loans      map[string]Loan
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Assets      map[string]Asset              `json:"assets"`
	Categories  map[string]AssetCategory      `json:"categories"`
	Persons     map[string]Person             `json:"persons"`
	Offices     map[string]Office             `json:"offices"`
	Rooms       map[string]Room               `json:"rooms"`
	Desks       map[string]Desk               `json:"desks"`
	Departments map[string]Department         `json:"departments"`
	Positions   map[string]DepartmentPosition `json:"positions"`
	Loans       map[string]Loan               `json:"loans"`
}

func newMemoryState() memoryState {
	return memoryState{
		assets:     make(map[string]Asset),
		categories: make(map[string]AssetCategory),
		persons:    make(map[string]Person),
		offices:    make(map[string]Office),
		rooms:      make(map[string]Room),
		desks:      make(map[string]Desk),
		depts:      make(map[string]Department),
		positions:  make(map[string]DepartmentPosition),
		loans:      make(map[string]Loan),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.assets {
		cloned.assets[k] = cloneAsset(v)
	}
	for k, v := range s.categories {
		cloned.categories[k] = v
	}
	for k, v := range s.persons {
		cloned.persons[k] = clonePerson(v)
	}
	for k, v := range s.offices {
		cloned.offices[k] = v
	}
	for k, v := range s.rooms {
		cloned.rooms[k] = v
	}
	for k, v := range s.desks {
		cloned.desks[k] = cloneDesk(v)
	}
	for k, v := range s.depts {
		cloned.depts[k] = v
	}
	for k, v := range s.positions {
		cloned.positions[k] = v
	}
	for k, v := range s.loans {
		cloned.loans[k] = cloneLoan(v)
	}
	return cloned
}

func cloneAsset(a Asset) Asset {
	cp := a
	if a.PurchaseDate != nil {
		d := *a.PurchaseDate
		cp.PurchaseDate = &d
	}
	return cp
}

func clonePerson(p Person) Person {
	cp := p
	cp.DepartmentID = cloneStringPtr(p.DepartmentID)
	cp.PositionID = cloneStringPtr(p.PositionID)
	return cp
}

func cloneDesk(d Desk) Desk {
	cp := d
	cp.OccupantID = cloneStringPtr(d.OccupantID)
	return cp
}

func cloneLoan(l Loan) Loan {
	cp := l
	cp.Snapshot.DepartmentID = cloneStringPtr(l.Snapshot.DepartmentID)
	if l.DueDate != nil {
		d := *l.DueDate
		cp.DueDate = &d
	}
	if l.ClosedAt != nil {
		c := *l.ClosedAt
		cp.ClosedAt = &c
	}
	return cp
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock, for deterministic tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

func newID() string {
	return uuid.NewString()
}

// ExportState returns a deep copy of the committed state for durable backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state.clone()
	return Snapshot{
		Assets:      st.assets,
		Categories:  st.categories,
		Persons:     st.persons,
		Offices:     st.offices,
		Rooms:       st.rooms,
		Desks:       st.desks,
		Departments: st.depts,
		Positions:   st.positions,
		Loans:       st.loans,
	}
}

// ImportState replaces the committed state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for k, v := range snapshot.Assets {
		state.assets[k] = cloneAsset(v)
	}
	for k, v := range snapshot.Categories {
		state.categories[k] = v
	}
	for k, v := range snapshot.Persons {
		state.persons[k] = clonePerson(v)
	}
	for k, v := range snapshot.Offices {
		state.offices[k] = v
	}
	for k, v := range snapshot.Rooms {
		state.rooms[k] = v
	}
	for k, v := range snapshot.Desks {
		state.desks[k] = cloneDesk(v)
	}
	for k, v := range snapshot.Departments {
		state.depts[k] = v
	}
	for k, v := range snapshot.Positions {
		state.positions[k] = v
	}
	for k, v := range snapshot.Loans {
		state.loans[k] = cloneLoan(v)
	}
	s.state = state
}

// transaction implements domain.Transaction over a cloned state.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

// view implements domain.TransactionView over a state snapshot.
type view struct {
	state *memoryState
}

var _ TransactionView = view{}

// RunInTransaction executes fn within a transactional copy of the store state.
// The candidate state is evaluated by the rules engine; blocking violations
// abort the commit and surface as domain.RuleViolationError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, view{state: &tx.state}, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(view{state: &snapshot})
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view of the in-flight transaction state.
func (tx *transaction) Snapshot() TransactionView {
	return view{state: &tx.state}
}

// Now returns the transaction clock; all timestamps within one transaction
// agree.
func (tx *transaction) Now() time.Time {
	return tx.now
}

// CreateAsset stores a new asset. Serial numbers are unique and the category
// must exist. An empty status defaults to available.
func (tx *transaction) CreateAsset(a Asset) (Asset, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if _, exists := tx.state.assets[a.ID]; exists {
		return Asset{}, fmt.Errorf("asset %q already exists", a.ID)
	}
	if _, ok := tx.state.categories[a.CategoryID]; !ok {
		return Asset{}, domain.NotFoundError{Entity: domain.EntityAssetCategory, ID: a.CategoryID}
	}
	for _, other := range tx.state.assets {
		if other.SerialNumber == a.SerialNumber {
			return Asset{}, fmt.Errorf("serial number %q already registered to asset %s", a.SerialNumber, other.ID)
		}
	}
	if a.Status == "" {
		a.Status = domain.StatusAvailable
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.assets[a.ID] = cloneAsset(a)
	tx.recordChange(Change{Entity: domain.EntityAsset, Action: domain.ActionCreate, After: cloneAsset(a)})
	return cloneAsset(a), nil
}

// UpdateAsset mutates an asset using the provided mutator function.
func (tx *transaction) UpdateAsset(id string, mutator func(*Asset) error) (Asset, error) {
	current, ok := tx.state.assets[id]
	if !ok {
		return Asset{}, domain.NotFoundError{Entity: domain.EntityAsset, ID: id}
	}
	before := cloneAsset(current)
	if err := mutator(&current); err != nil {
		return Asset{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.assets[id] = cloneAsset(current)
	tx.recordChange(Change{Entity: domain.EntityAsset, Action: domain.ActionUpdate, Before: before, After: cloneAsset(current)})
	return cloneAsset(current), nil
}

// DeleteAsset removes an asset. Assets referenced by loan history cannot be
// deleted; retirement is the supported removal path.
func (tx *transaction) DeleteAsset(id string) error {
	current, ok := tx.state.assets[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityAsset, ID: id}
	}
	for _, l := range tx.state.loans {
		if l.AssetID == id {
			return fmt.Errorf("asset %q has loan history and cannot be deleted", id)
		}
	}
	delete(tx.state.assets, id)
	tx.recordChange(Change{Entity: domain.EntityAsset, Action: domain.ActionDelete, Before: cloneAsset(current)})
	return nil
}

// CreateAssetCategory stores a new category. Names are unique.
func (tx *transaction) CreateAssetCategory(c AssetCategory) (AssetCategory, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if _, exists := tx.state.categories[c.ID]; exists {
		return AssetCategory{}, fmt.Errorf("asset category %q already exists", c.ID)
	}
	for _, other := range tx.state.categories {
		if other.Name == c.Name {
			return AssetCategory{}, fmt.Errorf("asset category name %q already in use", c.Name)
		}
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.categories[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityAssetCategory, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateAssetCategory mutates an existing category.
func (tx *transaction) UpdateAssetCategory(id string, mutator func(*AssetCategory) error) (AssetCategory, error) {
	current, ok := tx.state.categories[id]
	if !ok {
		return AssetCategory{}, domain.NotFoundError{Entity: domain.EntityAssetCategory, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return AssetCategory{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.categories[id] = current
	tx.recordChange(Change{Entity: domain.EntityAssetCategory, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteAssetCategory removes a category with no assets.
func (tx *transaction) DeleteAssetCategory(id string) error {
	current, ok := tx.state.categories[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityAssetCategory, ID: id}
	}
	for _, a := range tx.state.assets {
		if a.CategoryID == id {
			return fmt.Errorf("asset category %q is still referenced by assets", id)
		}
	}
	delete(tx.state.categories, id)
	tx.recordChange(Change{Entity: domain.EntityAssetCategory, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreatePerson stores a directory person. Department and position refs must
// exist when set.
func (tx *transaction) CreatePerson(p Person) (Person, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if _, exists := tx.state.persons[p.ID]; exists {
		return Person{}, fmt.Errorf("person %q already exists", p.ID)
	}
	if err := tx.checkPersonRefs(p); err != nil {
		return Person{}, err
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.persons[p.ID] = clonePerson(p)
	tx.recordChange(Change{Entity: domain.EntityPerson, Action: domain.ActionCreate, After: clonePerson(p)})
	return clonePerson(p), nil
}

func (tx *transaction) checkPersonRefs(p Person) error {
	if p.DepartmentID != nil {
		if _, ok := tx.state.depts[*p.DepartmentID]; !ok {
			return domain.NotFoundError{Entity: domain.EntityDepartment, ID: *p.DepartmentID}
		}
	}
	if p.PositionID != nil {
		if _, ok := tx.state.positions[*p.PositionID]; !ok {
			return domain.NotFoundError{Entity: domain.EntityDepartmentPosition, ID: *p.PositionID}
		}
	}
	return nil
}

// UpdatePerson mutates a person record.
func (tx *transaction) UpdatePerson(id string, mutator func(*Person) error) (Person, error) {
	current, ok := tx.state.persons[id]
	if !ok {
		return Person{}, domain.NotFoundError{Entity: domain.EntityPerson, ID: id}
	}
	before := clonePerson(current)
	if err := mutator(&current); err != nil {
		return Person{}, err
	}
	if err := tx.checkPersonRefs(current); err != nil {
		return Person{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.persons[id] = clonePerson(current)
	tx.recordChange(Change{Entity: domain.EntityPerson, Action: domain.ActionUpdate, Before: before, After: clonePerson(current)})
	return clonePerson(current), nil
}

// DeletePerson removes a person from the directory.
func (tx *transaction) DeletePerson(id string) error {
	current, ok := tx.state.persons[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityPerson, ID: id}
	}
	delete(tx.state.persons, id)
	tx.recordChange(Change{Entity: domain.EntityPerson, Action: domain.ActionDelete, Before: clonePerson(current)})
	return nil
}

// CreateOffice stores an office record.
func (tx *transaction) CreateOffice(o Office) (Office, error) {
	if o.ID == "" {
		o.ID = newID()
	}
	if _, exists := tx.state.offices[o.ID]; exists {
		return Office{}, fmt.Errorf("office %q already exists", o.ID)
	}
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	tx.state.offices[o.ID] = o
	tx.recordChange(Change{Entity: domain.EntityOffice, Action: domain.ActionCreate, After: o})
	return o, nil
}

// UpdateOffice mutates an office record.
func (tx *transaction) UpdateOffice(id string, mutator func(*Office) error) (Office, error) {
	current, ok := tx.state.offices[id]
	if !ok {
		return Office{}, domain.NotFoundError{Entity: domain.EntityOffice, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Office{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.offices[id] = current
	tx.recordChange(Change{Entity: domain.EntityOffice, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteOffice removes an office with no rooms or departments.
func (tx *transaction) DeleteOffice(id string) error {
	current, ok := tx.state.offices[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityOffice, ID: id}
	}
	for _, r := range tx.state.rooms {
		if r.OfficeID == id {
			return fmt.Errorf("office %q still has rooms", id)
		}
	}
	for _, d := range tx.state.depts {
		if d.OfficeID == id {
			return fmt.Errorf("office %q still has departments", id)
		}
	}
	delete(tx.state.offices, id)
	tx.recordChange(Change{Entity: domain.EntityOffice, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateRoom stores a room within an existing office.
func (tx *transaction) CreateRoom(r Room) (Room, error) {
	if r.ID == "" {
		r.ID = newID()
	}
	if _, exists := tx.state.rooms[r.ID]; exists {
		return Room{}, fmt.Errorf("room %q already exists", r.ID)
	}
	if _, ok := tx.state.offices[r.OfficeID]; !ok {
		return Room{}, domain.NotFoundError{Entity: domain.EntityOffice, ID: r.OfficeID}
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.rooms[r.ID] = r
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionCreate, After: r})
	return r, nil
}

// UpdateRoom mutates a room record.
func (tx *transaction) UpdateRoom(id string, mutator func(*Room) error) (Room, error) {
	current, ok := tx.state.rooms[id]
	if !ok {
		return Room{}, domain.NotFoundError{Entity: domain.EntityRoom, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Room{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.rooms[id] = current
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteRoom removes a room with no desks.
func (tx *transaction) DeleteRoom(id string) error {
	current, ok := tx.state.rooms[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityRoom, ID: id}
	}
	for _, d := range tx.state.desks {
		if d.RoomID == id {
			return fmt.Errorf("room %q still has desks", id)
		}
	}
	delete(tx.state.rooms, id)
	tx.recordChange(Change{Entity: domain.EntityRoom, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateDesk stores a desk within an existing room. Codes are unique per room.
func (tx *transaction) CreateDesk(d Desk) (Desk, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	if _, exists := tx.state.desks[d.ID]; exists {
		return Desk{}, fmt.Errorf("desk %q already exists", d.ID)
	}
	if _, ok := tx.state.rooms[d.RoomID]; !ok {
		return Desk{}, domain.NotFoundError{Entity: domain.EntityRoom, ID: d.RoomID}
	}
	for _, other := range tx.state.desks {
		if other.RoomID == d.RoomID && other.Code == d.Code {
			return Desk{}, fmt.Errorf("desk code %q already in use in room %s", d.Code, d.RoomID)
		}
	}
	if err := tx.checkDeskOccupant(d); err != nil {
		return Desk{}, err
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.desks[d.ID] = cloneDesk(d)
	tx.recordChange(Change{Entity: domain.EntityDesk, Action: domain.ActionCreate, After: cloneDesk(d)})
	return cloneDesk(d), nil
}

func (tx *transaction) checkDeskOccupant(d Desk) error {
	if d.OccupantID == nil {
		return nil
	}
	if _, ok := tx.state.persons[*d.OccupantID]; !ok {
		return domain.NotFoundError{Entity: domain.EntityPerson, ID: *d.OccupantID}
	}
	return nil
}

// UpdateDesk mutates a desk record.
func (tx *transaction) UpdateDesk(id string, mutator func(*Desk) error) (Desk, error) {
	current, ok := tx.state.desks[id]
	if !ok {
		return Desk{}, domain.NotFoundError{Entity: domain.EntityDesk, ID: id}
	}
	before := cloneDesk(current)
	if err := mutator(&current); err != nil {
		return Desk{}, err
	}
	if err := tx.checkDeskOccupant(current); err != nil {
		return Desk{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.desks[id] = cloneDesk(current)
	tx.recordChange(Change{Entity: domain.EntityDesk, Action: domain.ActionUpdate, Before: before, After: cloneDesk(current)})
	return cloneDesk(current), nil
}

// DeleteDesk removes a desk record.
func (tx *transaction) DeleteDesk(id string) error {
	current, ok := tx.state.desks[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDesk, ID: id}
	}
	delete(tx.state.desks, id)
	tx.recordChange(Change{Entity: domain.EntityDesk, Action: domain.ActionDelete, Before: cloneDesk(current)})
	return nil
}

// CreateDepartment stores a department within an existing office. Names are
// unique per office.
func (tx *transaction) CreateDepartment(d Department) (Department, error) {
	if d.ID == "" {
		d.ID = newID()
	}
	if _, exists := tx.state.depts[d.ID]; exists {
		return Department{}, fmt.Errorf("department %q already exists", d.ID)
	}
	if _, ok := tx.state.offices[d.OfficeID]; !ok {
		return Department{}, domain.NotFoundError{Entity: domain.EntityOffice, ID: d.OfficeID}
	}
	for _, other := range tx.state.depts {
		if other.OfficeID == d.OfficeID && other.Name == d.Name {
			return Department{}, fmt.Errorf("department name %q already in use in office %s", d.Name, d.OfficeID)
		}
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.depts[d.ID] = d
	tx.recordChange(Change{Entity: domain.EntityDepartment, Action: domain.ActionCreate, After: d})
	return d, nil
}

// UpdateDepartment mutates a department record. Loan snapshots taken earlier
// are unaffected.
func (tx *transaction) UpdateDepartment(id string, mutator func(*Department) error) (Department, error) {
	current, ok := tx.state.depts[id]
	if !ok {
		return Department{}, domain.NotFoundError{Entity: domain.EntityDepartment, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Department{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.depts[id] = current
	tx.recordChange(Change{Entity: domain.EntityDepartment, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteDepartment removes a department with no positions or members.
func (tx *transaction) DeleteDepartment(id string) error {
	current, ok := tx.state.depts[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDepartment, ID: id}
	}
	for _, p := range tx.state.positions {
		if p.DepartmentID == id {
			return fmt.Errorf("department %q still has positions", id)
		}
	}
	for _, p := range tx.state.persons {
		if p.DepartmentID != nil && *p.DepartmentID == id {
			return fmt.Errorf("department %q still has members", id)
		}
	}
	delete(tx.state.depts, id)
	tx.recordChange(Change{Entity: domain.EntityDepartment, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateDepartmentPosition stores a numbered position slot. Numbers are unique
// per department.
func (tx *transaction) CreateDepartmentPosition(p DepartmentPosition) (DepartmentPosition, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if _, exists := tx.state.positions[p.ID]; exists {
		return DepartmentPosition{}, fmt.Errorf("department position %q already exists", p.ID)
	}
	if _, ok := tx.state.depts[p.DepartmentID]; !ok {
		return DepartmentPosition{}, domain.NotFoundError{Entity: domain.EntityDepartment, ID: p.DepartmentID}
	}
	for _, other := range tx.state.positions {
		if other.DepartmentID == p.DepartmentID && other.Number == p.Number {
			return DepartmentPosition{}, fmt.Errorf("position number %d already in use in department %s", p.Number, p.DepartmentID)
		}
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.positions[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityDepartmentPosition, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdateDepartmentPosition mutates a position record.
func (tx *transaction) UpdateDepartmentPosition(id string, mutator func(*DepartmentPosition) error) (DepartmentPosition, error) {
	current, ok := tx.state.positions[id]
	if !ok {
		return DepartmentPosition{}, domain.NotFoundError{Entity: domain.EntityDepartmentPosition, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return DepartmentPosition{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.positions[id] = current
	tx.recordChange(Change{Entity: domain.EntityDepartmentPosition, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteDepartmentPosition removes a position record.
func (tx *transaction) DeleteDepartmentPosition(id string) error {
	current, ok := tx.state.positions[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityDepartmentPosition, ID: id}
	}
	delete(tx.state.positions, id)
	tx.recordChange(Change{Entity: domain.EntityDepartmentPosition, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateLoan appends a loan to the ledger. The referenced asset must exist.
// OpenedAt defaults to the transaction clock; status defaults to active.
func (tx *transaction) CreateLoan(l Loan) (Loan, error) {
	if l.ID == "" {
		l.ID = newID()
	}
	if _, exists := tx.state.loans[l.ID]; exists {
		return Loan{}, fmt.Errorf("loan %q already exists", l.ID)
	}
	if _, ok := tx.state.assets[l.AssetID]; !ok {
		return Loan{}, domain.NotFoundError{Entity: domain.EntityAsset, ID: l.AssetID}
	}
	if l.Status == "" {
		l.Status = domain.LoanActive
	}
	if l.OpenedAt.IsZero() {
		l.OpenedAt = tx.now
	}
	l.CreatedAt = tx.now
	l.UpdatedAt = tx.now
	tx.state.loans[l.ID] = cloneLoan(l)
	tx.recordChange(Change{Entity: domain.EntityLoan, Action: domain.ActionCreate, After: cloneLoan(l)})
	return cloneLoan(l), nil
}

// UpdateLoan mutates a ledger record. There is no DeleteLoan.
func (tx *transaction) UpdateLoan(id string, mutator func(*Loan) error) (Loan, error) {
	current, ok := tx.state.loans[id]
	if !ok {
		return Loan{}, domain.NotFoundError{Entity: domain.EntityLoan, ID: id}
	}
	before := cloneLoan(current)
	if err := mutator(&current); err != nil {
		return Loan{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.loans[id] = cloneLoan(current)
	tx.recordChange(Change{Entity: domain.EntityLoan, Action: domain.ActionUpdate, Before: before, After: cloneLoan(current)})
	return cloneLoan(current), nil
}

// View methods -------------------------------------------------------------

// ListAssets returns all assets within the snapshot.
func (v view) ListAssets() []Asset {
	out := make([]Asset, 0, len(v.state.assets))
	for _, a := range v.state.assets {
		out = append(out, cloneAsset(a))
	}
	sortByID(out, func(a Asset) string { return a.ID })
	return out
}

// ListLoans returns all ledger records within the snapshot.
func (v view) ListLoans() []Loan {
	out := make([]Loan, 0, len(v.state.loans))
	for _, l := range v.state.loans {
		out = append(out, cloneLoan(l))
	}
	sortLoans(out)
	return out
}

// ListLoansMatching returns ledger records satisfying the filter.
func (v view) ListLoansMatching(f LoanFilter) []Loan {
	var out []Loan
	for _, l := range v.state.loans {
		if f.Matches(l) {
			out = append(out, cloneLoan(l))
		}
	}
	sortLoans(out)
	return out
}

// ListDesks returns all desks within the snapshot.
func (v view) ListDesks() []Desk {
	out := make([]Desk, 0, len(v.state.desks))
	for _, d := range v.state.desks {
		out = append(out, cloneDesk(d))
	}
	sortByID(out, func(d Desk) string { return d.ID })
	return out
}

// FindAsset retrieves an asset by ID from the snapshot.
func (v view) FindAsset(id string) (Asset, bool) {
	a, ok := v.state.assets[id]
	if !ok {
		return Asset{}, false
	}
	return cloneAsset(a), true
}

// FindDesk retrieves a desk by ID from the snapshot.
func (v view) FindDesk(id string) (Desk, bool) {
	d, ok := v.state.desks[id]
	if !ok {
		return Desk{}, false
	}
	return cloneDesk(d), true
}

// FindLoan retrieves a loan by ID from the snapshot.
func (v view) FindLoan(id string) (Loan, bool) {
	l, ok := v.state.loans[id]
	if !ok {
		return Loan{}, false
	}
	return cloneLoan(l), true
}

// FindAssetCategory retrieves a category by ID from the snapshot.
func (v view) FindAssetCategory(id string) (AssetCategory, bool) {
	c, ok := v.state.categories[id]
	return c, ok
}

// FindPerson retrieves a person by ID from the snapshot.
func (v view) FindPerson(id string) (Person, bool) {
	p, ok := v.state.persons[id]
	if !ok {
		return Person{}, false
	}
	return clonePerson(p), true
}

// FindOffice retrieves an office by ID from the snapshot.
func (v view) FindOffice(id string) (Office, bool) {
	o, ok := v.state.offices[id]
	return o, ok
}

// FindRoom retrieves a room by ID from the snapshot.
func (v view) FindRoom(id string) (Room, bool) {
	r, ok := v.state.rooms[id]
	return r, ok
}

// FindDepartment retrieves a department by ID from the snapshot.
func (v view) FindDepartment(id string) (Department, bool) {
	d, ok := v.state.depts[id]
	return d, ok
}

// FindDepartmentPosition retrieves a position by ID from the snapshot.
func (v view) FindDepartmentPosition(id string) (DepartmentPosition, bool) {
	p, ok := v.state.positions[id]
	return p, ok
}

// ListDepartments returns all departments within the snapshot.
func (v view) ListDepartments() []Department {
	out := make([]Department, 0, len(v.state.depts))
	for _, d := range v.state.depts {
		out = append(out, d)
	}
	sortByID(out, func(d Department) string { return d.ID })
	return out
}

// Read helpers on committed state -------------------------------------------

// GetAsset retrieves an asset by ID from committed state.
func (s *Store) GetAsset(id string) (Asset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.assets[id]
	if !ok {
		return Asset{}, false
	}
	return cloneAsset(a), true
}

// ListAssets returns all assets from committed state.
func (s *Store) ListAssets() []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Asset, 0, len(s.state.assets))
	for _, a := range s.state.assets {
		out = append(out, cloneAsset(a))
	}
	sortByID(out, func(a Asset) string { return a.ID })
	return out
}

// GetLoan retrieves a loan by ID from committed state.
func (s *Store) GetLoan(id string) (Loan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.state.loans[id]
	if !ok {
		return Loan{}, false
	}
	return cloneLoan(l), true
}

// ListLoans returns ledger records from committed state matching the filter,
// newest first.
func (s *Store) ListLoans(f LoanFilter) []Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Loan
	for _, l := range s.state.loans {
		if f.Matches(l) {
			out = append(out, cloneLoan(l))
		}
	}
	sortLoans(out)
	return out
}

// ListPersons returns all persons from committed state.
func (s *Store) ListPersons() []Person {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Person, 0, len(s.state.persons))
	for _, p := range s.state.persons {
		out = append(out, clonePerson(p))
	}
	sortByID(out, func(p Person) string { return p.ID })
	return out
}

// ListDesks returns all desks from committed state.
func (s *Store) ListDesks() []Desk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Desk, 0, len(s.state.desks))
	for _, d := range s.state.desks {
		out = append(out, cloneDesk(d))
	}
	sortByID(out, func(d Desk) string { return d.ID })
	return out
}

// ListOffices returns all offices from committed state.
func (s *Store) ListOffices() []Office {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Office, 0, len(s.state.offices))
	for _, o := range s.state.offices {
		out = append(out, o)
	}
	sortByID(out, func(o Office) string { return o.ID })
	return out
}

// ListDepartments returns all departments from committed state.
func (s *Store) ListDepartments() []Department {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Department, 0, len(s.state.depts))
	for _, d := range s.state.depts {
		out = append(out, d)
	}
	sortByID(out, func(d Department) string { return d.ID })
	return out
}

// ListRooms returns all rooms from committed state.
func (s *Store) ListRooms() []Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Room, 0, len(s.state.rooms))
	for _, r := range s.state.rooms {
		out = append(out, r)
	}
	sortByID(out, func(r Room) string { return r.ID })
	return out
}

// ListDepartmentPositions returns all positions from committed state.
func (s *Store) ListDepartmentPositions() []DepartmentPosition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DepartmentPosition, 0, len(s.state.positions))
	for _, p := range s.state.positions {
		out = append(out, p)
	}
	sortByID(out, func(p DepartmentPosition) string { return p.ID })
	return out
}

// ListAssetCategories returns all categories from committed state.
func (s *Store) ListAssetCategories() []AssetCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AssetCategory, 0, len(s.state.categories))
	for _, c := range s.state.categories {
		out = append(out, c)
	}
	sortByID(out, func(c AssetCategory) string { return c.ID })
	return out
}

func sortByID[T any](items []T, id func(T) string) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}

// sortLoans orders newest-open first, then by ID for stability.
func sortLoans(loans []Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].OpenedAt.Equal(loans[j].OpenedAt) {
			return loans[i].OpenedAt.After(loans[j].OpenedAt)
		}
		return loans[i].ID < loans[j].ID
	})
}
