package domain

// AggregateRoot is the mutation boundary of an aggregate. State changes go
// through the root, which collects the domain events they raise until a
// publisher drains them.
type AggregateRoot interface {
	Entity
	DomainEvents() []DomainEvent
	ClearDomainEvents()
	AddDomainEvent(event DomainEvent)
	Version() int
}

// BaseAggregateRoot holds the event buffer and per-aggregate version shared
// by aggregate implementations.
type BaseAggregateRoot struct {
	BaseEntity
	domainEvents []DomainEvent
	version      int
}

// NewBaseAggregateRoot creates an aggregate root at version zero.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		domainEvents: make([]DomainEvent, 0),
	}
}

// RehydrateBaseAggregateRoot restores an aggregate from storage with an empty
// event buffer; persisted aggregates never replay their past events.
func RehydrateBaseAggregateRoot(entity BaseEntity, version int) BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   entity,
		domainEvents: make([]DomainEvent, 0),
		version:      version,
	}
}

// DomainEvents returns the events raised since the last clear.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents empties the buffer, typically after publishing.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = make([]DomainEvent, 0)
}

// AddDomainEvent records an event for later publication.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// Version is the aggregate's optimistic-concurrency counter.
func (a *BaseAggregateRoot) Version() int {
	return a.version
}

// IncrementVersion bumps the counter after a successful mutation.
func (a *BaseAggregateRoot) IncrementVersion() {
	a.version++
}

// SetVersion overrides the counter when rehydrating from storage.
func (a *BaseAggregateRoot) SetVersion(version int) {
	a.version = version
}
