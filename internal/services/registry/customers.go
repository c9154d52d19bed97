package registry

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/common"
	"github.com/ternarybob/marketlens/internal/interfaces"
	"github.com/ternarybob/marketlens/internal/models"
)

// Customers holds the customer profiles used by the customer analysis
// variant, with an independent selection set.
type Customers struct {
	mu        sync.RWMutex
	customers []models.Customer
	selected  map[string]struct{}

	storage  interfaces.CustomerStorage
	events   interfaces.EventService
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewCustomers creates an empty customer registry
func NewCustomers(storage interfaces.CustomerStorage, events interfaces.EventService, logger arbor.ILogger) *Customers {
	return &Customers{
		customers: []models.Customer{},
		selected:  make(map[string]struct{}),
		storage:   storage,
		events:    events,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Load restores the persisted customers
func (c *Customers) Load(ctx context.Context) error {
	customers, err := c.storage.LoadCustomers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.customers = customers
	c.selected = make(map[string]struct{})

	c.logger.Info().Int("customers", len(customers)).Msg("Customer registry loaded")
	return nil
}

// Add validates and stores a new customer, assigning its ID
func (c *Customers) Add(ctx context.Context, customer models.Customer) (models.Customer, error) {
	customer.ID = common.NewCustomerID()
	customer.Name = strings.TrimSpace(customer.Name)
	if err := c.validate.Struct(customer); err != nil {
		return models.Customer{}, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := append(slices.Clone(c.customers), customer)
	if err := c.storage.SaveCustomers(ctx, next); err != nil {
		return models.Customer{}, fmt.Errorf("failed to persist customers: %w", err)
	}
	c.customers = next

	c.logger.Info().Str("id", customer.ID).Str("name", customer.Name).Msg("Customer added")
	c.publish(ctx)
	return customer, nil
}

// Update replaces the profile of an existing customer
func (c *Customers) Update(ctx context.Context, id string, customer models.Customer) (models.Customer, error) {
	customer.ID = id
	customer.Name = strings.TrimSpace(customer.Name)
	if err := c.validate.Struct(customer); err != nil {
		return models.Customer{}, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return models.Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}

	next := slices.Clone(c.customers)
	next[i] = customer
	if err := c.storage.SaveCustomers(ctx, next); err != nil {
		return models.Customer{}, fmt.Errorf("failed to persist customers: %w", err)
	}
	c.customers = next

	c.publish(ctx)
	return customer, nil
}

// Remove deletes a customer and drops it from the selection
func (c *Customers) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}

	next := slices.Delete(slices.Clone(c.customers), i, i+1)
	if err := c.storage.SaveCustomers(ctx, next); err != nil {
		return fmt.Errorf("failed to persist customers: %w", err)
	}
	c.customers = next
	delete(c.selected, id)

	c.logger.Info().Str("id", id).Msg("Customer removed")
	c.publish(ctx)
	return nil
}

// Get returns one customer
func (c *Customers) Get(id string) (models.Customer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexLocked(id); i >= 0 {
		return c.customers[i], nil
	}
	return models.Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
}

// List returns all customers in insertion order
func (c *Customers) List() []models.Customer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.customers)
}

// Toggle flips the selection of one customer and reports whether it is now selected
func (c *Customers) Toggle(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexLocked(id) < 0 {
		return false, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	_, was := c.selected[id]
	if was {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}

	c.publish(ctx)
	return !was, nil
}

// Select replaces the selection with the given ids
func (c *Customers) Select(ctx context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if c.indexLocked(id) < 0 {
			return fmt.Errorf("customer %s: %w", id, ErrNotFound)
		}
		next[id] = struct{}{}
	}
	c.selected = next

	c.publish(ctx)
	return nil
}

// IsSelected reports whether a customer is selected
func (c *Customers) IsSelected(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.selected[id]
	return ok
}

// Selected returns the selected customers in insertion order
func (c *Customers) Selected() []models.Customer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Customer, 0, len(c.selected))
	for _, customer := range c.customers {
		if _, ok := c.selected[customer.ID]; ok {
			out = append(out, customer)
		}
	}
	return out
}

func (c *Customers) indexLocked(id string) int {
	return slices.IndexFunc(c.customers, func(m models.Customer) bool { return m.ID == id })
}

func (c *Customers) publish(ctx context.Context) {
	if c.events == nil {
		return
	}
	_ = c.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventCustomersChanged,
		Payload: map[string]int{"total": len(c.customers), "selected": len(c.selected)},
	})
}
