package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/marketlens/internal/models"
	"github.com/ternarybob/marketlens/internal/services/registry"
)

// CustomerView is a customer with its selection state
type CustomerView struct {
	models.Customer
	Selected bool `json:"selected"`
}

// CustomerHandler serves customer profiles
type CustomerHandler struct {
	customers *registry.Customers
	logger    arbor.ILogger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers *registry.Customers, logger arbor.ILogger) *CustomerHandler {
	return &CustomerHandler{customers: customers, logger: logger}
}

// CollectionRoute handles GET (list) and POST (create) on /api/customers
func (h *CustomerHandler) CollectionRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list := h.customers.List()
		views := make([]CustomerView, len(list))
		for i, customer := range list {
			views[i] = CustomerView{Customer: customer, Selected: h.customers.IsSelected(customer.ID)}
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"customers": views,
			"count":     len(views),
		})

	case http.MethodPost:
		var customer models.Customer
		if err := decodeJSON(r, &customer); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		created, err := h.customers.Add(r.Context(), customer)
		if err != nil {
			WriteServiceError(w, h.logger, err, "Failed to create customer")
			return
		}
		h.logger.Debug().Str("id", created.ID).Str("name", created.Name).Msg("Customer created")
		WriteJSON(w, http.StatusCreated, created)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// ItemRoutes handles PUT/DELETE /api/customers/{id} and POST /api/customers/{id}/toggle
func (h *CustomerHandler) ItemRoutes(w http.ResponseWriter, r *http.Request) {
	id, tail := pathParam(r, "/api/customers/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing customer id")
		return
	}

	switch {
	case tail == "toggle" && r.Method == http.MethodPost:
		selected, err := h.customers.Toggle(r.Context(), id)
		if err != nil {
			WriteServiceError(w, h.logger, err, "Failed to toggle customer")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"id": id, "selected": selected})

	case tail != "":
		WriteError(w, http.StatusNotFound, "Unknown customer route")

	case r.Method == http.MethodGet:
		customer, err := h.customers.Get(id)
		if err != nil {
			WriteServiceError(w, h.logger, err, "Failed to get customer")
			return
		}
		WriteJSON(w, http.StatusOK, CustomerView{Customer: customer, Selected: h.customers.IsSelected(id)})

	case r.Method == http.MethodPut:
		var customer models.Customer
		if err := decodeJSON(r, &customer); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		updated, err := h.customers.Update(r.Context(), id, customer)
		if err != nil {
			WriteServiceError(w, h.logger, err, "Failed to update customer")
			return
		}
		WriteJSON(w, http.StatusOK, updated)

	case r.Method == http.MethodDelete:
		if err := h.customers.Remove(r.Context(), id); err != nil {
			WriteServiceError(w, h.logger, err, "Failed to delete customer")
			return
		}
		WriteSuccess(w, "Customer deleted")

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
