package instantRepo

import "shutterhub/models"

// InstantRequestRepository defines data access for instant photo requests.
type InstantRequestRepository interface {
	// Create inserts a new instant request.
	Create(req *models.InstantRequest) error
	// GetByID retrieves an instant request by its unique ID.
	GetByID(id string) (*models.InstantRequest, error)
	// Update persists the status and match outcome of a request.
	Update(req *models.InstantRequest) error
	// ListByUser retrieves a user's instant requests, newest first.
	ListByUser(userID string) ([]models.InstantRequest, error)
}
