package ticket

import "nuvix-tickets/config"

// Registry resolves ticket kinds to their category definition and destination
// container. It reads the live config store, so admin updates apply to the
// next lookup.
type Registry struct {
	store *config.Store
}

func NewRegistry(store *config.Store) *Registry {
	return &Registry{store: store}
}

func (r *Registry) All() []config.TicketCategory {
	return r.store.Get().Tickets.Categories
}

func (r *Registry) Category(key string) (config.TicketCategory, error) {
	for _, cat := range r.store.Get().Tickets.Categories {
		if cat.Key == key {
			return cat, nil
		}
	}
	return config.TicketCategory{}, ErrUnknownCategory
}

// Container returns the destination container for a category: its own if
// configured, otherwise the shared default. With neither configured the
// category is misconfigured and creation must not proceed.
func (r *Registry) Container(cat config.TicketCategory) (string, error) {
	if cat.Container != "" {
		return cat.Container, nil
	}
	if def := r.store.Get().Tickets.DefaultCategory; def != "" {
		return def, nil
	}
	return "", ErrMisconfiguredCategory
}

func (r *Registry) Fields(key string) ([]config.FieldSpec, error) {
	cat, err := r.Category(key)
	if err != nil {
		return nil, err
	}
	return cat.Fields, nil
}
