package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guestfy/pkg/domain"
)

const seededReservations = 12

var seedListings = []domain.Listing{
	{ID: "listing-1", Name: "Ocean View Condo", PropertyType: "Apartment", Address: "123 Beachfront Ave", City: "Miami", Country: "USA", Bedrooms: 2, Bathrooms: 2, MaxGuests: 4, PricePerNight: 150, CleaningFee: 50, Currency: "USD"},
	{ID: "listing-2", Name: "Mountain Cabin Retreat", PropertyType: "Cabin", Address: "456 Mountain Rd", City: "Aspen", Country: "USA", Bedrooms: 3, Bathrooms: 2, MaxGuests: 6, PricePerNight: 200, CleaningFee: 75, Currency: "USD"},
	{ID: "listing-3", Name: "Downtown Loft", PropertyType: "Loft", Address: "789 Urban St", City: "New York", Country: "USA", Bedrooms: 1, Bathrooms: 1, MaxGuests: 2, PricePerNight: 175, CleaningFee: 60, Currency: "USD"},
}

var seedClients = []domain.Client{
	{ID: "client-1", FirstName: "John", LastName: "Doe", Email: "john.doe@example.com", Phone: "+1234567890", WhatsAppID: "whatsapp-1"},
	{ID: "client-2", FirstName: "Jane", LastName: "Smith", Email: "jane.smith@example.com", Phone: "+0987654321", WhatsAppID: "whatsapp-2"},
	{ID: "client-3", FirstName: "Bob", LastName: "Johnson", Email: "bob.johnson@example.com", Phone: "+1122334455", WhatsAppID: "whatsapp-3"},
	{ID: "client-4", FirstName: "Sarah", LastName: "Williams", Email: "sarah.williams@example.com", Phone: "+5566778899", WhatsAppID: "whatsapp-4"},
}

// listing-1 is the Stays property in the seeded catalogue.
var seedListingProperty = map[string]string{"listing-1": "DB09I"}

// MemoryReservations serves generated reservations.
type MemoryReservations struct {
	latency time.Duration

	mu           sync.RWMutex
	reservations []domain.Reservation
}

// NewMemoryReservations seeds reservations relative to opts.Now: the i-th
// booking checks in 2i days from today for three nights.
func NewMemoryReservations(opts Options) *MemoryReservations {
	opts = opts.withDefaults()
	now := opts.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	out := make([]domain.Reservation, 0, seededReservations)
	for i := 0; i < seededReservations; i++ {
		listing := seedListings[i%len(seedListings)]
		client := seedClients[i%len(seedClients)]
		checkIn := today.AddDate(0, 0, 2*i)
		r := domain.Reservation{
			ID:           fmt.Sprintf("reservation-%d", i+1),
			ListingID:    listing.ID,
			Listing:      listing,
			ClientID:     client.ID,
			Client:       client,
			PropertyID:   seedListingProperty[listing.ID],
			CheckInDate:  checkIn,
			CheckOutDate: checkIn.AddDate(0, 0, 3),
			GuestCount:   i%3 + 1,
			TotalPrice:   listing.PricePerNight*3 + listing.CleaningFee,
			Currency:     listing.Currency,
			Status:       domain.ReservationStatuses[i%len(domain.ReservationStatuses)],
			CreatedAt:    now.Add(-10 * 24 * time.Hour),
			UpdatedAt:    now,
		}
		if i%3 == 0 {
			r.Notes = "Guest requested early check-in"
		}
		if i%5 == 0 {
			r.PromoCode = "SUMMER10"
		}
		out = append(out, r)
	}
	return &MemoryReservations{latency: opts.Latency, reservations: out}
}

func (p *MemoryReservations) ListReservations(ctx context.Context) ([]domain.Reservation, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.Reservation(nil), p.reservations...), nil
}

func (p *MemoryReservations) GetReservation(ctx context.Context, id string) (domain.Reservation, bool, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.Reservation{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, r := range p.reservations {
		if r.ID == id {
			return r, true, nil
		}
	}
	return domain.Reservation{}, false, nil
}

// ListClients returns each guest once, in first-booking order.
func (p *MemoryReservations) ListClients(ctx context.Context) ([]domain.Client, error) {
	list, err := p.ListReservations(ctx)
	if err != nil {
		return nil, err
	}
	return uniqueClients(list), nil
}

func uniqueClients(list []domain.Reservation) []domain.Client {
	seen := make(map[string]struct{}, len(list))
	out := make([]domain.Client, 0, len(list))
	for _, r := range list {
		if _, ok := seen[r.Client.ID]; ok {
			continue
		}
		seen[r.Client.ID] = struct{}{}
		out = append(out, r.Client)
	}
	return out
}

// ReservationWithProperty resolves a reservation and, when linked, its property.
func ReservationWithProperty(ctx context.Context, reservations Reservations, properties Properties, id string) (domain.Reservation, *domain.Property, bool, error) {
	r, ok, err := reservations.GetReservation(ctx, id)
	if err != nil || !ok {
		return domain.Reservation{}, nil, ok, err
	}
	if r.PropertyID == "" || properties == nil {
		return r, nil, true, nil
	}
	prop, found, err := properties.GetProperty(ctx, r.PropertyID)
	if err != nil {
		return domain.Reservation{}, nil, false, err
	}
	if !found {
		return r, nil, true, nil
	}
	return r, &prop, true, nil
}
