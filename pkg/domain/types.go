package domain

import (
	"strings"
	"time"
)

// MaxCompaniesPerUser caps how many companies a single user may administer.
const MaxCompaniesPerUser = 2

type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Companies []Company `json:"companies"`
}

// HasCompany reports whether id is one of the user's companies.
func (u User) HasCompany(id string) bool {
	_, ok := u.Company(id)
	return ok
}

// Company returns the user's company with the given id.
func (u User) Company(id string) (Company, bool) {
	for _, c := range u.Companies {
		if c.ID == id {
			return c, true
		}
	}
	return Company{}, false
}

// Clone returns a copy that does not share the companies slice.
func (u User) Clone() User {
	out := u
	out.Companies = append([]Company(nil), u.Companies...)
	return out
}

type Sender string

const (
	SenderGuest Sender = "client"
	SenderAgent Sender = "ai"
)

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Read           bool      `json:"read"`
}

type Client struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	WhatsAppID     string `json:"whatsappId,omitempty"`
}

// FullName joins first and last name.
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Conversation struct {
	ID                   string    `json:"id"`
	ClientID             string    `json:"clientId"`
	Client               Client    `json:"client"`
	Messages             []Message `json:"messages"`
	LastMessageTimestamp time.Time `json:"lastMessageTimestamp"`
	UnreadCount          int       `json:"unreadCount"`
}

// CountUnread counts guest-authored messages not yet read.
func CountUnread(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Sender == SenderGuest && !m.Read {
			n++
		}
	}
	return n
}

// Refresh recomputes the fields derived from the message log.
func (c *Conversation) Refresh() {
	c.UnreadCount = CountUnread(c.Messages)
	if len(c.Messages) > 0 {
		c.LastMessageTimestamp = c.Messages[len(c.Messages)-1].Timestamp
	}
}

// LastMessage returns the tail of the message log.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Clone returns a copy that does not share the message slice.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}

type Listing struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PropertyType  string  `json:"propertyType"`
	Address       string  `json:"address"`
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Bedrooms      int     `json:"bedrooms"`
	Bathrooms     int     `json:"bathrooms"`
	MaxGuests     int     `json:"maxGuests"`
	PricePerNight float64 `json:"pricePerNight"`
	CleaningFee   float64 `json:"cleaningFee"`
	Currency      string  `json:"currency"`
}

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationPending   ReservationStatus = "pending"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
	ReservationNoShow    ReservationStatus = "no-show"
)

// ReservationStatuses lists every status in display order.
var ReservationStatuses = []ReservationStatus{
	ReservationConfirmed,
	ReservationPending,
	ReservationCancelled,
	ReservationCompleted,
	ReservationNoShow,
}

// ParseReservationStatus validates a raw status string.
func ParseReservationStatus(raw string) (ReservationStatus, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for _, s := range ReservationStatuses {
		if string(s) == raw {
			return s, true
		}
	}
	return "", false
}

type Reservation struct {
	ID           string            `json:"id"`
	ListingID    string            `json:"listingId"`
	Listing      Listing           `json:"listing"`
	ClientID     string            `json:"clientId"`
	Client       Client            `json:"client"`
	PropertyID   string            `json:"propertyId,omitempty"`
	CheckInDate  time.Time         `json:"checkInDate"`
	CheckOutDate time.Time         `json:"checkOutDate"`
	GuestCount   int               `json:"guestCount"`
	TotalPrice   float64           `json:"totalPrice"`
	Currency     string            `json:"currency"`
	Status       ReservationStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Notes        string            `json:"notes,omitempty"`
	PromoCode    string            `json:"promoCode,omitempty"`
}

// Nights returns the length of stay in whole days.
func (r Reservation) Nights() int {
	d := r.CheckOutDate.Sub(r.CheckInDate)
	if d <= 0 {
		return 0
	}
	return int(d.Hours() / 24)
}

type PropertyAddress struct {
	CountryCode  string `json:"countryCode"`
	State        string `json:"state"`
	StateCode    string `json:"stateCode"`
	City         string `json:"city"`
	Region       string `json:"region"`
	Street       string `json:"street"`
	StreetNumber string `json:"streetNumber"`
	Additional   string `json:"additional,omitempty"`
	Zip          string `json:"zip"`
}

type PropertyImage struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
	Area string `json:"area"`
}

type PropertyOwner struct {
	Name   string   `json:"name"`
	Phones []string `json:"phones"`
}

type Property struct {
	ID             string          `json:"id"`
	InternalName   string          `json:"internalName"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Summary        string          `json:"summary,omitempty"`
	HouseRules     string          `json:"houseRules,omitempty"`
	Status         string          `json:"status"`
	MaxGuests      int             `json:"maxGuests"`
	Rooms          int             `json:"rooms"`
	Beds           int             `json:"beds"`
	Bathrooms      float64         `json:"bathrooms"`
	Address        PropertyAddress `json:"address"`
	Latitude       float64         `json:"latitude,omitempty"`
	Longitude      float64         `json:"longitude,omitempty"`
	AmenityIDs     []string        `json:"amenityIds"`
	Currency       string          `json:"currency"`
	SquareMeters   float64         `json:"squareMeters,omitempty"`
	MainImageURL   string          `json:"mainImageUrl,omitempty"`
	Images         []PropertyImage `json:"images"`
	InstantBooking bool            `json:"instantBooking"`
	Owner          PropertyOwner   `json:"owner"`
}

type KnowledgeListItem struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type KnowledgeList struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Items       []KnowledgeListItem `json:"items"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Clone returns a copy that does not share the item slice.
func (l KnowledgeList) Clone() KnowledgeList {
	out := l
	out.Items = append([]KnowledgeListItem(nil), l.Items...)
	return out
}

type CompanyInfoSection struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskCancelled TaskStatus = "cancelled"
)

type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

type AgentTask struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Status        TaskStatus   `json:"status"`
	Priority      TaskPriority `json:"priority"`
	CreatedAt     time.Time    `json:"createdAt"`
	DueDate       *time.Time   `json:"dueDate,omitempty"`
	AgentID       string       `json:"agentId"`
	ReservationID string       `json:"reservationId,omitempty"`
	ClientID      string       `json:"clientId,omitempty"`
}
