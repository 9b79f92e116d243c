package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"guestfy/pkg/domain"
)

var (
	errNameRequired  = fmt.Errorf("%w: name required", ErrInvalidInput)
	errValueRequired = fmt.Errorf("%w: item value required", ErrInvalidInput)
	errTitleRequired = fmt.Errorf("%w: title required", ErrInvalidInput)
)

// MemoryKnowledge keeps knowledge lists and company info sections in memory.
type MemoryKnowledge struct {
	latency time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	lists  []domain.KnowledgeList
	info   []domain.CompanyInfoSection
	nextID map[string]int
}

// NewMemoryKnowledge seeds the default amenities, house rules, attractions
// and company info sections.
func NewMemoryKnowledge(opts Options) *MemoryKnowledge {
	opts = opts.withDefaults()
	now := opts.Now()
	day := 24 * time.Hour
	list := func(id, name, desc string, created, updated int, items ...string) domain.KnowledgeList {
		l := domain.KnowledgeList{
			ID:          id,
			Name:        name,
			Description: desc,
			Items:       make([]domain.KnowledgeListItem, len(items)),
			CreatedAt:   now.Add(-time.Duration(created) * day),
			UpdatedAt:   now.Add(-time.Duration(updated) * day),
		}
		n := strings.TrimPrefix(id, "list-")
		for i, v := range items {
			l.Items[i] = domain.KnowledgeListItem{ID: fmt.Sprintf("item-%s-%d", n, i+1), Value: v}
		}
		return l
	}
	section := func(n int, title, category, content string, created, updated int) domain.CompanyInfoSection {
		return domain.CompanyInfoSection{
			ID:        fmt.Sprintf("info-%d", n),
			Title:     title,
			Content:   content,
			Category:  category,
			Order:     n,
			CreatedAt: now.Add(-time.Duration(created) * day),
			UpdatedAt: now.Add(-time.Duration(updated) * day),
		}
	}
	p := &MemoryKnowledge{
		latency: opts.Latency,
		now:     opts.Now,
		lists: []domain.KnowledgeList{
			list("list-1", "Amenities", "List of amenities available in our properties", 30, 5,
				"Free WiFi", "Air conditioning", "Kitchen", "Washer & dryer", "Dedicated workspace"),
			list("list-2", "House Rules", "Rules that guests must follow", 25, 2,
				"No smoking", "No parties or events", "No pets", "Check-out by 11:00 AM"),
			list("list-3", "Local Attractions", "Popular attractions near our properties", 20, 1,
				"Central Park", "Metropolitan Museum of Art", "Empire State Building", "Times Square", "Broadway Theatre District"),
		},
		info: []domain.CompanyInfoSection{
			section(1, "Check-in Instructions", "Arrival", "Check-in time is at 3:00 PM. Early check-in may be available if requested in advance. Please use the keypad at the main entrance with the code provided in your confirmation email. If you have any issues, contact our 24/7 support line.", 30, 5),
			section(2, "Check-out Instructions", "Departure", "Check-out time is 11:00 AM. Late check-out may be available upon request for an additional fee. Please ensure all dishes are washed and trash is placed in the designated bins. Leave the keys on the kitchen counter before departing.", 30, 5),
			section(3, "Cancellation Policy", "Policies", "Free cancellation up to 48 hours before check-in. Cancellations made within 48 hours of check-in will be charged 50% of the total reservation amount. No-shows will be charged the full amount.", 25, 2),
			section(4, "Parking Information", "Facilities", "Free on-site parking is available for all guests. Please park in the designated spots marked with your unit number. Street parking is also available but may require a permit depending on the day of the week.", 20, 1),
			section(5, "WiFi Access", "Facilities", "WiFi is available throughout the property. Network name: GuestfyWiFi, Password: StayConnected2023", 20, 1),
		},
		nextID: map[string]int{"list": 3, "info": 5},
	}
	for _, l := range p.lists {
		p.nextID["item:"+l.ID] = len(l.Items)
	}
	return p
}

func (p *MemoryKnowledge) ListKnowledgeLists(ctx context.Context) ([]domain.KnowledgeList, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.KnowledgeList, len(p.lists))
	for i, l := range p.lists {
		out[i] = l.Clone()
	}
	return out, nil
}

func (p *MemoryKnowledge) GetKnowledgeList(ctx context.Context, id string) (domain.KnowledgeList, bool, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.KnowledgeList{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i := p.listIndexLocked(id); i >= 0 {
		return p.lists[i].Clone(), true, nil
	}
	return domain.KnowledgeList{}, false, nil
}

func (p *MemoryKnowledge) CreateKnowledgeList(ctx context.Context, in KnowledgeListInput) (domain.KnowledgeList, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.KnowledgeList{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.KnowledgeList{}, errNameRequired
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	l := domain.KnowledgeList{
		ID:          p.allocLocked("list", "list-%d"),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Items:       []domain.KnowledgeListItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, v := range in.Items {
		if v = strings.TrimSpace(v); v != "" {
			l.Items = append(l.Items, domain.KnowledgeListItem{ID: p.itemIDLocked(l.ID), Value: v})
		}
	}
	p.lists = append(p.lists, l)
	return l.Clone(), nil
}

func (p *MemoryKnowledge) UpdateKnowledgeList(ctx context.Context, id string, patch KnowledgeListPatch) (domain.KnowledgeList, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.KnowledgeList{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.listIndexLocked(id)
	if i < 0 {
		return domain.KnowledgeList{}, ErrNotFound
	}
	l := &p.lists[i]
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return domain.KnowledgeList{}, errNameRequired
		}
		l.Name = name
	}
	if patch.Description != nil {
		l.Description = strings.TrimSpace(*patch.Description)
	}
	l.UpdatedAt = p.now()
	return l.Clone(), nil
}

func (p *MemoryKnowledge) DeleteKnowledgeList(ctx context.Context, id string) error {
	if err := pause(ctx, p.latency); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.listIndexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	p.lists = append(p.lists[:i], p.lists[i+1:]...)
	return nil
}

func (p *MemoryKnowledge) AddListItem(ctx context.Context, listID, value string) (domain.KnowledgeListItem, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.KnowledgeListItem{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.KnowledgeListItem{}, errValueRequired
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.listIndexLocked(listID)
	if i < 0 {
		return domain.KnowledgeListItem{}, ErrNotFound
	}
	item := domain.KnowledgeListItem{ID: p.itemIDLocked(listID), Value: value}
	p.lists[i].Items = append(p.lists[i].Items, item)
	p.lists[i].UpdatedAt = p.now()
	return item, nil
}

func (p *MemoryKnowledge) UpdateListItem(ctx context.Context, listID, itemID, value string) (domain.KnowledgeListItem, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.KnowledgeListItem{}, err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.KnowledgeListItem{}, errValueRequired
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.listIndexLocked(listID)
	if i < 0 {
		return domain.KnowledgeListItem{}, ErrNotFound
	}
	for j := range p.lists[i].Items {
		if p.lists[i].Items[j].ID == itemID {
			p.lists[i].Items[j].Value = value
			p.lists[i].UpdatedAt = p.now()
			return p.lists[i].Items[j], nil
		}
	}
	return domain.KnowledgeListItem{}, ErrNotFound
}

func (p *MemoryKnowledge) DeleteListItem(ctx context.Context, listID, itemID string) error {
	if err := pause(ctx, p.latency); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.listIndexLocked(listID)
	if i < 0 {
		return ErrNotFound
	}
	items := p.lists[i].Items
	for j := range items {
		if items[j].ID == itemID {
			p.lists[i].Items = append(items[:j], items[j+1:]...)
			p.lists[i].UpdatedAt = p.now()
			return nil
		}
	}
	return ErrNotFound
}

// ListCompanyInfo returns sections ordered by Order.
func (p *MemoryKnowledge) ListCompanyInfo(ctx context.Context) ([]domain.CompanyInfoSection, error) {
	if err := pause(ctx, p.latency); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return sortedSections(p.info), nil
}

func (p *MemoryKnowledge) GetCompanyInfo(ctx context.Context, id string) (domain.CompanyInfoSection, bool, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.CompanyInfoSection{}, false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i := p.infoIndexLocked(id); i >= 0 {
		return p.info[i], true, nil
	}
	return domain.CompanyInfoSection{}, false, nil
}

func (p *MemoryKnowledge) ListCompanyInfoByCategory(ctx context.Context, category string) ([]domain.CompanyInfoSection, error) {
	all, err := p.ListCompanyInfo(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CompanyInfoSection, 0, len(all))
	for _, s := range all {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out, nil
}

func (p *MemoryKnowledge) CreateCompanyInfo(ctx context.Context, in CompanyInfoInput) (domain.CompanyInfoSection, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.CompanyInfoSection{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.CompanyInfoSection{}, errTitleRequired
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	s := domain.CompanyInfoSection{
		ID:        p.allocLocked("info", "info-%d"),
		Title:     title,
		Content:   strings.TrimSpace(in.Content),
		Category:  strings.TrimSpace(in.Category),
		Order:     in.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if s.Order == 0 {
		s.Order = len(p.info) + 1
	}
	p.info = append(p.info, s)
	return s, nil
}

func (p *MemoryKnowledge) UpdateCompanyInfo(ctx context.Context, id string, patch CompanyInfoPatch) (domain.CompanyInfoSection, error) {
	if err := pause(ctx, p.latency); err != nil {
		return domain.CompanyInfoSection{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.infoIndexLocked(id)
	if i < 0 {
		return domain.CompanyInfoSection{}, ErrNotFound
	}
	s := &p.info[i]
	if patch.Title != nil {
		s.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Content != nil {
		s.Content = strings.TrimSpace(*patch.Content)
	}
	if patch.Category != nil {
		s.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Order != nil {
		s.Order = *patch.Order
	}
	s.UpdatedAt = p.now()
	return *s, nil
}

func (p *MemoryKnowledge) DeleteCompanyInfo(ctx context.Context, id string) error {
	if err := pause(ctx, p.latency); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.infoIndexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	p.info = append(p.info[:i], p.info[i+1:]...)
	return nil
}

func (p *MemoryKnowledge) listIndexLocked(id string) int {
	for i := range p.lists {
		if p.lists[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *MemoryKnowledge) infoIndexLocked(id string) int {
	for i := range p.info {
		if p.info[i].ID == id {
			return i
		}
	}
	return -1
}

// allocLocked hands out ids from a counter so deletes never cause reuse.
func (p *MemoryKnowledge) allocLocked(kind, format string) string {
	p.nextID[kind]++
	return fmt.Sprintf(format, p.nextID[kind])
}

func (p *MemoryKnowledge) itemIDLocked(listID string) string {
	key := "item:" + listID
	p.nextID[key]++
	return fmt.Sprintf("item-%s-%d", listID, p.nextID[key])
}

func sortedSections(in []domain.CompanyInfoSection) []domain.CompanyInfoSection {
	out := append([]domain.CompanyInfoSection(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
