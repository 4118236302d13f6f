package models

import "time"

const (
	PostOpen   = "open"
	PostClosed = "closed"
)

// Post is a prize listing customers buy tickets for. The admin console calls it a draw.
type Post struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Name        string    `gorm:"not null" bson:"name" json:"name"`
	Slug        string    `gorm:"index" bson:"slug" json:"slug"`
	Value       string    `bson:"value" json:"value"` // estimated prize value, free text
	TicketsLeft int       `gorm:"not null" bson:"ticketsLeft" json:"ticketsLeft"`
	TicketPrice Amount    `gorm:"not null" bson:"ticketPrice" json:"ticketPrice"`
	Image       string    `bson:"image" json:"image"`
	EndDate     time.Time `gorm:"index" bson:"endDate" json:"endDate"`
	Category    string    `gorm:"index" bson:"category" json:"category"`
	Featured    bool      `gorm:"not null;default:false" bson:"featured" json:"featured"`
	Status      string    `gorm:"index;not null;default:open" bson:"status" json:"status"`
	CreatedAt   time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Purchasable reports whether tickets can still be bought at now.
func (p *Post) Purchasable(now time.Time) bool {
	if p.Status != PostOpen {
		return false
	}
	return p.EndDate.IsZero() || now.Before(p.EndDate)
}

// PostFilter narrows a post listing. Zero values match everything.
type PostFilter struct {
	Category string
	Featured *bool
	Status   string
}

func (f PostFilter) Match(p *Post) bool {
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Featured != nil && p.Featured != *f.Featured {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// PostPatch lists the fields an update sets. Nil fields are left as they
// are in storage, so concurrent ticket sales are not overwritten.
type PostPatch struct {
	Name        *string
	Slug        *string
	Value       *string
	TicketsLeft *int
	TicketPrice *Amount
	Image       *string
	EndDate     *time.Time
	Category    *string
	Featured    *bool
	Status      *string
	UpdatedAt   time.Time
}

// Apply copies the set fields onto p.
func (pp *PostPatch) Apply(p *Post) {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Slug != nil {
		p.Slug = *pp.Slug
	}
	if pp.Value != nil {
		p.Value = *pp.Value
	}
	if pp.TicketsLeft != nil {
		p.TicketsLeft = *pp.TicketsLeft
	}
	if pp.TicketPrice != nil {
		p.TicketPrice = *pp.TicketPrice
	}
	if pp.Image != nil {
		p.Image = *pp.Image
	}
	if pp.EndDate != nil {
		p.EndDate = *pp.EndDate
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.Featured != nil {
		p.Featured = *pp.Featured
	}
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if !pp.UpdatedAt.IsZero() {
		p.UpdatedAt = pp.UpdatedAt
	}
}
