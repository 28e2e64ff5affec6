package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Username string `gorm:"unique;size:50;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	IsAdmin bool `gorm:"not null;default:false"`

	Trees []FamilyTree `gorm:"foreignKey:OwnerId"`
}

type FamilyTree struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name        string `gorm:"size:100;not null"`
	Description string

	OwnerId uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner   *User     `gorm:"foreignKey:OwnerId"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Members []FamilyMember `gorm:"foreignKey:TreeId;constraint:OnDelete:CASCADE"`
}

const (
	Male    = "MALE"
	Female  = "FEMALE"
	Other   = "OTHER"
	Unknown = "UNKNOWN"
)

func CheckValidGender(gender string) error {
	switch gender {
	case Male, Female, Other, Unknown:
		return nil
	default:
		return fmt.Errorf("invalid gender '%v'", gender)
	}
}

// A member belongs to exactly one tree for its whole lifetime; TreeId is
// never updated after creation.
type FamilyMember struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	TreeId uuid.UUID   `gorm:"type:uuid;not null;index"`
	Tree   *FamilyTree `gorm:"foreignKey:TreeId"`

	FirstName string `gorm:"size:100;not null"`
	LastName  string `gorm:"size:100;not null"`
	Gender    string `gorm:"size:20;not null;default:'UNKNOWN'"`

	BirthDate  *time.Time
	DeathDate  *time.Time
	BirthPlace string
	DeathPlace string
	Bio        string
	PhotoUrl   string

	// ParentLinks are the edges where this member is the child, so each link
	// leads to one of the member's parents. ChildLinks are the reverse.
	ParentLinks []Relationship `gorm:"foreignKey:ChildId"`
	ChildLinks  []Relationship `gorm:"foreignKey:ParentId"`

	PartnershipsAs1 []Partnership `gorm:"foreignKey:Partner1Id"`
	PartnershipsAs2 []Partnership `gorm:"foreignKey:Partner2Id"`

	Events []MemberEvent `gorm:"foreignKey:MemberId;constraint:OnDelete:CASCADE"`
}

const (
	Biological = "BIOLOGICAL"
	Adopted    = "ADOPTED"
	Foster     = "FOSTER"
	Step       = "STEP"
	OtherKin   = "OTHER"
)

func CheckValidRelationshipType(relType string) error {
	switch relType {
	case Biological, Adopted, Foster, Step, OtherKin:
		return nil
	default:
		return fmt.Errorf("invalid relationship type '%v'", relType)
	}
}

// Relationship is a directed parent -> child edge between two members of the
// same tree. A member may appear as parent in many edges and as child in many
// edges; the graph is not checked for ancestor cycles.
type Relationship struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ParentId uuid.UUID `gorm:"type:uuid;not null;index"`
	ChildId  uuid.UUID `gorm:"type:uuid;not null;index"`

	Type string `gorm:"size:50;not null"`

	Parent *FamilyMember `gorm:"foreignKey:ParentId"`
	Child  *FamilyMember `gorm:"foreignKey:ChildId"`
}

const (
	Marriage            = "MARRIAGE"
	DomesticPartnership = "DOMESTIC_PARTNERSHIP"
	Engagement          = "ENGAGEMENT"
	Dating              = "RELATIONSHIP"
	Divorced            = "DIVORCED"
	Separated           = "SEPARATED"
	OtherUnion          = "OTHER"
)

func CheckValidPartnershipType(partnershipType string) error {
	switch partnershipType {
	case Marriage, DomesticPartnership, Engagement, Dating, Divorced, Separated, OtherUnion:
		return nil
	default:
		return fmt.Errorf("invalid partnership type '%v'", partnershipType)
	}
}

// Partnership is conceptually an unordered pair, stored with two named slots.
// Any query for "is X partnered with Y" must check both slots. Multiple
// partnerships between the same pair are permitted (e.g. divorced then
// remarried).
type Partnership struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Partner1Id uuid.UUID `gorm:"type:uuid;not null;index"`
	Partner2Id uuid.UUID `gorm:"type:uuid;not null;index"`

	Type string `gorm:"size:50;not null"`

	StartDate *time.Time
	EndDate   *time.Time
	Place     string
	Notes     string

	Partner1 *FamilyMember `gorm:"foreignKey:Partner1Id"`
	Partner2 *FamilyMember `gorm:"foreignKey:Partner2Id"`
}

const (
	BirthEvent      = "BIRTH"
	DeathEvent      = "DEATH"
	MarriageEvent   = "MARRIAGE"
	DivorceEvent    = "DIVORCE"
	GraduationEvent = "GRADUATION"
	CareerEvent     = "CAREER"
	MoveEvent       = "MOVE"
	MedicalEvent    = "MEDICAL"
	OtherEvent      = "OTHER"
)

func CheckValidEventType(eventType string) error {
	switch eventType {
	case BirthEvent, DeathEvent, MarriageEvent, DivorceEvent, GraduationEvent,
		CareerEvent, MoveEvent, MedicalEvent, OtherEvent:
		return nil
	default:
		return fmt.Errorf("invalid event type '%v'", eventType)
	}
}

// MemberEvent is a dated life occurrence attached to one member. Multiple
// events per member and per type are permitted, and event dates are not
// validated against the member's birth/death dates.
type MemberEvent struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	MemberId uuid.UUID     `gorm:"type:uuid;not null;index"`
	Member   *FamilyMember `gorm:"foreignKey:MemberId"`

	Type string `gorm:"size:50;not null"`

	Date        *time.Time
	Place       string
	Description string
}
