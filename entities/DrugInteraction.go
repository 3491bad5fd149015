package entities

import (
	"time"

	"gorm.io/gorm"
)

// DrugInteraction records a clinically relevant effect between two drugs.
// The pair is unordered: it is stored with FirstID < SecondID.
type DrugInteraction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	FirstID     string    `gorm:"size:50;not null;uniqueIndex:idx_interaction_pair,priority:1" json:"first_id"`
	First       *Drug     `gorm:"foreignKey:FirstID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	SecondID    string    `gorm:"size:50;not null;uniqueIndex:idx_interaction_pair,priority:2;index" json:"second_id"`
	Second      *Drug     `gorm:"foreignKey:SecondID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Mechanism   string    `gorm:"type:text;not null" json:"mechanism"`
	Consequence string    `gorm:"type:text;not null" json:"consequence"`
	Management  string    `gorm:"type:text;not null" json:"management"`
	Severity    Severity  `gorm:"size:20;not null;default:moderate;index" json:"severity"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`

	MechanismFold   string `gorm:"type:text" json:"-"`
	ConsequenceFold string `gorm:"type:text" json:"-"`
}

func (DrugInteraction) TableName() string {
	return "drug_interactions"
}

// BeforeSave fills the default severity and the folded search columns
func (i *DrugInteraction) BeforeSave(tx *gorm.DB) error {
	if i.Severity == "" {
		i.Severity = DefaultSeverity
	}
	i.MechanismFold = Fold(i.Mechanism)
	i.ConsequenceFold = Fold(i.Consequence)
	return nil
}

// NormalizePair orders the two drug references lexicographically by id so
// that (A, B) and (B, A) map to the same stored key
func (i *DrugInteraction) NormalizePair() {
	if i.FirstID > i.SecondID {
		i.FirstID, i.SecondID = i.SecondID, i.FirstID
		i.First, i.Second = i.Second, i.First
	}
}

// FirstName returns the display name of the first drug, or its id when the
// drug was not loaded
func (i *DrugInteraction) FirstName() string {
	if i.First != nil {
		return i.First.Name
	}
	return i.FirstID
}

// SecondName returns the display name of the second drug, or its id when the
// drug was not loaded
func (i *DrugInteraction) SecondName() string {
	if i.Second != nil {
		return i.Second.Name
	}
	return i.SecondID
}
