package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Drug is a catalog entry identified by its external registration id
type Drug struct {
	ID                 string `gorm:"primaryKey;size:50" json:"id" yaml:"id"`
	Name               string `gorm:"size:255;not null" json:"name" yaml:"name"`
	ActiveIngredient   string `gorm:"type:text" json:"active_ingredient" yaml:"active_ingredient"`
	Classification     string `gorm:"size:100" json:"classification" yaml:"classification"`
	DrugGroup          string `gorm:"size:100" json:"drug_group" yaml:"drug_group"`
	RegisteringCountry string `gorm:"size:100" json:"registering_country" yaml:"registering_country"`

	// Provenance
	SourceURL string `gorm:"type:text" json:"source_url" yaml:"source_url"`
	SourcePDF string `gorm:"type:text" json:"source_pdf" yaml:"source_pdf"`
	Metadata  string `gorm:"size:255" json:"metadata" yaml:"metadata"`

	// Bookkeeping
	SysID     string    `gorm:"size:50" json:"sys_id" yaml:"sys_id"`
	CreatedBy string    `gorm:"size:100" json:"created_by" yaml:"created_by"`
	UpdatedBy string    `gorm:"size:100" json:"updated_by" yaml:"updated_by"`
	CreatedAt time.Time `gorm:"not null" json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at" yaml:"updated_at"`
	ModCount  int       `gorm:"not null;default:1" json:"mod_count" yaml:"mod_count"`
	Tags      string    `gorm:"type:text" json:"tags" yaml:"tags"`

	// Pre-computed case-folded copies of the searchable fields
	NameFold       string `gorm:"type:text;index" json:"-" yaml:"-"`
	IngredientFold string `gorm:"type:text" json:"-" yaml:"-"`
	GroupFold      string `gorm:"type:text" json:"-" yaml:"-"`
}

func (Drug) TableName() string {
	return "drugs"
}

// BeforeSave keeps the folded search columns and the system id in sync
func (d *Drug) BeforeSave(tx *gorm.DB) error {
	d.NameFold = Fold(d.Name)
	d.IngredientFold = Fold(d.ActiveIngredient)
	d.GroupFold = Fold(d.DrugGroup)
	if d.SysID == "" {
		d.SysID = uuid.NewString()
	}
	if d.ModCount < 1 {
		d.ModCount = 1
	}
	return nil
}
