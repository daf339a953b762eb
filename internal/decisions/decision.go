// Package decisions persists screening decisions keyed by content identifier
// and exports them as the results table consumed by aggregation.
package decisions

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cultivate-research/fsi-screener/internal/contentid"
)

// MaxQuoteChars caps the length of a single evidence quote. Longer quotes
// are truncated, not rejected.
const MaxQuoteChars = 200

// OrganisationTypes is the closed vocabulary for the organisation_type field.
var OrganisationTypes = []string{
	"food_bank",
	"community_fridge",
	"solidarity_kitchen",
	"communal_garden",
	"seed_library",
	"food_club",
	"social_supermarket",
	"charity",
	"cooperative",
	"other",
}

// Decision is one screening verdict for a stored page. The JSON tags match
// the judgment service response; fields without a tag are filled in locally
// before the decision is persisted. Nullable wire fields (organisation name
// and type) are stored as empty strings.
type Decision struct {
	ContentID             contentid.ID `json:"-" validate:"required"`
	Batch                 string       `json:"-"`
	File                  string       `json:"-"`
	Decision              string       `json:"decision" validate:"required,oneof=include exclude"`
	Confidence            int          `json:"confidence" validate:"required,min=1,max=5"`
	Reasons               []string     `json:"reasons" validate:"required,min=1"`
	EvidenceQuotes        []string     `json:"evidence_quotes" validate:"max=3"`
	OrganisationName      string       `json:"organisation_name"`
	OrganisationType      string       `json:"organisation_type" validate:"omitempty,oneof=food_bank community_fridge solidarity_kitchen communal_garden seed_library food_club social_supermarket charity cooperative other"`
	IsOngoing             *bool        `json:"is_ongoing"`
	SiteOwnerIsInitiative *bool        `json:"site_owner_is_initiative"`
	Notes                 string       `json:"notes"`
	RunID                 string       `json:"-"`
	DecidedAt             time.Time    `json:"-"`
}

// Include reports whether the page was accepted.
func (d *Decision) Include() bool {
	return d.Decision == "include"
}

// Normalize truncates over-long evidence quotes in place.
func (d *Decision) Normalize() {
	for i, quote := range d.EvidenceQuotes {
		runes := []rune(quote)
		if len(runes) > MaxQuoteChars {
			d.EvidenceQuotes[i] = string(runes[:MaxQuoteChars])
		}
	}
}

// Validate validates the Decision using the validator.
func (d *Decision) Validate() error {
	validate := validator.New()
	return validate.Struct(d)
}

// EmptyPage is the fixed decision recorded for pages with no extractable
// text. It is produced locally without calling the judgment service.
func EmptyPage(id contentid.ID, batch, file string) *Decision {
	return &Decision{
		ContentID:      id,
		Batch:          batch,
		File:           file,
		Decision:       "exclude",
		Confidence:     3,
		Reasons:        []string{"Empty page or no extractable text"},
		EvidenceQuotes: []string{},
		Notes:          "No content available.",
	}
}
