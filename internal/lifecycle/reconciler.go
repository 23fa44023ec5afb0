// Package lifecycle advances stored postings against each collection
// snapshot and handles the view/apply transitions driven from outside the
// pipeline.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/iandry357/jobpulse/internal/posting"
	"github.com/iandry357/jobpulse/internal/scoring"
	"github.com/iandry357/jobpulse/internal/store"
)

// newAgeLimit is how long a posting stays "new" before the pipeline demotes
// it to "existing".
const newAgeLimit = 24 * time.Hour

type Reconciler struct {
	postings store.PostingStore
	logger   *zap.Logger
	now      func() time.Time
}

func NewReconciler(postings store.PostingStore, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		postings: postings,
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile applies the pipeline transitions given the external identifiers
// present in the latest collection: active postings absent from the set are
// closed, and "new" postings older than 24 hours become "existing". Running
// twice with the same active set is a no-op the second time.
func (r *Reconciler) Reconcile(ctx context.Context, activeIDs map[string]struct{}) error {
	active, err := r.postings.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active postings: %w", err)
	}

	now := r.now()
	for _, p := range active {
		if _, seen := activeIDs[p.ExternalID]; !seen {
			if err := r.postings.UpdateStatus(ctx, p.ID, posting.StatusClosed, nil); err != nil {
				return fmt.Errorf("close posting %s: %w", p.ExternalID, err)
			}
			r.logger.Info("posting closed", zap.String("external_id", p.ExternalID))
			continue
		}

		if p.Status == posting.StatusNew && now.Sub(p.FirstSeenAt) > newAgeLimit {
			if err := r.postings.UpdateStatus(ctx, p.ID, posting.StatusExisting, nil); err != nil {
				return fmt.Errorf("age posting %s: %w", p.ExternalID, err)
			}
		}
	}

	return nil
}

// PersistNew stores every scored offer whose external identifier is not yet
// known, with status "new" and the rerank score attached to the raw payload.
// Already-stored identifiers are left untouched. Returns the identifiers of
// the postings created.
func (r *Reconciler) PersistNew(ctx context.Context, scored []scoring.ScoredOffer) ([]int64, error) {
	existing, err := r.postings.ExternalIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list external ids: %w", err)
	}

	var created []int64
	now := r.now()
	for _, s := range scored {
		if _, ok := existing[s.Offer.ID]; ok {
			continue
		}

		p, err := mapOffer(s.Offer.ID, s.Offer.Payload)
		if err != nil {
			r.logger.Warn("skipping unmappable offer", zap.String("external_id", s.Offer.ID), zap.Error(err))
			continue
		}

		p.Raw[posting.ScoreKey] = s.Score
		p.Status = posting.StatusNew
		p.FirstSeenAt = now
		p.LastSeenAt = now

		if err := r.postings.Create(ctx, p); err != nil {
			if err == store.ErrDuplicate {
				continue
			}
			return created, fmt.Errorf("create posting %s: %w", s.Offer.ID, err)
		}
		created = append(created, p.ID)
	}

	r.logger.Info("new postings persisted", zap.Int("count", len(created)))
	return created, nil
}

// offerFields mirrors the payload fields persisted on a Posting record.
type offerFields struct {
	Intitule                    string `mapstructure:"intitule"`
	Description                 string `mapstructure:"description"`
	TypeContrat                 string `mapstructure:"typeContrat"`
	TypeContratLibelle          string `mapstructure:"typeContratLibelle"`
	DureeTravailLibelleConverti string `mapstructure:"dureeTravailLibelleConverti"`
	ExperienceExige             string `mapstructure:"experienceExige"`
	ExperienceLibelle           string `mapstructure:"experienceLibelle"`
	RomeCode                    string `mapstructure:"romeCode"`
	SecteurActiviteLibelle      string `mapstructure:"secteurActiviteLibelle"`
	CodeNAF                     string `mapstructure:"codeNAF"`
	DateCreation                string `mapstructure:"dateCreation"`
	DateActualisation           string `mapstructure:"dateActualisation"`

	LieuTravail struct {
		Libelle    string  `mapstructure:"libelle"`
		CodePostal string  `mapstructure:"codePostal"`
		Latitude   float64 `mapstructure:"latitude"`
		Longitude  float64 `mapstructure:"longitude"`
	} `mapstructure:"lieuTravail"`

	Entreprise struct {
		Nom         string `mapstructure:"nom"`
		Description string `mapstructure:"description"`
		URL         string `mapstructure:"url"`
	} `mapstructure:"entreprise"`

	Salaire struct {
		Libelle string `mapstructure:"libelle"`
	} `mapstructure:"salaire"`

	Contact struct {
		URLPostulation string `mapstructure:"urlPostulation"`
	} `mapstructure:"contact"`
}

func mapOffer(externalID string, payload map[string]any) (*posting.Posting, error) {
	var fields offerFields
	cfg := &mapstructure.DecoderConfig{
		Result:           &fields,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decode offer payload: %w", err)
	}

	// Copy so the stored payload owns the attached score.
	raw := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		raw[k] = v
	}

	return &posting.Posting{
		ExternalID:         externalID,
		Title:              fields.Intitule,
		Description:        fields.Description,
		ContractType:       fields.TypeContrat,
		ContractLabel:      fields.TypeContratLibelle,
		WorkTime:           fields.DureeTravailLibelleConverti,
		ExperienceCode:     fields.ExperienceExige,
		ExperienceLabel:    fields.ExperienceLibelle,
		RomeCode:           fields.RomeCode,
		LocationLabel:      fields.LieuTravail.Libelle,
		LocationPostalCode: fields.LieuTravail.CodePostal,
		LocationLat:        fields.LieuTravail.Latitude,
		LocationLng:        fields.LieuTravail.Longitude,
		CompanyName:        fields.Entreprise.Nom,
		CompanyDescription: fields.Entreprise.Description,
		CompanyURL:         fields.Entreprise.URL,
		SalaryLabel:        fields.Salaire.Libelle,
		SectorLabel:        fields.SecteurActiviteLibelle,
		NafCode:            fields.CodeNAF,
		OfferURL:           fields.Contact.URLPostulation,
		PublishedAt:        parseTime(fields.DateCreation),
		UpdatedAt:          parseTime(fields.DateActualisation),
		Raw:                raw,
	}, nil
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
