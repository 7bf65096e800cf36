package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medsafe-api/internal/model"
	"github.com/jwalitptl/medsafe-api/internal/repository"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	query := `
		SELECT user_id, name, age, gender, blood_group, allergies, chronic_conditions,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relation,
			created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	var profile model.Profile
	if err := r.GetDB().GetContext(ctx, &profile, query, userID); err != nil {
		return nil, notFound(err)
	}
	return &profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (
			user_id, name, age, gender, blood_group, allergies, chronic_conditions,
			emergency_contact_name, emergency_contact_phone, emergency_contact_relation,
			created_at, updated_at
		) VALUES (
			:user_id, :name, :age, :gender, :blood_group, :allergies, :chronic_conditions,
			:emergency_contact_name, :emergency_contact_phone, :emergency_contact_relation,
			:created_at, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			blood_group = EXCLUDED.blood_group,
			allergies = EXCLUDED.allergies,
			chronic_conditions = EXCLUDED.chronic_conditions,
			emergency_contact_name = EXCLUDED.emergency_contact_name,
			emergency_contact_phone = EXCLUDED.emergency_contact_phone,
			emergency_contact_relation = EXCLUDED.emergency_contact_relation,
			updated_at = EXCLUDED.updated_at
	`
	if profile.Allergies == nil {
		profile.Allergies = []string{}
	}
	if profile.ChronicConditions == nil {
		profile.ChronicConditions = []string{}
	}
	if _, err := r.GetDB().NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
