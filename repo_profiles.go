package session

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Profiles is the bun-backed profile repository. It satisfies ProfileStore
// and adds transactional variants for callers composing larger writes. The
// update signature takes explicit changes rather than a record, so we keep
// the interface free of the generic repository surface.
type Profiles interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error)
	Create(ctx context.Context, record *Profile) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
	Update(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*Profile, error)
	UpdateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, changes ProfileChanges) (*Profile, error)
	GetOrCreate(ctx context.Context, record *Profile) (*Profile, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db *bun.DB
}

var (
	_ Profiles     = (*profiles)(nil)
	_ ProfileStore = (*profiles)(nil)
)

func NewProfilesRepository(db *bun.DB) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &profiles{
		Repository: repo,
		db:         db,
	}
}

func (a *profiles) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *profiles) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Profile, error) {
	record := &Profile{}

	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) Create(ctx context.Context, record *Profile) (*Profile, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	prepareProfileDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *profiles) Update(ctx context.Context, id uuid.UUID, changes ProfileChanges) (*Profile, error) {
	return a.UpdateTx(ctx, a.db, id, changes)
}

// UpdateTx applies only the provided fields, then returns the stored row so
// callers can treat the result as canonical.
func (a *profiles) UpdateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, changes ProfileChanges) (*Profile, error) {
	record := &Profile{ID: id}

	columns := make([]string, 0, 3)
	if changes.FullName != nil {
		record.FullName = *changes.FullName
		columns = append(columns, "full_name")
	}
	if changes.AvatarURL != nil {
		record.AvatarURL = *changes.AvatarURL
		columns = append(columns, "avatar_url")
	}
	if changes.Phone != nil {
		record.Phone = *changes.Phone
		columns = append(columns, "phone_number")
	}

	if len(columns) > 0 {
		_, err := tx.NewUpdate().
			Model(record).
			Column(columns...).
			Where("?TableAlias.id = ?", id.String()).
			Where("?TableAlias.deleted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return nil, err
		}
	}

	return a.GetByIDTx(ctx, tx, id)
}

func (a *profiles) GetOrCreate(ctx context.Context, record *Profile) (*Profile, error) {
	return a.GetOrCreateTx(ctx, a.db, record)
}

func (a *profiles) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	existing, err := a.GetByIDTx(ctx, tx, record.ID)
	if err == nil {
		return existing, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.CreateTx(ctx, tx, record)
}

func prepareProfileDefaults(record *Profile) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.FullName == "" && record.Email != "" {
		record.FullName = NameFromEmail(record.Email)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
