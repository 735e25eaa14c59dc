package repositories

import (
	"context"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/domain/intelligence"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

const eventColumns = `id, organization_id, source, external_id, event_type, title, summary, url, published_date, created_at`

type postgresEventRepo struct {
	executor queryExecutor
	log      logging.Logger
}

func NewEventRepo(exec queryExecutor, log logging.Logger) intelligence.EventRepository {
	return &postgresEventRepo{executor: exec, log: log}
}

// Save inserts ev unless an event with the same identity exists, in which case
// the stored row is returned untouched.
func (r *postgresEventRepo) Save(ctx context.Context, ev *intelligence.ExternalEvent) (*intelligence.ExternalEvent, bool, error) {
	query := `INSERT INTO external_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_id, source, external_id) DO NOTHING`
	res, err := r.executor.ExecContext(ctx, query,
		ev.ID, ev.OrganizationID, ev.Source, ev.ExternalID, ev.EventType,
		ev.Title, ev.Summary, ev.URL, ev.PublishedDate, ev.CreatedAt)
	if err != nil {
		return nil, false, dbError(err, "failed to save event")
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return ev, true, nil
	}

	stored, err := scanEvent(r.executor.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM external_events WHERE organization_id = $1 AND source = $2 AND external_id = $3`,
		ev.OrganizationID, ev.Source, ev.ExternalID))
	if err != nil {
		return nil, false, dbError(err, "failed to load existing event")
	}
	r.log.Debug("Duplicate event ignored", logging.String("source", ev.Source), logging.String("external_id", ev.ExternalID))
	return stored, false, nil
}

func (r *postgresEventRepo) GetByID(ctx context.Context, orgID, id string) (*intelligence.ExternalEvent, error) {
	ev, err := scanEvent(r.executor.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM external_events WHERE organization_id = $1 AND id = $2`, orgID, id))
	if err != nil {
		if isNoRows(err) {
			return nil, errors.New(errors.ErrCodeEventNotFound, "event not found").WithDetail("id=" + id)
		}
		return nil, dbError(err, "failed to load event")
	}
	return ev, nil
}

func scanEvent(row scanner) (*intelligence.ExternalEvent, error) {
	var ev intelligence.ExternalEvent
	if err := row.Scan(&ev.ID, &ev.OrganizationID, &ev.Source, &ev.ExternalID, &ev.EventType,
		&ev.Title, &ev.Summary, &ev.URL, &ev.PublishedDate, &ev.CreatedAt); err != nil {
		return nil, err
	}
	ev.PublishedDate = ev.PublishedDate.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	return &ev, nil
}

//Personal.AI order the ending
