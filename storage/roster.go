package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Session is what the roster records about an admitted connection.
type Session struct {
	Name        string
	Remote      string
	ConnectedAt time.Time
}

// Roster records live sessions in a Store, keyed by connection id.
type Roster struct {
	store Store
}

func NewRoster(store Store) *Roster {
	return &Roster{store: store}
}

func (r *Roster) Join(ctx context.Context, id uuid.UUID, session Session) error {
	return r.store.Set(ctx, []byte(id.String()), map[string]interface{}{
		"name":        session.Name,
		"remote":      session.Remote,
		"connectedAt": session.ConnectedAt.UTC().Format(time.RFC3339),
	})
}

func (r *Roster) Leave(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, []byte(id.String()))
}

// Snapshot returns the roster document, `{}` when nobody is connected.
func (r *Roster) Snapshot() ([]byte, error) {
	return r.store.Backup()
}

func (r *Roster) Store() Store {
	return r.store
}

// Sessions decodes the roster document.
func (r *Roster) Sessions() (map[string]Session, error) {
	doc, err := r.store.Backup()
	if err != nil {
		return nil, err
	}

	sessions := make(map[string]Session)

	gjson.ParseBytes(doc).ForEach(func(key, value gjson.Result) bool {
		connectedAt, _ := time.Parse(time.RFC3339, value.Get("connectedAt").String())

		sessions[key.String()] = Session{
			Name:        value.Get("name").String(),
			Remote:      value.Get("remote").String(),
			ConnectedAt: connectedAt,
		}
		return true
	})

	return sessions, nil
}
