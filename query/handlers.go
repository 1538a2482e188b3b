package query

import (
	"context"

	"github.com/goliatone/go-authclient/core"
)

type SessionStatusReader interface {
	Status(ctx context.Context) (core.SessionStatus, error)
}

// SessionStatusQuery reports token presence and the coordinator state. It never
// returns token values.
type SessionStatusQuery struct {
	reader SessionStatusReader
}

func NewSessionStatusQuery(reader SessionStatusReader) *SessionStatusQuery {
	return &SessionStatusQuery{reader: reader}
}

func (q *SessionStatusQuery) Query(ctx context.Context, _ SessionStatusMessage) (core.SessionStatus, error) {
	if q == nil || q.reader == nil {
		return core.SessionStatus{}, queryDependencyError("query: session status reader is required")
	}
	return q.reader.Status(ctx)
}
