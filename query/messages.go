package query

const TypeSessionStatus = "authclient.query.session.status"

type SessionStatusMessage struct{}

func (SessionStatusMessage) Type() string { return TypeSessionStatus }

func (SessionStatusMessage) Validate() error { return nil }
