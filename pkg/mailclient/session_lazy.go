package mailclient

import "context"

// LazySession opens the Transport session on first Send, so a loop where nothing is sent never connects.
// Error when opening is returned as TransportError with Op "open".
type LazySession struct {
	transport Transport
	session   Session
}

var _ Session = (*LazySession)(nil)

func NewLazySession(transport Transport) *LazySession {
	return &LazySession{transport: transport}
}

func (l *LazySession) Send(ctx context.Context, mail Mail) error {
	if l.session == nil {
		sess, err := l.transport.Open(ctx)
		if err != nil {
			return &TransportError{Op: "open", Err: err}
		}

		l.session = sess
	}

	return l.session.Send(ctx, mail)
}

// Close closes the underlying session if it was ever opened.
func (l *LazySession) Close() error {
	if l.session == nil {
		return nil
	}

	err := l.session.Close()
	l.session = nil
	return err
}
