package httpapi

import "context"

// serverBaseCtx ties request lifetimes to process shutdown. Handlers derive
// from it so canceling it aborts in-flight generation during drain.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process shutdown context. nil resets to
// Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives from a and additionally cancels when b is done, so the
// request stops on whichever ends first: client disconnect or shutdown.
// Values and deadline of a are preserved. The cancel func must be called when
// the handler returns.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
