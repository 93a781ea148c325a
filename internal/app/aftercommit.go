package app

import "context"

type afterCommitKey struct{}

// afterCommit collects work that must wait for the surrounding
// transaction to commit, such as cache invalidations: firing them
// mid-transaction would let a concurrent reader re-fill the cache
// with pre-commit state.
type afterCommit struct {
	fns []func(context.Context)
}

// withAfterCommit attaches a collector to ctx. The owner of the
// outermost transaction runs the collected work once its commit
// succeeds.
func withAfterCommit(ctx context.Context) (context.Context, *afterCommit) {
	ac := &afterCommit{}
	return context.WithValue(ctx, afterCommitKey{}, ac), ac
}

// deferAfterCommit queues fn on the surrounding collector. It reports
// false when no transaction owner is collecting, in which case the
// caller's own transaction has already committed and fn can run now.
func deferAfterCommit(ctx context.Context, fn func(context.Context)) bool {
	ac, ok := ctx.Value(afterCommitKey{}).(*afterCommit)
	if !ok {
		return false
	}
	ac.fns = append(ac.fns, fn)
	return true
}

func (ac *afterCommit) run(ctx context.Context) {
	for _, fn := range ac.fns {
		fn(ctx)
	}
}
