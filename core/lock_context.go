package core

import "context"

type lockContextKey struct{}

// ContextWithLock exposes the held lock to the vendor during Submit, so
// vendors with sessions can attach the job to it.
func ContextWithLock(ctx context.Context, lock VendorLock) context.Context {
	return context.WithValue(ctx, lockContextKey{}, lock)
}

func LockFromContext(ctx context.Context) (VendorLock, bool) {
	if ctx == nil {
		return VendorLock{}, false
	}
	lock, ok := ctx.Value(lockContextKey{}).(VendorLock)
	return lock, ok && lock.Token != ""
}
