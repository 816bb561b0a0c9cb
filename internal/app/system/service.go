package system

import "context"

// Service is a lifecycle-managed component. Background workers such as the
// settlement retrier implement it so the manager can start and stop them in
// a deterministic order.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
