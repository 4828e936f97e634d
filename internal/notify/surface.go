package notify

import "context"

// Surface is the local notification capability of the host environment.
type Surface interface {
	// Supported reports whether the environment can show notifications.
	Supported() bool
	// RequestPermission asks the user for notification permission.
	// Called once from the settings flow, never on per-plant checks.
	RequestPermission(ctx context.Context) bool
	// Show displays a notification. The tag identifies the plant so the
	// surface can collapse duplicates instead of stacking them.
	Show(ctx context.Context, title, body, tag string) error
}

// NopSurface is the surface for environments without notification
// support. Every check terminates silently at the support step.
type NopSurface struct{}

func (NopSurface) Supported() bool { return false }

func (NopSurface) RequestPermission(context.Context) bool { return false }

func (NopSurface) Show(_ context.Context, _, _, _ string) error { return nil }

var _ Surface = NopSurface{}
