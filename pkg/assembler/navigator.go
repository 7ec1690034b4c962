package assembler

import (
	"context"
	"sync"

	"github.com/goliatone/go-formblocks/pkg/session"
)

type redirectKey struct{}

type redirectSlot struct {
	mu   sync.Mutex
	path string
}

func (s *redirectSlot) set(path string) {
	s.mu.Lock()
	s.path = path
	s.mu.Unlock()
}

func (s *redirectSlot) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

func withRedirectSlot(ctx context.Context) (context.Context, *redirectSlot) {
	slot := &redirectSlot{}
	return context.WithValue(ctx, redirectKey{}, slot), slot
}

// Navigator returns a session.Navigator for forms served over HTTP. A
// redirect requested while a form handler runs is answered with 303 See
// Other instead of the form. Outside a handler it does nothing.
func Navigator() session.Navigator {
	return session.NavigatorFunc(func(ctx context.Context, path string) error {
		if slot, ok := ctx.Value(redirectKey{}).(*redirectSlot); ok {
			slot.set(path)
		}
		return nil
	})
}
