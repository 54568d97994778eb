package usecase

import (
	"context"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/pkg/httpcontext"
)

// Screen is a mounted page and the function that renders its current state.
type Screen struct {
	*realtime.Page
	render func() (data, derived any)
}

func NewScreen(page *realtime.Page, render func() (data, derived any)) *Screen {
	return &Screen{Page: page, render: render}
}

// Render returns the records shown and the values derived from them.
func (s *Screen) Render() (data, derived any) {
	return s.render()
}

// TargetFrom resolves the view named by the request as a mutation target.
// It returns nil when the request names no view or a view of another member.
func TargetFrom[T domain.Scoped](ctx context.Context, hub *realtime.Hub, actor domain.Actor) realtime.Target[T] {
	return realtime.TargetFor[T](hub, httpcontext.ViewID(ctx), actor.MemberID)
}
