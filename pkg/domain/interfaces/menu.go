package interfaces

import (
	"context"

	"github.com/secmon-lab/babbell/pkg/domain/model"
)

// MenuProvider fetches today's cafeteria menu from its upstream source
type MenuProvider interface {
	Fetch(ctx context.Context) (*model.Menu, error)
}
