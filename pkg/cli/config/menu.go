package config

import (
	"log/slog"
	"time"
	_ "time/tzdata" // the menu day is decided in a fixed zone, even on minimal images

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/interfaces"
	"github.com/secmon-lab/babbell/pkg/service/menu"
	"github.com/secmon-lab/babbell/pkg/usecase"
	"github.com/urfave/cli/v3"
)

const DefaultMenuTimezone = "Asia/Seoul"

// Menu holds CLI flags for today's cafeteria menu
type Menu struct {
	enabled  bool
	url      string
	ttl      time.Duration
	timezone string
}

func (x *Menu) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "enable-menu",
			Usage:       "Attach today's menu to broadcasts that ask for it",
			Category:    "Menu",
			Sources:     cli.EnvVars("BABBELL_ENABLE_MENU"),
			Destination: &x.enabled,
		},
		&cli.StringFlag{
			Name:        "menu-url",
			Usage:       "Menu page URL",
			Category:    "Menu",
			Value:       menu.DefaultURL,
			Sources:     cli.EnvVars("BABBELL_MENU_URL"),
			Destination: &x.url,
		},
		&cli.DurationFlag{
			Name:        "menu-cache-ttl",
			Usage:       "How long a fetched menu is reused",
			Category:    "Menu",
			Value:       usecase.DefaultMenuTTL,
			Sources:     cli.EnvVars("BABBELL_MENU_CACHE_TTL"),
			Destination: &x.ttl,
		},
		&cli.StringFlag{
			Name:        "menu-timezone",
			Usage:       "Time zone deciding the menu date and meal",
			Category:    "Menu",
			Value:       DefaultMenuTimezone,
			Sources:     cli.EnvVars("BABBELL_MENU_TIMEZONE"),
			Destination: &x.timezone,
		},
	}
}

func (x Menu) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.enabled),
		slog.String("url", x.url),
		slog.String("ttl", x.ttl.String()),
		slog.String("timezone", x.timezone),
	)
}

// Configure returns the menu provider, or nil when the menu is disabled
func (x *Menu) Configure() (interfaces.MenuProvider, error) {
	if !x.enabled {
		return nil, nil
	}

	loc, err := time.LoadLocation(x.timezone)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidTimezone, "failed to load menu timezone",
			goerr.V("timezone", x.timezone),
			goerr.V("error", err.Error()))
	}

	return menu.New(menu.WithURL(x.url), menu.WithLocation(loc)), nil
}

// Options converts the settings into use case options
func (x *Menu) Options() ([]usecase.Option, error) {
	provider, err := x.Configure()
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	return []usecase.Option{
		usecase.WithMenuProvider(provider),
		usecase.WithMenuTTL(x.ttl),
	}, nil
}
