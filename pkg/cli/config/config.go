package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

//go:embed default_buttons.toml
var defaultButtons []byte

// ButtonFile represents the button configuration file
type ButtonFile struct {
	Buttons []ButtonEntry `toml:"button"`
}

// ButtonEntry is one [[button]] table
type ButtonEntry struct {
	Value       string `toml:"value"`
	Label       string `toml:"label"`
	Template    string `toml:"template"`
	Broadcast   bool   `toml:"broadcast"`
	IncludeMenu bool   `toml:"include_menu"`
	OptOut      bool   `toml:"opt_out"`
	Style       string `toml:"style"`
}

func (e ButtonEntry) toModel() model.Button {
	return model.Button{
		Value:       e.Value,
		Label:       e.Label,
		Template:    e.Template,
		IsBroadcast: e.Broadcast,
		IncludeMenu: e.IncludeMenu,
		IsOptOut:    e.OptOut,
		Style:       model.ButtonStyle(e.Style),
	}
}

// Validate checks every entry and rejects duplicated values
func (f *ButtonFile) Validate() error {
	if len(f.Buttons) == 0 {
		return goerr.Wrap(ErrInvalidConfig, "at least one button is required")
	}

	seen := make(map[string]int, len(f.Buttons))
	for i, entry := range f.Buttons {
		if prev, ok := seen[entry.Value]; ok {
			return goerr.Wrap(ErrDuplicateButton, "button value is defined twice",
				goerr.V(ButtonValueKey, entry.Value),
				goerr.V(ButtonIndexKey, i),
				goerr.V("previous_index", prev))
		}
		seen[entry.Value] = i

		if err := entry.toModel().Validate(); err != nil {
			return goerr.Wrap(err, "invalid button", goerr.V(ButtonIndexKey, i))
		}
	}
	return nil
}

// ToButtonSet converts the file into the runtime button table
func (f *ButtonFile) ToButtonSet() (*model.ButtonSet, error) {
	buttons := make([]model.Button, len(f.Buttons))
	for i, entry := range f.Buttons {
		buttons[i] = entry.toModel()
	}
	set, err := model.NewButtonSet(buttons)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to build button set", goerr.V("error", err.Error()))
	}
	return set, nil
}

// ParseButtons parses and validates TOML button definitions
func ParseButtons(data []byte) (*ButtonFile, error) {
	var file ButtonFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse button TOML", goerr.V("error", err.Error()))
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// LoadButtons reads button definitions from a TOML file
func LoadButtons(path string) (*ButtonFile, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "button file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read button file", goerr.V(ConfigPathKey, path))
	}

	file, err := ParseButtons(data)
	if err != nil {
		return nil, goerr.Wrap(err, "button config validation failed", goerr.V(ConfigPathKey, path))
	}
	return file, nil
}

// DefaultButtons returns the built-in button definitions
func DefaultButtons() *ButtonFile {
	file, err := ParseButtons(defaultButtons)
	if err != nil {
		panic("built-in button definitions are invalid: " + err.Error())
	}
	return file
}

// Buttons holds the CLI flag for the button definition file
type Buttons struct {
	path string
}

func (x *Buttons) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "buttons",
			Aliases:     []string{"b"},
			Usage:       "Button definition TOML file (built-in buttons when omitted)",
			Category:    "Buttons",
			Sources:     cli.EnvVars("BABBELL_BUTTONS"),
			Destination: &x.path,
		},
	}
}

func (x Buttons) LogValue() slog.Value {
	return slog.GroupValue(slog.String("path", x.path))
}

// Path returns the configured file path, empty for the built-in set
func (x *Buttons) Path() string {
	return x.path
}

// Configure loads the button table
func (x *Buttons) Configure() (*model.ButtonSet, error) {
	file := DefaultButtons()
	if x.path != "" {
		loaded, err := LoadButtons(x.path)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	return file.ToButtonSet()
}
