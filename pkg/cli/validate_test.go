package cli_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/babbell/pkg/cli"
)

func writeButtons(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buttons.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600)).Required()
	return path
}

func TestRun_ValidateCommand_BuiltInButtons(t *testing.T) {
	err := cli.Run(context.Background(), []string{"babbell", "validate"}, "test")
	gt.NoError(t, err)
}

func TestRun_ValidateCommand_ValidButtons(t *testing.T) {
	path := writeButtons(t, `
[[button]]
value = "NOW"
label = "Lunch now"
template = "Lunch now {menu}"
broadcast = true
include_menu = true

[[button]]
value = "OPT_OUT"
label = "Stop"
opt_out = true
`)

	err := cli.Run(context.Background(), []string{"babbell", "validate", "--buttons", path}, "test")
	gt.NoError(t, err)
}

func TestRun_ValidateCommand_InvalidButtons(t *testing.T) {
	// lowercase values cannot form an action ID
	path := writeButtons(t, `
[[button]]
value = "now"
label = "Lunch now"
template = "Lunch now"
broadcast = true

[[button]]
value = "OPT_OUT"
label = "Stop"
opt_out = true
`)

	err := cli.Run(context.Background(), []string{"babbell", "validate", "--buttons", path}, "test")
	gt.Value(t, err).NotNil()
}

func TestRun_ValidateCommand_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	err := cli.Run(context.Background(), []string{"babbell", "validate", "--buttons", path}, "test")
	gt.Value(t, err).NotNil()
}

func TestRun_ValidateCommand_CheckSlackWithoutToken(t *testing.T) {
	t.Setenv("BABBELL_SLACK_BOT_TOKEN", "")
	err := cli.Run(context.Background(), []string{"babbell", "validate", "--check-slack"}, "test")
	gt.Value(t, err).NotNil()
}
