package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/babbell/pkg/domain/types"
)

func TestUserID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.UserID
		wantErr bool
	}{
		{"regular user", "U01ABCDEF", false},
		{"enterprise user", "W012ABC", false},
		{"empty", "", true},
		{"lowercase", "u01abcdef", true},
		{"channel id", "C01ABCDEF", true},
		{"too short", "U1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("UserID.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChannelID_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.ChannelID
		wantErr bool
	}{
		{"direct message", "D01ABCDEF", false},
		{"public channel", "C01ABCDEF", false},
		{"group", "G01ABCDEF", false},
		{"empty", "", true},
		{"user id", "U01ABCDEF", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("ChannelID.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestUserID_Mention(t *testing.T) {
	gt.Value(t, types.UserID("U123ABC").Mention()).Equal("<@U123ABC>")
}

func TestNewBroadcastID(t *testing.T) {
	a := types.NewBroadcastID()
	b := types.NewBroadcastID()

	gt.NoError(t, a.Validate())
	gt.NoError(t, b.Validate())
	gt.Value(t, a).NotEqual(b)

	gt.Value(t, types.BroadcastID("not-a-uuid").Validate()).NotNil()
	gt.Value(t, types.BroadcastID("").Validate()).NotNil()
}
