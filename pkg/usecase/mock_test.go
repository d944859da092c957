package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	slacksvc "github.com/secmon-lab/babbell/pkg/service/slack"
	"github.com/slack-go/slack"
)

type postedMessage struct {
	ChannelID types.ChannelID
	Blocks    []slack.Block
	Text      string
}

// mockSlackService records posts and opens "D"+userID channels
type mockSlackService struct {
	mu sync.Mutex

	openDirectChannelFn func(ctx context.Context, userID types.UserID) (types.ChannelID, error)
	postMessageFn       func(ctx context.Context, channelID types.ChannelID, text string) error
	getUserInfoFn       func(ctx context.Context, userID types.UserID) (*slacksvc.User, error)

	opened    []types.UserID
	posted    []postedMessage
	userInfos int
}

var _ slacksvc.Service = &mockSlackService{}

func (m *mockSlackService) AuthTest(ctx context.Context) (*slacksvc.Identity, error) {
	return &slacksvc.Identity{TeamID: "T001", Team: "test", UserID: "UBOT", BotID: "B001"}, nil
}

func (m *mockSlackService) OpenDirectChannel(ctx context.Context, userID types.UserID) (types.ChannelID, error) {
	m.mu.Lock()
	m.opened = append(m.opened, userID)
	m.mu.Unlock()

	if m.openDirectChannelFn != nil {
		return m.openDirectChannelFn(ctx, userID)
	}
	return types.ChannelID("D" + string(userID)), nil
}

func (m *mockSlackService) PostMessage(ctx context.Context, channelID types.ChannelID, blocks []slack.Block, text string) (string, error) {
	if m.postMessageFn != nil {
		if err := m.postMessageFn(ctx, channelID, text); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, postedMessage{ChannelID: channelID, Blocks: blocks, Text: text})
	return "1700000000.000100", nil
}

func (m *mockSlackService) GetUserInfo(ctx context.Context, userID types.UserID) (*slacksvc.User, error) {
	m.mu.Lock()
	m.userInfos++
	m.mu.Unlock()

	if m.getUserInfoFn != nil {
		return m.getUserInfoFn(ctx, userID)
	}
	return &slacksvc.User{ID: userID, Name: "user", DisplayName: "User " + string(userID)}, nil
}

func (m *mockSlackService) Posted() []postedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]postedMessage, len(m.posted))
	copy(out, m.posted)
	return out
}

func (m *mockSlackService) PostedTo(channelID types.ChannelID) []postedMessage {
	var out []postedMessage
	for _, p := range m.Posted() {
		if p.ChannelID == channelID {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockSlackService) Opened() []types.UserID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.UserID, len(m.opened))
	copy(out, m.opened)
	return out
}

// failFor makes every post to the given channels fail
func failFor(channels ...types.ChannelID) func(ctx context.Context, channelID types.ChannelID, text string) error {
	return func(ctx context.Context, channelID types.ChannelID, text string) error {
		for _, c := range channels {
			if c == channelID {
				return goerr.New("channel_not_found", goerr.V("channel_id", channelID))
			}
		}
		return nil
	}
}

type mockMenuProvider struct {
	mu      sync.Mutex
	fetchFn func(ctx context.Context) (*model.Menu, error)
	calls   int
}

func (m *mockMenuProvider) Fetch(ctx context.Context) (*model.Menu, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return testMenu(), nil
}

func (m *mockMenuProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testMenu() *model.Menu {
	lunch := &model.Meal{Type: model.MealLunch, Items: []string{"비빔밥", "된장국"}}
	return &model.Menu{
		Date: "2026-03-02",
		Restaurants: []model.Restaurant{
			{Name: "3식당", Lunch: lunch, Selected: lunch},
			{Name: "4식당"},
		},
		FetchedAt: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testButtons() []model.Button {
	return []model.Button{
		{Value: "NOW", Label: "밥 먹자!", Template: ":rice: 밥 먹으러 갑시다! {actor}", IsBroadcast: true, Style: model.ButtonStylePrimary},
		{Value: "MENU", Label: "메뉴 공유", Template: "오늘 메뉴입니다.\n{menu}", IsBroadcast: true, IncludeMenu: true},
		{Value: "LATER", Label: "10분 뒤", Template: "10분 뒤에 갑니다.", IsBroadcast: true},
		{Value: "OPT_OUT", Label: "수신 거부", IsOptOut: true, Style: model.ButtonStyleDanger},
	}
}

func mustButtonSet(buttons []model.Button) *model.ButtonSet {
	set, err := model.NewButtonSet(buttons)
	if err != nil {
		panic(err)
	}
	return set
}

func button(value string) model.Button {
	b, ok := mustButtonSet(testButtons()).Lookup(value)
	if !ok {
		panic("unknown test button: " + value)
	}
	return b
}
