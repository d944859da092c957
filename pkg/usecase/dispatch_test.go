package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	"github.com/secmon-lab/babbell/pkg/repository/memory"
	"github.com/secmon-lab/babbell/pkg/service/guard"
	"github.com/secmon-lab/babbell/pkg/usecase"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

type dispatchFixture struct {
	repo     *memory.Memory
	slack    *mockSlackService
	clock    *fakeClock
	usecases *usecase.UseCases
}

func newDispatchFixture(t *testing.T, opts ...usecase.Option) *dispatchFixture {
	t.Helper()
	f := &dispatchFixture{
		repo:  memory.New(),
		slack: &mockSlackService{},
		clock: newFakeClock(),
	}
	opts = append([]usecase.Option{
		usecase.WithCooldownStore(guard.NewMemory(guard.WithClock(f.clock.Now))),
		usecase.WithDedupStore(guard.NewMemory(guard.WithClock(f.clock.Now))),
		usecase.WithBroadcastOptions(usecase.WithSendRate(0)),
	}, opts...)
	f.usecases = usecase.New(f.repo, f.slack, mustButtonSet(testButtons()), opts...)

	gt.NoError(t, f.usecases.Broadcast.Start(context.Background())).Required()
	t.Cleanup(func() {
		_ = f.usecases.Broadcast.Stop(context.Background())
	})
	return f
}

// drain waits for every queued broadcast to finish
func (f *dispatchFixture) drain(t *testing.T) {
	t.Helper()
	gt.NoError(t, f.usecases.Broadcast.Stop(context.Background())).Required()
}

func (f *dispatchFixture) sendLogs(t *testing.T) []*model.BroadcastRecord {
	t.Helper()
	records, err := f.repo.SendLog().List(context.Background(), 100)
	gt.NoError(t, err).Required()
	return records
}

func click(userID types.UserID, value, actionTS string) *model.InboundAction {
	return &model.InboundAction{
		UserID:    userID,
		ChannelID: types.ChannelID("D" + string(userID)),
		ActionID:  model.ActionIDPrefix + value,
		Value:     value,
		ActionTS:  actionTS,
		MessageTS: "1700000000.000100",
	}
}

func TestDispatcherHandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("first DM subscribes and shows the welcome panel", func(t *testing.T) {
		f := newDispatchFixture(t)
		gt.NoError(t, f.usecases.Dispatcher.HandleMessage(ctx, directMessage("Ev1", "U001"))).Required()

		sub, err := f.repo.Subscriber().Get(ctx, "U001")
		gt.NoError(t, err).Required()
		gt.Bool(t, sub.IsSubscribed).True()

		posts := f.slack.PostedTo("DU001")
		gt.Array(t, posts).Length(1).Required()
		gt.Value(t, sectionText(t, posts[0].Blocks[0])).Equal(usecase.WelcomeText)
	})

	t.Run("later DM shows the panel without welcome", func(t *testing.T) {
		f := newDispatchFixture(t)
		gt.NoError(t, f.usecases.Dispatcher.HandleMessage(ctx, directMessage("Ev1", "U001"))).Required()
		gt.NoError(t, f.usecases.Dispatcher.HandleMessage(ctx, directMessage("Ev2", "U001"))).Required()

		posts := f.slack.PostedTo("DU001")
		gt.Array(t, posts).Length(2).Required()
		gt.Value(t, sectionText(t, posts[1].Blocks[0])).NotEqual(usecase.WelcomeText)
	})

	t.Run("redelivered event is handled once", func(t *testing.T) {
		f := newDispatchFixture(t)
		for range 3 {
			gt.NoError(t, f.usecases.Dispatcher.HandleMessage(ctx, directMessage("Ev1", "U001"))).Required()
		}
		gt.Array(t, f.slack.PostedTo("DU001")).Length(1)
	})

	t.Run("redelivery after the window is handled again", func(t *testing.T) {
		f := newDispatchFixture(t)
		gt.NoError(t, f.usecases.Dispatcher.HandleMessage(ctx, directMessage("Ev1", "U001"))).Required()
		f.clock.Advance(usecase.DedupWindow)
		gt.NoError(t, f.usecases.Dispatcher.HandleMessage(ctx, directMessage("Ev1", "U001"))).Required()
		gt.Array(t, f.slack.PostedTo("DU001")).Length(2)
	})

	t.Run("bot and channel messages are ignored", func(t *testing.T) {
		f := newDispatchFixture(t)

		fromBot := directMessage("Ev1", "U001")
		fromBot.BotID = "B001"
		inChannel := directMessage("Ev2", "U001")
		inChannel.ChannelType = "channel"
		edited := directMessage("Ev3", "U001")
		edited.SubType = "message_changed"

		for _, msg := range []*model.InboundMessage{fromBot, inChannel, edited} {
			gt.NoError(t, f.usecases.Dispatcher.HandleMessage(ctx, msg)).Required()
		}

		sub, err := f.repo.Subscriber().Get(ctx, "U001")
		gt.NoError(t, err).Required()
		gt.Value(t, sub).Nil()
		gt.Array(t, f.slack.Posted()).Length(0)
	})

	t.Run("slack message event is routed", func(t *testing.T) {
		f := newDispatchFixture(t)
		event := &slackevents.EventsAPIEvent{
			Type: slackevents.CallbackEvent,
			Data: &slackevents.EventsAPICallbackEvent{EventID: "Ev100"},
			InnerEvent: slackevents.EventsAPIInnerEvent{
				Type: string(slackevents.Message),
				Data: &slackevents.MessageEvent{
					Type:        "message",
					User:        "U001",
					Text:        "hello",
					TimeStamp:   "1700000000.000100",
					Channel:     "D777",
					ChannelType: "im",
				},
			},
		}

		gt.NoError(t, f.usecases.Dispatcher.HandleSlackEvent(ctx, event)).Required()
		gt.NoError(t, f.usecases.Dispatcher.HandleSlackEvent(ctx, event)).Required()

		gt.Array(t, f.slack.PostedTo("D777")).Length(1)
		sub, err := f.repo.Subscriber().Get(ctx, "U001")
		gt.NoError(t, err).Required()
		gt.Value(t, sub.DirectChannelID).Equal(types.ChannelID("D777"))
	})

	t.Run("other slack events are ignored", func(t *testing.T) {
		f := newDispatchFixture(t)
		event := &slackevents.EventsAPIEvent{
			Type: slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{
				Type: string(slackevents.AppMention),
				Data: &slackevents.AppMentionEvent{User: "U001", Channel: "C001"},
			},
		}
		gt.NoError(t, f.usecases.Dispatcher.HandleSlackEvent(ctx, event)).Required()
		gt.Array(t, f.slack.Posted()).Length(0)
	})
}

func TestDispatcherHandleAction(t *testing.T) {
	ctx := context.Background()

	t.Run("broadcast button fans out and reports", func(t *testing.T) {
		f := newDispatchFixture(t)
		subscribe(t, f.repo, "UAAA", "UBBB")

		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.1"))).Required()
		f.drain(t)

		records := f.sendLogs(t)
		gt.Array(t, records).Length(1).Required()
		gt.Number(t, records[0].SuccessCount).Equal(2)

		// broadcast plus summary
		gt.Array(t, f.slack.PostedTo("DUAAA")).Length(2)
		gt.Array(t, f.slack.PostedTo("DUBBB")).Length(1)
	})

	t.Run("redelivered click broadcasts once", func(t *testing.T) {
		f := newDispatchFixture(t, usecase.WithCooldown(0))
		subscribe(t, f.repo, "UAAA")

		for range 3 {
			gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.1"))).Required()
		}
		f.drain(t)

		gt.Array(t, f.sendLogs(t)).Length(1)
	})

	t.Run("cooldown rejects repeated clicks with the time left", func(t *testing.T) {
		f := newDispatchFixture(t)
		subscribe(t, f.repo, "UAAA")

		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.1"))).Required()
		f.clock.Advance(15 * time.Second)
		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.2"))).Required()
		f.clock.Advance(44*time.Second + 500*time.Millisecond)
		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.3"))).Required()
		f.clock.Advance(500 * time.Millisecond)
		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.4"))).Required()
		f.drain(t)

		gt.Array(t, f.sendLogs(t)).Length(2)

		var notices []string
		for _, p := range f.slack.PostedTo("DUAAA") {
			if p.Blocks == nil {
				notices = append(notices, p.Text)
			}
		}
		gt.Array(t, notices).Has(usecase.BuildCooldownText(45))
		gt.Array(t, notices).Has(usecase.BuildCooldownText(1))
	})

	t.Run("cooldown is per button and per user", func(t *testing.T) {
		f := newDispatchFixture(t)
		subscribe(t, f.repo, "UAAA", "UBBB")

		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.1"))).Required()
		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "LATER", "1.2"))).Required()
		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UBBB", "NOW", "1.3"))).Required()
		f.drain(t)

		gt.Array(t, f.sendLogs(t)).Length(3)
	})

	t.Run("unknown button gets a notice and no cooldown", func(t *testing.T) {
		f := newDispatchFixture(t)

		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOPE", "1.1"))).Required()
		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOPE", "1.2"))).Required()

		posts := f.slack.PostedTo("DUAAA")
		gt.Array(t, posts).Length(2).Required()
		gt.Value(t, posts[0].Text).Equal(usecase.UnknownButtonText)
		gt.Value(t, posts[1].Text).Equal(usecase.UnknownButtonText)
	})

	t.Run("foreign action is ignored", func(t *testing.T) {
		f := newDispatchFixture(t)
		act := click("UAAA", "NOW", "1.1")
		act.ActionID = "other_app_NOW"

		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, act)).Required()
		f.drain(t)
		gt.Array(t, f.slack.Posted()).Length(0)
		gt.Array(t, f.sendLogs(t)).Length(0)
	})

	t.Run("opt-out stops further broadcasts", func(t *testing.T) {
		f := newDispatchFixture(t)
		subscribe(t, f.repo, "UAAA", "UBBB")

		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UBBB", "OPT_OUT", "1.1"))).Required()
		sub, err := f.repo.Subscriber().Get(ctx, "UBBB")
		gt.NoError(t, err).Required()
		gt.Bool(t, sub.IsSubscribed).False()

		optOutPosts := f.slack.PostedTo("DUBBB")
		gt.Array(t, optOutPosts).Length(1).Required()
		gt.Value(t, optOutPosts[0].Text).Equal(usecase.OptOutDoneText)

		gt.NoError(t, f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.2"))).Required()
		f.drain(t)

		records := f.sendLogs(t)
		gt.Array(t, records).Length(1).Required()
		gt.Number(t, records[0].TargetCount).Equal(1)
		gt.Array(t, f.slack.PostedTo("DUBBB")).Length(1)
	})

	t.Run("submit failure tells the actor", func(t *testing.T) {
		f := newDispatchFixture(t)
		f.drain(t)

		err := f.usecases.Dispatcher.HandleAction(ctx, click("UAAA", "NOW", "1.1"))
		gt.Error(t, err).Is(usecase.ErrBroadcastStopped)

		posts := f.slack.PostedTo("DUAAA")
		gt.Array(t, posts).Length(1).Required()
		gt.String(t, posts[0].Text).Contains("브로드캐스트 실패")
	})

	t.Run("interaction callback is routed", func(t *testing.T) {
		f := newDispatchFixture(t)
		subscribe(t, f.repo, "UAAA")

		callback := &slack.InteractionCallback{
			Type:    slack.InteractionTypeBlockActions,
			User:    slack.User{ID: "UAAA"},
			Channel: slack.Channel{GroupConversation: slack.GroupConversation{Conversation: slack.Conversation{ID: "DUAAA"}}},
			ActionCallback: slack.ActionCallbacks{
				BlockActions: []*slack.BlockAction{
					{ActionID: "babbell_NOW", Value: "NOW", ActionTs: "1.1"},
					{ActionID: "other_app", Value: "X", ActionTs: "1.2"},
				},
			},
		}
		callback.Container.MessageTs = "1700000000.000100"

		gt.NoError(t, f.usecases.Dispatcher.HandleInteraction(ctx, callback)).Required()
		gt.NoError(t, f.usecases.Dispatcher.HandleInteraction(ctx, callback)).Required()
		f.drain(t)

		records := f.sendLogs(t)
		gt.Array(t, records).Length(1).Required()
		gt.Value(t, records[0].ActorUserID).Equal(types.UserID("UAAA"))
	})

	t.Run("non block action interactions are ignored", func(t *testing.T) {
		f := newDispatchFixture(t)
		callback := &slack.InteractionCallback{Type: slack.InteractionTypeViewSubmission}
		gt.NoError(t, f.usecases.Dispatcher.HandleInteraction(ctx, callback))
	})
}

func TestUseCasesSweepers(t *testing.T) {
	uc := usecase.New(memory.New(), &mockSlackService{}, mustButtonSet(testButtons()))
	sweepers := uc.Sweepers()
	gt.Map(t, sweepers).HasKey("dedup")
	gt.Map(t, sweepers).HasKey("cooldown")
}
