package usecase

import (
	"fmt"
	"strings"

	"github.com/secmon-lab/babbell/pkg/domain/model"
	"github.com/secmon-lab/babbell/pkg/domain/types"
	"github.com/slack-go/slack"
)

// Template placeholders available to broadcast buttons
const (
	PlaceholderActor = "{actor}"
	PlaceholderMenu  = "{menu}"
)

const (
	panelFallbackText   = "밥벨 버튼"
	panelHeaderText     = ":bell: *밥벨* - 버튼을 눌러 알림을 보내세요."
	panelOptOutHint     = "더 이상 알림을 받고 싶지 않으면 아래 버튼을 누르세요."
	welcomeText         = ":white_check_mark: *구독 처리 완료!* 이제 밥벨을 받습니다."
	welcomeFallbackText = "구독 처리 완료! 이제 밥벨을 받습니다."
	unknownButtonText   = "알 수 없는 버튼입니다."
	optOutDoneText      = "수신 거부 처리 완료. 다시 받으려면 봇에게 아무 메시지나 보내세요."
	menuTitle           = "*오늘의 메뉴*"
	menuClosedText      = "오늘 운영 종료"
)

func markdownSection(text string) *slack.SectionBlock {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
}

func buttonElement(b model.Button) *slack.ButtonBlockElement {
	elem := slack.NewButtonBlockElement(b.ActionID(), b.Value, slack.NewTextBlockObject(slack.PlainTextType, b.Label, true, false))
	if b.Style != model.ButtonStyleDefault {
		elem = elem.WithStyle(slack.Style(b.Style))
	}
	return elem
}

// buildPanelBlocks renders the control panel. New subscribers get a
// confirmation header above it.
func buildPanelBlocks(buttons *model.ButtonSet, welcome bool) ([]slack.Block, string) {
	var blocks []slack.Block
	fallback := panelFallbackText
	if welcome {
		blocks = append(blocks, markdownSection(welcomeText), slack.NewDividerBlock())
		fallback = welcomeFallbackText
	}

	var broadcastElements []slack.BlockElement
	for _, b := range buttons.Broadcasts() {
		broadcastElements = append(broadcastElements, buttonElement(b))
	}

	blocks = append(blocks, markdownSection(panelHeaderText))
	if len(broadcastElements) > 0 {
		blocks = append(blocks, slack.NewActionBlock("", broadcastElements...))
	}
	blocks = append(blocks,
		slack.NewDividerBlock(),
		slack.NewContextBlock("", slack.NewTextBlockObject(slack.MarkdownType, panelOptOutHint, false, false)),
		slack.NewActionBlock("", buttonElement(buttons.OptOut())),
	)

	return blocks, fallback
}

// renderMenu renders the menu as mrkdwn lines. It returns an empty string
// when there is nothing to show.
func renderMenu(menu *model.Menu) string {
	if menu.IsEmpty() {
		return ""
	}

	lines := []string{menuTitle}
	for _, r := range menu.Restaurants {
		if r.Selected != nil && len(r.Selected.Items) > 0 {
			lines = append(lines, fmt.Sprintf("• *%s*: %s", r.Name, strings.Join(r.Selected.Items, ", ")))
		} else {
			lines = append(lines, fmt.Sprintf("• *%s*: %s", r.Name, menuClosedText))
		}
	}
	return strings.Join(lines, "\n")
}

// buildBroadcastMessage renders the broadcast body. {actor} and {menu} are
// substituted in place; without them the actor line is appended to the text
// and the menu follows in its own section. Absent content leaves nothing
// behind.
func buildBroadcastMessage(button model.Button, actor types.UserID, includeActor bool, menu *model.Menu) ([]slack.Block, string) {
	text := button.Template

	var actorText string
	if includeActor {
		actorText = actor.Mention()
	}
	if !strings.Contains(text, PlaceholderActor) && actorText != "" {
		text = fmt.Sprintf("%s\n(by %s)", text, actorText)
	}

	menuText := renderMenu(menu)
	menuInline := strings.Contains(text, PlaceholderMenu)
	text = substitute(text, strings.NewReplacer(
		PlaceholderActor, actorText,
		PlaceholderMenu, menuText,
	))

	blocks := []slack.Block{markdownSection(text)}
	if !menuInline && menuText != "" {
		blocks = append(blocks, slack.NewDividerBlock(), markdownSection(menuText))
	}
	return blocks, text
}

// substitute fills placeholders line by line. A line that only held empty
// placeholders is dropped, blank lines written in the template are kept.
func substitute(text string, replacer *strings.Replacer) string {
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		if !strings.Contains(line, PlaceholderActor) && !strings.Contains(line, PlaceholderMenu) {
			lines = append(lines, line)
			continue
		}
		line = strings.TrimRight(replacer.Replace(line), " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func buildSummaryText(button model.Button, record *model.BroadcastRecord) string {
	if !record.HasFailures() {
		return fmt.Sprintf(":white_check_mark: 브로드캐스트 완료!\n• 액션: %s\n• 성공: %d명",
			button.Label, record.SuccessCount)
	}
	return fmt.Sprintf(":warning: 브로드캐스트 완료 (일부 실패)\n• 액션: %s\n• 성공: %d명\n• 실패: %d명",
		button.Label, record.SuccessCount, record.FailureCount)
}

func buildBroadcastFailedText(button model.Button) string {
	return fmt.Sprintf(":x: 브로드캐스트 실패\n• 액션: %s\n잠시 후 다시 시도해주세요.", button.Label)
}

func buildCooldownText(seconds int) string {
	return fmt.Sprintf("쿨다운 중입니다. %d초 후에 다시 시도해주세요.", seconds)
}
