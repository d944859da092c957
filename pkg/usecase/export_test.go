package usecase

// Exported for testing
var (
	BuildPanelBlocks         = buildPanelBlocks
	BuildBroadcastMessage    = buildBroadcastMessage
	BuildSummaryText         = buildSummaryText
	BuildBroadcastFailedText = buildBroadcastFailedText
	BuildCooldownText        = buildCooldownText
	RenderMenu               = renderMenu
)

const (
	UnknownButtonText = unknownButtonText
	OptOutDoneText    = optOutDoneText
	WelcomeText       = welcomeText
)
