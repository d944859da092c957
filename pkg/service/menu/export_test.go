package menu

var (
	CleanMenuText = cleanMenuText
	ParsePage     = parsePage
)
