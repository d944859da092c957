package menu

import (
	"io"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/babbell/pkg/domain/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	mealTableID = "celeb-mealtable"
	maxItems    = 5
)

// targetRestaurants is the display order. A row matches when its title
// contains the name.
var targetRestaurants = []string{
	"학생회관식당",
	"3식당",
	"자하연식당 2층",
	"예술계식당",
	"두레미담",
}

// selfCornerOnly restaurants list several counters; only the self-service one is shown
var selfCornerOnly = map[string]bool{
	"두레미담": true,
}

var (
	selfCornerSection = regexp.MustCompile(`<셀프코너>[^<]*`)
	noticePattern     = regexp.MustCompile(`※.*`)
	priceOnlyPattern  = regexp.MustCompile(`^[\d,]+원$`)
	pricePattern      = regexp.MustCompile(`\s*:\s*[\d,]+원`)
)

var ErrMenuTableNotFound = goerr.New("menu table not found")

func parsePage(r io.Reader) ([]model.Restaurant, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse HTML")
	}

	table := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && attr(n, "id") == mealTableID
	})
	if table == nil {
		return nil, ErrMenuTableNotFound
	}

	found := make(map[string]model.Restaurant)
	for _, row := range findAll(table, isElement(atom.Tr)) {
		title := findFirst(row, isCell("title"))
		if title == nil {
			continue
		}

		name := matchRestaurant(textOf(title, ""))
		if name == "" {
			continue
		}
		// first occurrence wins
		if _, ok := found[name]; ok {
			continue
		}

		restaurant := model.Restaurant{Name: name}
		selfCorner := selfCornerOnly[name]
		restaurant.Breakfast = parseMeal(row, "breakfast", model.MealBreakfast, selfCorner)
		restaurant.Lunch = parseMeal(row, "lunch", model.MealLunch, selfCorner)
		restaurant.Dinner = parseMeal(row, "dinner", model.MealDinner, selfCorner)
		found[name] = restaurant
	}

	var restaurants []model.Restaurant
	for _, name := range targetRestaurants {
		if r, ok := found[name]; ok {
			restaurants = append(restaurants, r)
		}
	}
	return restaurants, nil
}

func matchRestaurant(title string) string {
	for _, name := range targetRestaurants {
		if strings.Contains(title, name) {
			return name
		}
	}
	return ""
}

func parseMeal(row *html.Node, class string, mealType model.MealType, selfCorner bool) *model.Meal {
	cell := findFirst(row, isCell(class))
	if cell == nil {
		return nil
	}

	items := cleanMenuText(textOf(cell, "\n"), selfCorner)
	if len(items) == 0 {
		return nil
	}
	return &model.Meal{Type: mealType, Items: items}
}

// cleanMenuText turns the text of one meal cell into at most maxItems dish
// names. Prices, notices and section headers are dropped.
func cleanMenuText(raw string, selfCorner bool) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	text := raw
	if selfCorner {
		text = extractSelfCorner(text)
	}
	text = noticePattern.ReplaceAllString(text, "")

	var items []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case priceOnlyPattern.MatchString(line):
			continue
		case strings.Contains(line, "운영시간"), strings.Contains(line, "혼잡시간"):
			continue
		case strings.HasPrefix(line, "<") && strings.HasSuffix(line, ">"):
			continue
		case strings.Contains(line, "셀프코너"), strings.Contains(line, "주문식"):
			continue
		}

		line = strings.TrimSpace(pricePattern.ReplaceAllString(line, ""))
		if utf8.RuneCountInString(line) > 1 {
			items = append(items, line)
		}
		if len(items) == maxItems {
			break
		}
	}
	return items
}

// extractSelfCorner keeps the self-service section, up to the next section
// or the order-to-cook menu. Text without the section is returned as is.
func extractSelfCorner(text string) string {
	if m := selfCornerSection.FindString(text); m != "" {
		return m
	}
	idx := strings.Index(text, "셀프코너")
	if idx < 0 {
		return text
	}
	section := text[idx:]
	if end := strings.Index(section, "주문식"); end >= 0 {
		section = section[:end]
	}
	return section
}

func isElement(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func isCell(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Td &&
			slices.Contains(strings.Fields(attr(n, "class")), class)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var result []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			result = append(result, c)
		}
		result = append(result, findAll(c, match)...)
	}
	return result
}

// textOf joins the trimmed, non-empty text nodes under n with sep
func textOf(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}
