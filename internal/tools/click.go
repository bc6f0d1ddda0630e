package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ClickFailure is returned when the page cannot be inspected at all.
const ClickFailure = "Sorry, I couldn't simulate the button click."

// ClickTool pretends to click a button on a page.
//
// It only checks that a button-like element with the given visible text
// exists. Nothing is executed and the returned text is a placeholder, not
// updated HTML.
type ClickTool struct {
	BaseTool
	logger *slog.Logger
}

type clickArgs struct {
	HTML   string `mapstructure:"html"`
	Button string `mapstructure:"button"`
}

// NewClickTool creates the click tool
func NewClickTool(opts Options) *ClickTool {
	return &ClickTool{
		logger: opts.logger(),
		BaseTool: BaseTool{
			Def: ToolSpec{
				Name:        "click",
				Description: "Click any button on a website and return the updated HTML",
				Parameters: &JSONSchema{
					Type: "object",
					Properties: map[string]*JSONSchema{
						"html": {
							Type:        "string",
							Description: "The HTML content of the current page",
						},
						"button": {
							Type:        "string",
							Description: "A text description of the button to click on the HTML page",
						},
					},
					Required: []string{"html", "button"},
				},
			},
		},
	}
}

// ButtonNotFound is the result for a label with no matching element.
func ButtonNotFound(label string) string {
	return fmt.Sprintf("Button '%s' not found on the page.", label)
}

// ButtonClicked is the placeholder result for a matching element.
func ButtonClicked(label string) string {
	return fmt.Sprintf("Clicked on the button '%s'. Updated HTML content would be displayed here.", label)
}

// Validate checks both arguments are present and strings
func (t *ClickTool) Validate(args map[string]any) error {
	if err := t.BaseTool.Validate(args); err != nil {
		return err
	}
	var in clickArgs
	return decodeArgs(args, &in)
}

// Execute looks the button up
func (t *ClickTool) Execute(ctx context.Context, args map[string]any) string {
	var in clickArgs
	_ = decodeArgs(args, &in)
	return t.Click(in.HTML, in.Button)
}

// Click reports whether page contains a button labelled label.
func (t *ClickTool) Click(page, label string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("error simulating button click", "button", label, "err", r)
			result = ClickFailure
		}
	}()

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.logger.Warn("error simulating button click", "button", label, "err", err)
		return ClickFailure
	}
	if FindButton(doc, label) == nil {
		return ButtonNotFound(label)
	}
	return ButtonClicked(label)
}

// FindButton returns the first button-like element under n whose visible
// text equals label, or nil. Runs of whitespace are collapsed on both sides
// before comparing; case is significant.
func FindButton(n *html.Node, label string) *html.Node {
	return findButton(n, collapseSpace(label))
}

func findButton(n *html.Node, label string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		if isHidden(n) {
			return nil
		}
		if isButtonLike(n) && buttonText(n) == label {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findButton(c, label); found != nil {
			return found
		}
	}
	return nil
}

func isButtonLike(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Button:
		return true
	case atom.Input:
		switch strings.ToLower(attr(n, "type")) {
		case "button", "submit", "reset":
			return true
		}
	}
	return strings.EqualFold(attr(n, "role"), "button")
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "hidden" {
			return true
		}
	}
	return attr(n, "aria-hidden") == "true"
}

// buttonText is the text a user sees on the element, whitespace collapsed.
func buttonText(n *html.Node) string {
	if n.DataAtom == atom.Input {
		return collapseSpace(attr(n, "value"))
	}
	var sb strings.Builder
	collectText(n, &sb)
	return collapseSpace(sb.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		sb.WriteString(n.Data)
		return
	case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style || isHidden(n)):
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
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
