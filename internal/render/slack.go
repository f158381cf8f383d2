package render

import (
	"fmt"
	"strings"

	"hsr-monitor/internal/notice"
)

// MaxSlackItems is the number of notice blocks sent in one message. Slack
// rejects messages over 50 blocks; header, intro and divider take three.
const MaxSlackItems = 45

// SlackMessage is an Incoming Webhook payload using Block Kit.
type SlackMessage struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

// Block is a Block Kit layout block.
type Block struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
}

// TextObject is a Block Kit text composition object.
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// RenderSlack builds the chat message for items: a header carrying the count,
// an intro, a divider, one section per notice up to MaxSlackItems, and a
// trailing summary block when notices were omitted.
func RenderSlack(items []notice.Notice) SlackMessage {
	count := len(items)
	headline := fmt.Sprintf("%d new HSR early termination notice", count)
	if count != 1 {
		headline += "s"
	}

	blocks := make([]Block, 0, 3+min(count, MaxSlackItems)+1)
	blocks = append(blocks,
		Block{Type: "header", Text: &TextObject{Type: "plain_text", Text: headline, Emoji: true}},
		Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: "New filings were published to the FTC early termination notices list since the last check."}},
		Block{Type: "divider"},
	)

	shown := items
	if count > MaxSlackItems {
		shown = items[:MaxSlackItems]
	}
	for _, n := range shown {
		blocks = append(blocks, Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: slackItemText(n)}})
	}

	if omitted := count - len(shown); omitted > 0 {
		blocks = append(blocks, Block{
			Type: "section",
			Text: &TextObject{Type: "mrkdwn", Text: fmt.Sprintf("_...and %d more not shown._", omitted)},
		})
	}

	return SlackMessage{Text: headline, Blocks: blocks}
}

func slackItemText(n notice.Notice) string {
	title := escapeMrkdwn(notice.OrNA(n.Title))
	if n.HasLink() {
		title = fmt.Sprintf("<%s|%s>", n.Link, title)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", title)
	fmt.Fprintf(&sb, "Date: %s\n", escapeMrkdwn(notice.OrNA(n.Date)))
	fmt.Fprintf(&sb, "Acquirer: %s\n", escapeMrkdwn(notice.OrNA(n.Acquirer)))
	fmt.Fprintf(&sb, "Target: %s", escapeMrkdwn(notice.OrNA(n.Target)))
	return sb.String()
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeMrkdwn(s string) string {
	return mrkdwnEscaper.Replace(s)
}
