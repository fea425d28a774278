// Package notify renders comparison reports into chat messages and
// delivers them.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"build-watcher/internal/diff"
	"build-watcher/internal/engine"
	"build-watcher/internal/poller"
)

// Platform limits.
const (
	maxFieldValue  = 1024
	maxFieldsEmbed = 25
	maxEmbedChars  = 6000
	maxDescription = 4096
)

const (
	colorAdded   = 0x4dac68
	colorRemoved = 0xfc4130
	colorUpdated = 0xf0b232
	colorInfo    = 0x5865f2
)

// Roles are mentioned above the matching domain's messages. Empty means no mention.
type Roles struct {
	GlobalEnvs  string
	Strings     string
	Experiments string
	CSSRules    string
}

// Group is a logical message: an optional mention plus its embeds. A
// sender may split one group over several chat messages.
type Group struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
}

// Render turns a report into message groups, in posting order.
func Render(r poller.Report, roles Roles) []Group {
	d := r.Differences
	groups := []Group{{Embeds: []*discordgo.MessageEmbed{summaryEmbed(r)}}}

	if !d.GlobalEnvs.Empty() {
		groups = append(groups, Group{
			Content: mention(roles.GlobalEnvs),
			Embeds: stringChangeEmbeds("Global Env Changes",
				fmt.Sprintf("This build has a total of %d changes to the global env.", d.GlobalEnvs.Count()),
				d.GlobalEnvs),
		})
	}
	if !d.Strings.Empty() {
		groups = append(groups, Group{
			Content: mention(roles.Strings),
			Embeds: stringChangeEmbeds("String Changes",
				fmt.Sprintf("This build has a total of %d changes to strings.", d.Strings.Count()),
				d.Strings),
		})
	}
	if !d.CSSRules.Empty() {
		groups = append(groups, Group{Content: mention(roles.CSSRules), Embeds: cssEmbeds(d.CSSRules)})
	}
	if !d.Experiments.Empty() {
		groups = append(groups, Group{Content: mention(roles.Experiments), Embeds: experimentEmbeds(d.Experiments)})
	}
	if d.CSP != nil {
		groups = append(groups, Group{Embeds: []*discordgo.MessageEmbed{cspEmbed(d.CSP)}})
	}
	return groups
}

func mention(role string) string {
	if role == "" {
		return ""
	}
	return "<@&" + role + ">"
}

func summaryEmbed(r poller.Report) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s (Canary build: %s)", r.Build.BuildHash, r.Build.BuildNumber),
		Description: fmt.Sprintf("This build has a total of %d notable changes.\nCompared against `%s`.",
			r.TotalChanges, r.Previous.BuildHash),
		Color: colorInfo,
	}
	if at := r.Build.CreatedAt(); !at.IsZero() {
		e.Title = at.Format("02 January 2006") + " - " + e.Title
		e.Timestamp = at.Format(time.RFC3339)
	}
	return e
}

func stringChangeEmbeds(title, desc string, cs diff.ChangeSet[string]) []*discordgo.MessageEmbed {
	var fields []*discordgo.MessageEmbedField
	fields = append(fields, diffFields("Added", addedLines(cs.Added))...)
	fields = append(fields, diffFields("Updated", updatedLines(cs.Updated))...)
	fields = append(fields, diffFields("Removed", removedLines(cs.Removed))...)
	return splitFields(&discordgo.MessageEmbed{Title: title, Description: desc, Color: colorInfo}, "", fields)
}

func addedLines(t *diff.Table[string]) []string {
	var out []string
	t.Each(func(k, v string) { out = append(out, fmt.Sprintf("+ %s: %q", k, v)) })
	return out
}

func removedLines(t *diff.Table[string]) []string {
	var out []string
	t.Each(func(k, v string) { out = append(out, fmt.Sprintf("- %s: %q", k, v)) })
	return out
}

func updatedLines(t *diff.Table[diff.Change[string]]) []string {
	var out []string
	t.Each(func(k string, c diff.Change[string]) {
		out = append(out, fmt.Sprintf("- %s: %q\n+ %s: %q", k, c.OldValue, k, c.NewValue))
	})
	return out
}

func cssEmbeds(cs diff.ChangeSet[engine.Declarations]) []*discordgo.MessageEmbed {
	embeds := []*discordgo.MessageEmbed{{
		Title:       "CSS Rule Changes",
		Description: fmt.Sprintf("This build has a total of %d changes to CSS rules.", cs.Count()),
		Color:       colorInfo,
	}}
	cs.Added.Each(func(sel string, decls engine.Declarations) {
		embeds = append(embeds, ruleEmbeds("CSS Rule Added", sel, colorAdded, declLines("+", decls))...)
	})
	cs.Updated.Each(func(sel string, c diff.Change[engine.Declarations]) {
		props := diff.Diff(c.NewValue, c.OldValue, diff.Equal[string])
		var lines []string
		lines = append(lines, declLines("+", props.Added)...)
		props.Updated.Each(func(p string, v diff.Change[string]) {
			lines = append(lines, fmt.Sprintf("- %s: %s;\n+ %s: %s;", p, v.OldValue, p, v.NewValue))
		})
		lines = append(lines, declLines("-", props.Removed)...)
		embeds = append(embeds, ruleEmbeds("CSS Rule Updated", sel, colorUpdated, lines)...)
	})
	cs.Removed.Each(func(sel string, decls engine.Declarations) {
		embeds = append(embeds, ruleEmbeds("CSS Rule Removed", sel, colorRemoved, declLines("-", decls))...)
	})
	return embeds
}

func declLines(sign string, decls *diff.Table[string]) []string {
	var out []string
	decls.Each(func(p, v string) { out = append(out, fmt.Sprintf("%s %s: %s;", sign, p, v)) })
	return out
}

// ruleEmbeds renders one rule. Continuation embeds repeat a shortened
// selector so each message stays attributable.
func ruleEmbeds(title, selector string, color int, lines []string) []*discordgo.MessageEmbed {
	head := &discordgo.MessageEmbed{Title: title, Description: truncate("`"+selector+"`", maxDescription), Color: color}
	return splitFields(head, truncate("`"+selector+"`", 256), diffFields("Declarations", lines))
}

func experimentEmbeds(cs diff.ChangeSet[engine.Experiment]) []*discordgo.MessageEmbed {
	embeds := []*discordgo.MessageEmbed{{
		Title:       "Experiment Changes",
		Description: fmt.Sprintf("This build has a total of %d changes to experiments.", cs.Count()),
		Color:       colorInfo,
	}}
	cs.Added.Each(func(_ string, e engine.Experiment) {
		embeds = append(embeds, experimentDetail("Added", colorAdded, e)...)
	})
	cs.Removed.Each(func(_ string, e engine.Experiment) {
		embeds = append(embeds, experimentDetail("Removed", colorRemoved, e)...)
	})
	return embeds
}

func experimentDetail(verb string, color int, exp engine.Experiment) []*discordgo.MessageEmbed {
	id := truncate(fmt.Sprintf("ID: `%s`", exp.ID), 256)
	head := &discordgo.MessageEmbed{
		Title:       truncate(fmt.Sprintf("Experiment %s: %s", verb, exp.Label), 256),
		Description: truncate(fmt.Sprintf("%s\nKind: `%s`", id, exp.Kind), maxDescription),
		Color:       color,
	}
	fields := []*discordgo.MessageEmbedField{jsonField("Default Config", exp.DefaultConfig)}
	for _, t := range exp.Treatments {
		fields = append(fields, jsonField(truncate(fmt.Sprintf("Treatment %d: %s", t.ID, t.Label), 256), t.Config))
	}
	return splitFields(head, id, fields)
}

func jsonField(name string, cfg engine.Config) *discordgo.MessageEmbedField {
	body := []byte("{}")
	if cfg != nil {
		if b, err := json.MarshalIndent(cfg, "", "  "); err == nil {
			body = b
		}
	}
	return &discordgo.MessageEmbedField{Name: name, Value: codeBlock("json", truncate(string(body), maxFieldValue-16))}
}

func cspEmbed(c *diff.Change[string]) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Content Security Policy Changed",
		Color: colorUpdated,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Old", Value: codeBlock("", truncate(c.OldValue, maxFieldValue-16))},
			{Name: "New", Value: codeBlock("", truncate(c.NewValue, maxFieldValue-16))},
		},
	}
}

// diffFields packs lines into ```diff fields no longer than the field limit.
// Continuation fields are named "<name> (cont.)".
func diffFields(name string, lines []string) []*discordgo.MessageEmbedField {
	const overhead = len("```diff\n```")
	var (
		fields []*discordgo.MessageEmbedField
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		n := name
		if len(fields) > 0 {
			n += " (cont.)"
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: n, Value: codeBlock("diff", cur.String())})
		cur.Reset()
	}
	for _, l := range lines {
		l = truncate(l, maxFieldValue-overhead-1)
		if cur.Len()+len(l)+1+overhead > maxFieldValue {
			flush()
		}
		cur.WriteString(l)
		cur.WriteByte('\n')
	}
	flush()
	return fields
}

// splitFields spreads fields over head and as many continuation embeds as
// the per-embed limits require. Continuation embeds carry contDesc.
func splitFields(head *discordgo.MessageEmbed, contDesc string, fields []*discordgo.MessageEmbedField) []*discordgo.MessageEmbed {
	embeds := []*discordgo.MessageEmbed{head}
	cur := head
	for _, f := range fields {
		if len(cur.Fields) == maxFieldsEmbed || embedSize(cur)+len(f.Name)+len(f.Value) > maxEmbedChars {
			cur = &discordgo.MessageEmbed{Title: truncate(head.Title+" (cont.)", 256), Description: contDesc, Color: head.Color}
			embeds = append(embeds, cur)
		}
		cur.Fields = append(cur.Fields, f)
	}
	return embeds
}

func embedSize(e *discordgo.MessageEmbed) int {
	n := len(e.Title) + len(e.Description)
	for _, f := range e.Fields {
		n += len(f.Name) + len(f.Value)
	}
	return n
}

func codeBlock(lang, body string) string {
	return "```" + lang + "\n" + body + "```"
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "…"
	cut := n - len(ellipsis)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if n < len(ellipsis) {
		return s[:cut]
	}
	return s[:cut] + ellipsis
}
