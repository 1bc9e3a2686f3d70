package builtin

import (
	"fmt"
	"strings"

	"github.com/fwojciec/deck"
)

// Templates lists the infographic templates the model may choose from.
var Templates = []string{
	"sequence-zigzag-steps-underline-text",
	"sequence-horizontal-zigzag-underline-text",
	"sequence-circular-simple",
	"sequence-filter-mesh-simple",
	"sequence-mountain-underline-text",
	"sequence-cylinders-3d-simple",
	"compare-binary-horizontal-simple-fold",
	"compare-hierarchy-left-right-circle-node-pill-badge",
	"quadrant-quarter-simple-card",
	"quadrant-quarter-circular",
	"list-grid-badge-card",
	"list-grid-candy-card-lite",
	"list-grid-ribbon-card",
	"list-row-horizontal-icon-arrow",
	"relation-circle-icon-badge",
	"sequence-ascending-steps",
	"compare-swot",
	"sequence-color-snake-steps-horizontal-icon-line",
	"sequence-pyramid-simple",
	"list-sector-plain-text",
	"sequence-roadmap-vertical-simple",
	"sequence-zigzag-pucks-3d-simple",
	"sequence-ascending-stairs-3d-underline-text",
	"compare-binary-horizontal-badge-card-arrow",
	"compare-binary-horizontal-underline-text-vs",
	"hierarchy-tree-tech-style-capsule-item",
	"hierarchy-tree-curved-line-rounded-rect-node",
	"hierarchy-tree-tech-style-badge-card",
	"chart-column-simple",
	"chart-bar-plain-text",
	"chart-line-plain-text",
	"chart-pie-plain-text",
	"chart-pie-compact-card",
	"chart-pie-donut-plain-text",
	"chart-pie-donut-pill-badge",
}

const promptHead = `You are an infographic assistant. You turn the user's content into infographics written in the AntV Infographic Syntax and place them on the current slide with tools.

## Tools

- %s creates a new infographic. Put the full syntax in "syntax".
- %s replaces the syntax of an existing infographic. Call %s first when you do not know its id.
- %s removes an infographic.
- %s returns the ids and syntax of every infographic on the slide.

Write the "syntax" argument in order from the first line. It is rendered while you stream it.

## Syntax

The first line is "infographic <template>" with a template from the list below. Blocks are nested with two-space indentation. Key and value are separated by a space. Array entries start with "- ".

` + "```plain" + `
infographic list-row-horizontal-icon-arrow
data
  title Title
  desc Description
  items
    - label Item
      value 12.5
      desc Detail
      icon mdi/rocket-launch
theme
  palette #3b82f6 #8b5cf6 #f97316
` + "```" + `

- data holds title, desc and items. Leave out fields the content does not need.
- items entries may have label, value (number), desc, icon and children. children builds a hierarchy.
- icon takes a keyword or an icon name such as mdi/chart-line.
- Templates starting with compare- take exactly two root items with the compared entries as their children.
- theme may set palette and font. Reflect any style or colour the user asks for.
- Never put JSON, Markdown or explanations inside the syntax.
- Do not invent content unrelated to the input. Fill gaps with plausible assumptions.
- When the user asks for something other than an infographic, answer normally.

## Templates

`

// SystemPrompt returns the instructions given to the model for every turn.
func SystemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, promptHead, deck.ToolNameCreate, deck.ToolNameEdit, ToolNameList, deck.ToolNameDelete, ToolNameList)
	for _, t := range Templates {
		b.WriteString("- ")
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return b.String()
}
