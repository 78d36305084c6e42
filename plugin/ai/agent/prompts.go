package agent

import (
	"fmt"
	"strings"
	"time"
)

// outputTags is the direct-mode output contract shared by all artifact
// strategies.
const outputTags = `
### OUTPUT FORMAT
Reply with exactly two tags and nothing else:

<design_concept>
One to three sentences on the design decisions.
</design_concept>

<code>
%s
</code>`

const chartsInstructions = `You are a data visualization engineer specialised in Apache ECharts.
Produce a complete ECharts option object for the user's request.

- Every chart has a title and a subtext stating the key takeaway.
- Enable tooltip (with axisPointer where it applies) and a toolbox with data export.
- Pick the chart type that fits the data: radar for multi-dimensional scores, funnel for conversion, gauge for a single KPI.
- When the user gives little or no data, synthesise a realistic dataset.
- Use a modern palette; gradients for area fills, rounded bar corners.`

const flowInstructions = `You are a business process architect producing React Flow graphs.

- Node types: start, end, process, decision. Every branch goes through a decision node whose label is a question.
- Lay nodes on a grid: 250px vertical spacing, 400px horizontal.
- Expand a terse request into a complete process, including error and timeout paths.
- The graph is {"nodes":[{"id","type","position":{"x","y"},"data":{"label"}}],"edges":[{"id","source","target","label","animated"}]}.
- Match the user's language in labels.`

const mermaidInstructions = `You are a software architect writing Mermaid diagrams.

- Flowcharts use "graph TD" or "graph LR" with subgraphs for layers.
- Sequence diagrams use autonumber, activation bars, notes and rect grouping.
- Class diagrams carry typed members and relationship kinds; ER diagrams carry keys and cardinality.
- State diagrams use stateDiagram-v2 with nested states where they help.
- Output raw Mermaid source only, never a fenced block.
- Match the user's language in labels.`

const mindmapInstructions = `You are a knowledge architect producing Markmap mind maps in Markdown.

- "#" is the root, "##" the main branches, "###" sub-branches, "-" leaves.
- Aim for four to five levels of depth with concise labels.
- Add Risks, Opportunities or Best Practices branches when the topic calls for them.
- Use **bold** for critical nodes and ` + "`code`" + ` for technical terms.
- Match the user's language.`

const drawioInstructions = `You are a cloud solutions architect producing draw.io (mxGraph) XML.

- The document is <mxfile><diagram><mxGraphModel><root> with <mxCell id="0"/> and <mxCell id="1" parent="0"/> first.
- Shapes are <mxCell vertex="1" parent="1"> with an <mxGeometry as="geometry"/> child; edges are <mxCell edge="1" parent="1" source=".." target="..">.
- Every mxCell id is unique and every edge references existing ids.
- Colour by layer: blue for frontend, green for services, orange for storage, red for security, purple for network, grey for external.
- Use rounded=1, shadow=1 and orthogonal edges; group layers in containers; space shapes 200px apart horizontally and 100px vertically.
- Never put newlines in value attributes and never use <Array points>.
- Include at least eight components. Match the user's language in labels.`

const infographicInstructions = `You are an information designer writing AntV Infographic DSL.

- The first line is "infographic <template-name>".
- Blocks use two-space indentation: a data block with title, desc and the template's item field, and an optional theme block.
- Items may carry label, value, desc, icon (<collection>/<name>) and illus.
- Tell a story: every item gets a desc, values are realistic.
- Output raw DSL only, never a fenced block.
- Match the user's language.`

const generalInstructions = `You are the assistant of a diagramming studio. Answer the user's question directly.
When a visual would help, describe which kind (chart, flowchart, Mermaid diagram, mind map, architecture diagram or infographic) the user could ask for.`

const thinkingInstructions = `

### THINKING
If you reason before answering, put the reasoning inside <think></think> at the very start. It is stripped before the artifact is rendered.`

// timeInstructions anchors relative dates in generated content.
func timeInstructions(now time.Time) string {
	return fmt.Sprintf("\n\nCurrent time: %s (%s).", now.Format("2006-01-02 15:04 MST"), now.Weekday())
}

// infographicTemplates is the AntV template catalog, keyed by family.
var infographicTemplates = []struct {
	family    string
	dataField string
	templates []string
}{
	{"chart", "values", []string{"chart-bar-plain-text", "chart-column-simple", "chart-line-plain-text", "chart-pie-compact-card", "chart-pie-donut-pill-badge", "chart-pie-donut-plain-text", "chart-pie-plain-text", "chart-wordcloud"}},
	{"compare", "compares", []string{"compare-binary-horizontal-badge-card-arrow", "compare-binary-horizontal-simple-fold", "compare-binary-horizontal-underline-text-vs", "compare-hierarchy-left-right-circle-node-pill-badge", "compare-quadrant-quarter-circular", "compare-quadrant-quarter-simple-card", "compare-swot"}},
	{"hierarchy", "root", []string{"hierarchy-mindmap-branch-gradient-capsule-item", "hierarchy-mindmap-level-gradient-compact-card", "hierarchy-structure", "hierarchy-tree-curved-line-rounded-rect-node", "hierarchy-tree-tech-style-badge-card", "hierarchy-tree-tech-style-capsule-item"}},
	{"list", "lists", []string{"list-column-done-list", "list-column-simple-vertical-arrow", "list-column-vertical-icon-arrow", "list-grid-badge-card", "list-grid-candy-card-lite", "list-grid-ribbon-card", "list-row-horizontal-icon-arrow", "list-sector-plain-text", "list-zigzag-down-compact-card", "list-zigzag-down-simple", "list-zigzag-up-compact-card", "list-zigzag-up-simple"}},
	{"relation", "nodes", []string{"relation-dagre-flow-tb-animated-badge-card", "relation-dagre-flow-tb-animated-simple-circle-node", "relation-dagre-flow-tb-badge-card", "relation-dagre-flow-tb-simple-circle-node"}},
	{"sequence", "sequences", []string{"sequence-ascending-stairs-3d-underline-text", "sequence-ascending-steps", "sequence-circular-simple", "sequence-color-snake-steps-horizontal-icon-line", "sequence-cylinders-3d-simple", "sequence-filter-mesh-simple", "sequence-funnel-simple", "sequence-horizontal-zigzag-underline-text", "sequence-mountain-underline-text", "sequence-pyramid-simple", "sequence-roadmap-vertical-plain-text", "sequence-roadmap-vertical-simple", "sequence-snake-steps-compact-card", "sequence-snake-steps-simple", "sequence-snake-steps-underline-text", "sequence-stairs-front-compact-card", "sequence-stairs-front-pill-badge", "sequence-timeline-rounded-rect-node", "sequence-timeline-simple", "sequence-zigzag-pucks-3d-simple", "sequence-zigzag-steps-underline-text"}},
}

// InfographicDataField returns the item field a template expects.
// hierarchy-structure is the one hierarchy template that takes items.
func InfographicDataField(template string) string {
	if template == "hierarchy-structure" {
		return "items"
	}
	for _, family := range infographicTemplates {
		for _, name := range family.templates {
			if name == template {
				return family.dataField
			}
		}
	}
	return "items"
}

// infographicCatalog renders the template list for the instruction set.
func infographicCatalog() string {
	var sb strings.Builder
	sb.WriteString("\n\n### TEMPLATES\n")
	for _, family := range infographicTemplates {
		fmt.Fprintf(&sb, "- %s (item field: %s): %s\n", family.family, family.dataField, strings.Join(family.templates, ", "))
	}
	return sb.String()
}

// personaInstructions is the outer prompt of a tool-mediated strategy.
func personaInstructions(spec *StrategySpec) string {
	return fmt.Sprintf(`You coordinate the creation of %s.
First tell the user in one or two sentences what you are going to build or change.
Then call the %s tool exactly once. Its instruction argument must be a complete, self-contained description of the artifact: every element, label, relationship and style the user asked for, including details from earlier turns.
Do not write the artifact yourself.`, spec.Noun, spec.ToolName)
}

// routerSystemPrompt is the classification prompt.
const routerSystemPrompt = `Classify the user's latest request into exactly one canvas agent.

mindmap: mind maps, brainstorming, topic breakdowns, knowledge outlines
flow: business processes and workflows drawn as interactive flowcharts
mermaid: diagrams as code, sequence/class/ER/state/gantt diagrams
charts: data charts and dashboards (bar, line, pie, radar, funnel)
drawio: architecture and infrastructure diagrams, network topologies
infographic: infographics, posters, visual summaries, timelines, comparisons
general: greetings, questions, or anything that needs no visual

If the user asks to modify the current visual, pick the agent that made it.
Reply with the agent name only.`
