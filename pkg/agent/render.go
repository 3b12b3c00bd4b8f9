// SPDX-License-Identifier: MPL-2.0

package agent

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// DefaultInstallFolder is used when no install folder is given.
const DefaultInstallFolder = "_strata"

// RenderOptions carries install facts the rendered document refers to.
type RenderOptions struct {
	// InstallFolder is the install root name relative to the project, e.g. "_strata".
	InstallFolder string
	// Module is the module the agent is installed into.
	Module string
	// Name is the agent name derived from its definition file.
	Name string
}

var handlerText = map[string]string{
	"workflow": `When a menu item has workflow="path/to/workflow.yaml":
      1. Load {project-root}/$FOLDER/core/tasks/workflow.xml, the engine for every workflow
      2. Pass the yaml path as workflow-config and follow workflow.xml precisely
      3. Save outputs after each workflow step, never batch them`,
	"exec": `When a menu item has exec="path/to/file":
      1. Read the file completely and follow its instructions as written`,
	"action": `When a menu item has action="#id": find the prompt with that id in this file and follow its content.
      When a menu item has action="text": follow the text as an inline instruction`,
	"tmpl": `When a menu item has tmpl="path/to/template.md":
      1. Load the template and use it as the structure of the document you produce`,
	"data": `When a menu item has data="path/to/file":
      1. Load the file first and make its contents available to the instructions that follow`,
	"validate-workflow": `When a menu item has validate-workflow="path/to/workflow.yaml":
      1. Load {project-root}/$FOLDER/core/tasks/validate-workflow.xml
      2. Validate the referenced workflow and report every finding`,
}

var handlerOrder = []string{"workflow", "exec", "action", "tmpl", "data", "validate-workflow"}

// Render produces the compiled document for a merged, substituted agent.
func Render(a *Agent, opts RenderOptions) []byte {
	folder := opts.InstallFolder
	if folder == "" {
		folder = DefaultInstallFolder
	}
	module := a.Metadata.Module
	if module == "" {
		module = opts.Module
	}
	id := a.Metadata.ID
	if id == "" {
		id = fmt.Sprintf("%s/%s/agents/%s.md", folder, module, opts.Name)
	}
	name := a.Metadata.Name
	if name == "" {
		name = opts.Name
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	fmt.Fprintf(&b, "name: %q\n", name)
	fmt.Fprintf(&b, "description: %q\n", a.Metadata.Title)
	b.WriteString("---\n\n")
	b.WriteString("You must fully embody this agent's persona and follow all activation instructions exactly as specified. NEVER break character until given an exit command.\n\n")
	b.WriteString("```xml\n")

	fmt.Fprintf(&b, "<agent id=\"%s\" name=\"%s\" title=\"%s\" icon=\"%s\">\n",
		attr(id), attr(name), attr(a.Metadata.Title), attr(a.Metadata.Icon))
	renderActivation(&b, a, folder, module, opts.Name)
	renderPersona(&b, &a.Persona)
	renderPrompts(&b, a.Prompts)
	renderMemories(&b, a.Memories)
	renderMenu(&b, a.Menu, folder)
	b.WriteString("</agent>\n```\n")
	return b.Bytes()
}

func renderActivation(b *bytes.Buffer, a *Agent, folder, module, agentName string) {
	steps := []string{
		"Load persona from this current agent file (already in context)",
		fmt.Sprintf("Load and read {project-root}/%s/%s/config.yaml NOW. Store all fields as session variables: {user_name}, {communication_language}, {output_folder}. Do NOT continue until the config is loaded", folder, module),
		"Remember: the user's name is {user_name}",
	}
	if a.Metadata.HasSidecar {
		steps = append(steps, fmt.Sprintf(
			"Load every file in {project-root}/%s/_memory/%s-sidecar/ and treat it as your memory. Only read and write files inside that folder", folder, agentName))
	}
	steps = append(steps, a.CriticalActions...)
	steps = append(steps,
		"Show a greeting using {user_name}, communicate in {communication_language}, then display the numbered list of ALL menu items from the menu section",
		"STOP and WAIT for user input. Do NOT execute menu items automatically. Accept a number, a *trigger or a fuzzy description match",
		"On user input: number runs menu item [n]; text runs the case-insensitive substring match; several matches ask the user to clarify; no match shows \"Not recognized\"",
		"When running a menu item, check menu-handlers below, take the attributes of the selected item and follow the matching handler instructions",
	)

	b.WriteString("<activation critical=\"MANDATORY\">\n")
	for i, s := range steps {
		fmt.Fprintf(b, "  <step n=\"%d\">%s</step>\n", i+1, text(s))
	}

	kinds := usedHandlerKinds(a.Menu)
	if len(kinds) > 0 {
		b.WriteString("\n  <menu-handlers>\n    <handlers>\n")
		for _, k := range kinds {
			fmt.Fprintf(b, "      <handler type=\"%s\">\n      %s\n      </handler>\n", k, text(strings.ReplaceAll(handlerText[k], "$FOLDER", folder)))
		}
		b.WriteString("    </handlers>\n  </menu-handlers>\n")
	}

	b.WriteString("\n  <rules>\n")
	for _, r := range []string{
		"ALWAYS communicate in {communication_language} unless contradicted by communication_style",
		"Stay in character until *exit is selected",
		"Display menu items in the order given",
		"Load files ONLY when running a chosen menu item or a command requires it. EXCEPTION: the config.yaml of activation step 2",
	} {
		fmt.Fprintf(b, "    <r>%s</r>\n", text(r))
	}
	b.WriteString("  </rules>\n</activation>\n")
}

func renderPersona(b *bytes.Buffer, p *Persona) {
	b.WriteString("<persona>\n")
	fmt.Fprintf(b, "  <role>%s</role>\n", text(p.Role))
	fmt.Fprintf(b, "  <identity>%s</identity>\n", text(p.Identity))
	fmt.Fprintf(b, "  <communication_style>%s</communication_style>\n", text(p.CommunicationStyle))
	fmt.Fprintf(b, "  <principles>%s</principles>\n", text(strings.Join(p.Principles, " ")))
	b.WriteString("</persona>\n")
}

func renderPrompts(b *bytes.Buffer, prompts []Prompt) {
	if len(prompts) == 0 {
		return
	}
	b.WriteString("<prompts>\n")
	for _, p := range prompts {
		fmt.Fprintf(b, "  <prompt id=\"%s\">\n%s\n  </prompt>\n", attr(p.ID), text(strings.TrimRight(p.Content, "\n")))
	}
	b.WriteString("</prompts>\n")
}

func renderMemories(b *bytes.Buffer, memories []string) {
	if len(memories) == 0 {
		return
	}
	b.WriteString("<memories>\n")
	for _, m := range memories {
		fmt.Fprintf(b, "  <memory>%s</memory>\n", text(m))
	}
	b.WriteString("</memories>\n")
}

// renderMenu writes *help first, authored entries in order, then
// *party-mode and *exit.
func renderMenu(b *bytes.Buffer, menu []MenuItem, folder string) {
	b.WriteString("<menu>\n")
	b.WriteString("  <item cmd=\"*help\">Show numbered menu</item>\n")
	for _, m := range menu {
		cmd := "*" + strings.TrimPrefix(m.Trigger, "*")
		if len(m.Triggers) > 0 {
			label := m.Multi
			if label == "" {
				label = m.Description
			}
			fmt.Fprintf(b, "  <item cmd=\"%s\" type=\"multi\">%s</item>\n", attr(cmd), text(label))
			for _, t := range m.Triggers {
				fmt.Fprintf(b, "    <handler hidden=\"true\" for=\"%s\" cmd=\"*%s\" match=\"%s\"%s></handler>\n",
					attr(cmd), attr(strings.TrimPrefix(t.Trigger, "*")), attr(t.Description), handlerAttrs(t.Handlers))
			}
			continue
		}
		h := m.Handlers
		if m.WorkflowInstall != "" {
			h.Workflow = m.WorkflowInstall
		}
		fmt.Fprintf(b, "  <item cmd=\"%s\"%s>%s</item>\n", attr(cmd), handlerAttrs(h), text(m.Description))
	}
	fmt.Fprintf(b, "  <item cmd=\"*party-mode\" exec=\"{project-root}/%s/core/workflows/party-mode/workflow.yaml\">Bring the whole team in to chat with other expert agents</item>\n", attr(folder))
	b.WriteString("  <item cmd=\"*exit\">Exit with confirmation</item>\n")
	b.WriteString("</menu>\n")
}

func usedHandlerKinds(menu []MenuItem) []string {
	used := map[string]bool{"exec": true} // *party-mode
	for _, m := range menu {
		for _, k := range m.Kinds() {
			used[k] = true
		}
		for _, t := range m.Triggers {
			for _, k := range t.Kinds() {
				used[k] = true
			}
		}
	}
	var out []string
	for _, k := range handlerOrder {
		if used[k] {
			out = append(out, k)
		}
	}
	return out
}

func handlerAttrs(h Handlers) string {
	var sb strings.Builder
	for _, a := range h.attrs() {
		fmt.Fprintf(&sb, " %s=\"%s\"", a[0], attr(a[1]))
	}
	return sb.String()
}

// attr escapes s for a double-quoted XML attribute.
func attr(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s)) // strings.Builder never fails
	return sb.String()
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// text escapes s as XML character data, keeping quotes and line breaks.
func text(s string) string {
	return textEscaper.Replace(s)
}
