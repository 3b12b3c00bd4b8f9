// SPDX-License-Identifier: MPL-2.0

package agent

import "regexp"

var placeholderRE = regexp.MustCompile(`\{([A-Za-z0-9_-]+)\}`)

// InstallFolderKey is the placeholder definitions use for the install root,
// as in {project-root}/{install-folder}/core/tasks.
const InstallFolderKey = "install-folder"

// Lookup resolves a placeholder key to its value.
type Lookup func(key string) (string, bool)

// WithInstallFolder resolves {install-folder} to folder and defers every
// other key to next, which may be nil.
func WithInstallFolder(folder string, next Lookup) Lookup {
	return func(key string) (string, bool) {
		if key == InstallFolderKey {
			return folder, true
		}
		if next == nil {
			return "", false
		}
		return next(key)
	}
}

// Substitute replaces {key} placeholders throughout a in place. Keys resolve
// through lookup first and the agent's declared variables second. The
// {project-root} token and unknown keys are left for the runtime.
func Substitute(a *Agent, lookup Lookup) {
	sub := func(s string) string {
		return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
			key := m[1 : len(m)-1]
			if key == "project-root" {
				return m
			}
			if lookup != nil {
				if v, ok := lookup(key); ok {
					return v
				}
			}
			if v, ok := a.Variables[key]; ok {
				return v
			}
			return m
		})
	}
	subAll := func(items []string) {
		for i := range items {
			items[i] = sub(items[i])
		}
	}
	subHandlers := func(h *Handlers) {
		for _, f := range []*string{&h.Workflow, &h.Exec, &h.Action, &h.Tmpl, &h.Data, &h.ValidateWorkflow} {
			*f = sub(*f)
		}
	}

	md := &a.Metadata
	md.ID, md.Name, md.Title, md.Icon = sub(md.ID), sub(md.Name), sub(md.Title), sub(md.Icon)

	p := &a.Persona
	p.Role, p.Identity, p.CommunicationStyle = sub(p.Role), sub(p.Identity), sub(p.CommunicationStyle)
	subAll(p.Principles)

	subAll(a.CriticalActions)
	subAll(a.Memories)
	for i := range a.Prompts {
		a.Prompts[i].Content = sub(a.Prompts[i].Content)
	}
	for i := range a.Menu {
		m := &a.Menu[i]
		m.Description = sub(m.Description)
		m.Multi = sub(m.Multi)
		m.WorkflowInstall = sub(m.WorkflowInstall)
		subHandlers(&m.Handlers)
		for j := range m.Triggers {
			t := &m.Triggers[j]
			t.Description = sub(t.Description)
			subHandlers(&t.Handlers)
		}
	}
}
