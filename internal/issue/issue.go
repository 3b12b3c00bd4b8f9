// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog entry.
type Id int

const (
	ModuleNotFoundId Id = iota + 1
	SchemaParseErrorId
	NetworkFetchFailedId
	CompileErrorId
	WriteConflictId
	ManifestMissingId
	ConfigLoadFailedId
	DependencyCycleId
	PermissionDeniedId
	InvalidAnswerId
)

type (
	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation or external reference.
	HttpLink string

	// Issue is a user-facing explanation of a failure category.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with glamour using the named style ("dark",
// "light", "notty" or a style file path).
func (i *Issue) Render(stylePath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		sb.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			sb.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(sb.String(), stylePath)
}

var (
	render = glamour.Render

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found

No source provided this module, so it was skipped. A previous install of it,
if any, was left untouched.

## Sources are searched in this order
1. Local modules registered with ` + "`--custom-path`" + `
2. ` + "`remote_modules`" + ` declared in your strata config
3. Modules built into strata and ` + "`builtin_dirs`" + `

## Things you can try
- Register a local module directory:
~~~
$ strata install --custom-path ./my-module
~~~
- Check the module code in ` + "`module.yaml`" + ` matches the name you asked for
- Run ` + "`strata config show`" + ` to see the configured sources`,
	}

	schemaParseErrorIssue = &Issue{
		id: SchemaParseErrorId,
		mdMsg: `
# Invalid module.yaml

The module schema could not be read. The module was skipped and its existing
configuration was kept.

## Things you can try
- Check the YAML syntax of ` + "`module.yaml`" + `
- Every ` + "`config`" + ` entry must be a mapping with known keys:
~~~yaml
config:
  output_folder:
    prompt: "Where should documents go?"
    default: "docs"
    result: "{project-root}/{value}"
~~~`,
	}

	networkFetchFailedIssue = &Issue{
		id: NetworkFetchFailedId,
		mdMsg: `
# Remote module could not be updated

Fetching the module repository failed. When a cached copy exists it is used
instead; otherwise the module is skipped. Network operations are never retried
automatically.

## Things you can try
- Check your network connection and re-run ` + "`strata install`" + `
- For private repositories set ` + "`GITHUB_TOKEN`" + `, ` + "`GITLAB_TOKEN`" + ` or ` + "`GIT_TOKEN`" + `, or load an SSH key into your agent
- Raise ` + "`network_timeout`" + ` in your strata config for slow connections`,
	}

	compileErrorIssue = &Issue{
		id: CompileErrorId,
		mdMsg: `
# Agent compilation failed

An agent definition or its customization could not be compiled. The module was
not installed; other modules were unaffected.

## Things you can try
- Check the ` + "`*.agent.yaml`" + ` file has a top level ` + "`agent:`" + ` section
- Check your overlay in ` + "`_strata/_config/agents/`" + ` is valid YAML
- Delete the overlay to have strata write a fresh one on the next run`,
	}

	writeConflictIssue = &Issue{
		id: WriteConflictId,
		mdMsg: `
# Your edits were preserved

These files changed since strata last wrote them, so they were not updated.
They will be reported on every run until you reconcile them.

## Things you can try
- Keep your version: nothing to do
- Take the new version: delete the file and re-run ` + "`strata install`" + `
- Move lasting changes into the agent's ` + "`.customize.yaml`" + ` overlay`,
	}

	manifestMissingIssue = &Issue{
		id: ManifestMissingId,
		mdMsg: `
# Install manifest missing

An existing install was found without ` + "`_strata/_config/manifest.yaml`" + `.
Without it strata cannot tell your edits from its own files, so every installed
file was overwritten and is tracked again from now on.`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration

The strata configuration file could not be read or is invalid.

## Things you can try
- Check the CUE syntax of your config file
- Create a default config file:
~~~
$ strata config init
~~~
- Show the effective configuration:
~~~
$ strata config show
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected

Modules declare dependencies on each other in a loop, so no install order
exists.

## Things you can try
- Remove one of the ` + "`dependencies`" + ` entries named in the cycle`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied

strata could not write inside the project or its cache directory.

## Things you can try
- Check the permissions of the project directory and ` + "`_strata/`" + `
- Set ` + "`cache_dir`" + ` to a directory you own`,
	}

	invalidAnswerIssue = &Issue{
		id: InvalidAnswerId,
		mdMsg: `
# Invalid configuration answer

A required setting was left blank or an answer did not match the pattern the
module expects. The module was not installed.

## Things you can try
- Re-run ` + "`strata install`" + ` and answer the highlighted question
- Use ` + "`--yes`" + ` to accept the module defaults`,
	}

	issues = map[Id]*Issue{
		moduleNotFoundIssue.Id():     moduleNotFoundIssue,
		schemaParseErrorIssue.Id():   schemaParseErrorIssue,
		networkFetchFailedIssue.Id(): networkFetchFailedIssue,
		compileErrorIssue.Id():       compileErrorIssue,
		writeConflictIssue.Id():      writeConflictIssue,
		manifestMissingIssue.Id():    manifestMissingIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		dependencyCycleIssue.Id():    dependencyCycleIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
		invalidAnswerIssue.Id():      invalidAnswerIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
