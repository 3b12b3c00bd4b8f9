// SPDX-License-Identifier: MPL-2.0

package agent

import "fmt"

// Input is everything one agent compilation depends on.
type Input struct {
	Name       string
	Module     string
	Definition []byte
	// Overlay is the raw overlay document, nil when there is none.
	Overlay []byte
	Lookup  Lookup
	// InstallFolder defaults to "_strata".
	InstallFolder string
}

// Output is a compiled agent.
type Output struct {
	Agent   *Agent
	Content []byte
	// CustomizedFields is copied from the overlay for reporting.
	CustomizedFields []string
}

// Compile merges, substitutes and renders one agent. Failures are returned
// as *CompileError.
func Compile(in Input) (*Output, error) {
	fail := func(err error) (*Output, error) {
		return nil, &CompileError{Agent: in.Module + "/" + in.Name, Err: err}
	}

	base, err := ParseDefinition(in.Definition)
	if err != nil {
		return fail(fmt.Errorf("invalid definition: %w", err))
	}

	var ov *Overlay
	if in.Overlay != nil {
		ov, err = ParseOverlay(in.Overlay)
		if err != nil {
			return fail(fmt.Errorf("invalid overlay: %w", err))
		}
	}

	merged := Merge(base, ov)
	if merged.Metadata.Module == "" {
		merged.Metadata.Module = in.Module
	}
	folder := in.InstallFolder
	if folder == "" {
		folder = DefaultInstallFolder
	}
	Substitute(merged, WithInstallFolder(folder, in.Lookup))

	out := &Output{
		Agent: merged,
		Content: Render(merged, RenderOptions{
			InstallFolder: folder,
			Module:        in.Module,
			Name:          in.Name,
		}),
	}
	if ov != nil {
		out.CustomizedFields = ov.CustomizedFields
	}
	return out, nil
}
