// SPDX-License-Identifier: MPL-2.0

// Package collect turns module config schemas into concrete configuration.
//
// A Collector processes modules in install order. Items without a prompt are
// resolved immediately; prompted items are batched and handed to a Prompter
// once per module. Defaults and result templates may reference other keys as
// {key}, which resolve against, in order: values already set for the module,
// the run-wide Answers (by suffix), finalized config of any module, and the
// module's own schema defaults. {project-root} and {value} are reserved.
//
// On update, only keys missing from a module's existing config are asked;
// every stored value is kept verbatim.
package collect
