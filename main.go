// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/strata-dev/strata/cmd/strata"

func main() {
	cmd.Execute()
}
