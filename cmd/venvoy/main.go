// SPDX-License-Identifier: MPL-2.0

// Command venvoy manages portable computational environments.
package main

import "venvoy/internal/cli"

func main() {
	cli.Execute()
}
