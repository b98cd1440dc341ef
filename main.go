// SPDX-License-Identifier: MIT
package main

import "github.com/skaphos/fleetkeeper/cmd/fleetkeeper"

// execute is overridable in tests.
var execute = fleetkeeper.Execute

func main() {
	execute()
}
