// Command manifold checks a managed machine for software to install, update,
// and remove.
package main

import "github.com/papapumpkin/manifold/cmd"

func main() {
	cmd.Execute()
}
