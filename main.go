// main.go - Application entry point
package main

import "parceldash/cmd"

func main() {
	cmd.Execute()
}
