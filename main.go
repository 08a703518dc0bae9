// main.go - CrimeGrid entry point
package main

import "github.com/valpere/crimegrid/cmd"

func main() {
	cmd.Execute()
}
