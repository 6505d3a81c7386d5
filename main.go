package main

import "github.com/cpdtrack/cpd-management/cmd"

func main() {
	cmd.Execute()
}
