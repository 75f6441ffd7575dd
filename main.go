package main

import "github.com/KaramelBytes/scorelens-cli/cmd"

func main() {
	cmd.Execute()
}
