package main

import "github.com/ValentinKolb/mcpc/cmd"

func main() {
	cmd.Execute()
}
