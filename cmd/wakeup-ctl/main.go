package main

import "github.com/oshokin/wakeup-call/cmd/wakeup-ctl/cmd"

func main() {
	cmd.Execute()
}
